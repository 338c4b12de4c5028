package store

import "github.com/cenyuzhangms/MAFCarepath-v2/client/session"

// CreateSessionRequest is the body of POST /api/sessions.
type CreateSessionRequest struct {
	Title string `json:"title,omitempty"`
}

// ListSessionsResponse is the body of GET /api/sessions.
type ListSessionsResponse struct {
	Sessions []*session.Info `json:"sessions"`
}
