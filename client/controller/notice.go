package controller

// NoticeKind classifies a user-facing notice.
type NoticeKind int

const (
	// NoticeSignInRequired means no credential is available; the session runs in preview mode.
	NoticeSignInRequired NoticeKind = iota + 1
	// NoticeReconnecting means the connection dropped and a reconnect is pending.
	NoticeReconnecting
	// NoticeConnected means the session is registered on a live connection.
	NoticeConnected
	// NoticeAuthExpired means the credential was rejected and cleared.
	NoticeAuthExpired
	// NoticeSessionStarted means a new session replaced the previous one.
	NoticeSessionStarted
	// NoticeResumeFailed means a persisted session could not be loaded.
	NoticeResumeFailed
)

func (k NoticeKind) String() string {
	switch k {
	case NoticeSignInRequired:
		return "sign_in_required"
	case NoticeReconnecting:
		return "reconnecting"
	case NoticeConnected:
		return "connected"
	case NoticeAuthExpired:
		return "auth_expired"
	case NoticeSessionStarted:
		return "session_started"
	case NoticeResumeFailed:
		return "resume_failed"
	}
	return "unknown"
}

// Notice is a transient message for the user.
type Notice struct {
	Kind      NoticeKind
	SessionID string
	Message   string
}

var noticeMessages = map[NoticeKind]string{
	NoticeSignInRequired: "Sign in to start a live session.",
	NoticeReconnecting:   "Connection lost, reconnecting...",
	NoticeConnected:      "Connected.",
	NoticeAuthExpired:    "Your session has expired. Please sign in again.",
	NoticeSessionStarted: "New session started.",
	NoticeResumeFailed:   "Could not load the session.",
}

func newNotice(kind NoticeKind, sessionID string) Notice {
	return Notice{Kind: kind, SessionID: sessionID, Message: noticeMessages[kind]}
}
