// Package stage holds the per-stage lifecycle state the renderer reads: which
// stages are running, which completed and what they produced.
package stage

import (
	"regexp"
	"strings"

	"github.com/cenyuzhangms/MAFCarepath-v2/shared"
)

// Status is derived from store state, never stored.
type Status string

const (
	Pending  Status = "pending"
	Active   Status = "active"
	Complete Status = "complete"
)

// Label is the badge text for a status.
func (s Status) Label() string {
	switch s {
	case Active:
		return "Running"
	case Complete:
		return "Complete"
	default:
		return "Idle"
	}
}

const previewLimit = 120

var (
	fencedBlock   = regexp.MustCompile("(?s)```.*?```")
	headingMarker = regexp.MustCompile(`###\s+`)
	bracketChars  = strings.NewReplacer("{", "", "}", "", "[", "", "]", "")
)

// Stage is the accumulated state of one workflow stage.
type Stage struct {
	ID           string
	Name         string
	Tokens       []string
	FinalMessage string
	Complete     bool
}

// Text joins the streamed tokens received so far.
func (s *Stage) Text() string {
	if s == nil {
		return ""
	}
	return strings.Join(s.Tokens, "")
}

// Preview condenses the final message for a one-line subtitle: fenced code,
// heading markers and JSON punctuation are removed and the result is capped
// at 120 runes.
func (s *Stage) Preview() string {
	if s == nil || s.FinalMessage == "" {
		return ""
	}
	cleaned := fencedBlock.ReplaceAllString(s.FinalMessage, "")
	cleaned = headingMarker.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(bracketChars.Replace(cleaned))
	return shared.Ellipsis(cleaned, previewLimit)
}

func (s *Stage) clone() *Stage {
	ret := *s
	ret.Tokens = append([]string(nil), s.Tokens...)
	return &ret
}
