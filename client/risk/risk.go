// Package risk infers a coarse severity label from orchestrator and agent
// text. It is a keyword heuristic, not a clinical determination.
package risk

import "strings"

// Level is an escalating severity. The zero value means no risk was inferred.
type Level int

const (
	None Level = iota
	Urgent
	High
)

// Infer returns the level suggested by text alone: "high" wins over
// "urgent"/"emergent"; matching is case-insensitive.
func Infer(text string) Level {
	lowered := strings.ToLower(text)
	if strings.Contains(lowered, "high") {
		return High
	}
	if strings.Contains(lowered, "urgent") || strings.Contains(lowered, "emergent") {
		return Urgent
	}
	return None
}

// Escalate returns the higher of l and the level inferred from text, so a
// level once reached is never lowered by later text.
func (l Level) Escalate(text string) Level {
	if inferred := Infer(text); inferred > l {
		return inferred
	}
	return l
}

func (l Level) String() string {
	switch l {
	case High:
		return "HIGH"
	case Urgent:
		return "URGENT"
	default:
		return ""
	}
}

// Label is the badge text.
func (l Level) Label() string {
	if l == None {
		return "Risk: pending"
	}
	return "Risk: " + l.String()
}

// Summary is the one-line explanation shown next to the badge.
func (l Level) Summary() string {
	switch l {
	case High:
		return "High risk flagged in triage"
	case Urgent:
		return "Urgent escalation recommended"
	default:
		return "Risk level pending"
	}
}
