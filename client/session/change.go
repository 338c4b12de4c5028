package session

// Change is a bit set describing which parts of the view an event touched.
type Change uint8

const (
	ChangeStages Change = 1 << iota
	ChangeTimeline
	ChangeTranscript
	ChangeArtifact
	ChangeRisk
	ChangeTyping

	ChangeNone Change = 0
	ChangeAll         = ChangeStages | ChangeTimeline | ChangeTranscript | ChangeArtifact | ChangeRisk | ChangeTyping
)

// Has reports whether every bit of other is set in c.
func (c Change) Has(other Change) bool {
	return other != ChangeNone && c&other == other
}
