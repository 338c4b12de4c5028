package session

import (
	"github.com/cenyuzhangms/MAFCarepath-v2/client/artifact"
	"github.com/cenyuzhangms/MAFCarepath-v2/client/risk"
	"github.com/cenyuzhangms/MAFCarepath-v2/client/stage"
	"github.com/cenyuzhangms/MAFCarepath-v2/client/workflow"
)

// View is a read-only copy of everything a renderer draws.
type View struct {
	SessionID  string
	Title      string
	Summary    string
	Typing     string
	Stages     []*StageView
	Active     []string
	Timeline   []TimelineEntry
	Transcript []Message
	Risk       risk.Level
	Artifact   *artifact.Artifact
}

// StageView joins static stage metadata with live stage state.
type StageView struct {
	workflow.StageInfo
	Name         string
	Status       stage.Status
	Text         string
	FinalMessage string
	Preview      string
}

// View snapshots the current state. Workflow stages come first in their
// fixed order, followed by any other stage ids seen on the stream.
func (r *Reconciler) View() *View {
	ret := &View{
		SessionID:  r.session.ID(),
		Title:      r.session.Title,
		Summary:    r.session.Summary,
		Typing:     r.typing,
		Active:     r.stages.Active(),
		Timeline:   r.session.Timeline(),
		Transcript: r.session.Transcript(),
		Risk:       r.stages.Risk(),
		Artifact:   r.stages.Artifact(),
	}
	seen := map[string]bool{}
	for _, info := range workflow.Stages() {
		seen[info.ID] = true
		ret.Stages = append(ret.Stages, r.stageView(info))
	}
	for _, id := range r.stages.Known() {
		if seen[id] {
			continue
		}
		info, _ := workflow.Lookup(id)
		ret.Stages = append(ret.Stages, r.stageView(info))
	}
	return ret
}

func (r *Reconciler) stageView(info workflow.StageInfo) *StageView {
	ret := &StageView{StageInfo: info, Name: info.Label, Status: r.stages.Status(info.ID)}
	if st, ok := r.stages.Stage(info.ID); ok {
		ret.Name = st.Name
		ret.Text = st.Text()
		ret.FinalMessage = st.FinalMessage
		ret.Preview = st.Preview()
	}
	return ret
}

// Export is the downloadable session document.
type Export struct {
	SessionID    string                  `json:"sessionId"`
	Conversation []Message               `json:"conversation"`
	Agents       map[string]*ExportAgent `json:"agents"`
}

// ExportAgent is one stage in an Export.
type ExportAgent struct {
	Name         string   `json:"name"`
	Tokens       []string `json:"tokens"`
	FinalMessage string   `json:"finalMessage,omitempty"`
	Complete     bool     `json:"complete,omitempty"`
}

// Export builds the export document. Error entries are not part of the
// exported conversation.
func (r *Reconciler) Export() *Export {
	ret := &Export{SessionID: r.session.ID(), Conversation: []Message{}, Agents: map[string]*ExportAgent{}}
	for _, msg := range r.session.Transcript() {
		if msg.Role == RoleError {
			continue
		}
		ret.Conversation = append(ret.Conversation, msg)
	}
	for _, id := range r.stages.Known() {
		st, _ := r.stages.Stage(id)
		tokens := st.Tokens
		if tokens == nil {
			tokens = []string{}
		}
		ret.Agents[id] = &ExportAgent{Name: st.Name, Tokens: tokens, FinalMessage: st.FinalMessage, Complete: st.Complete}
	}
	return ret
}
