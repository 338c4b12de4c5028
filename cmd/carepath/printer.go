package carepath

import (
	"fmt"
	"io"

	"github.com/cenyuzhangms/MAFCarepath-v2/client/artifact"
	"github.com/cenyuzhangms/MAFCarepath-v2/client/controller"
	"github.com/cenyuzhangms/MAFCarepath-v2/client/render"
	"github.com/cenyuzhangms/MAFCarepath-v2/client/risk"
	"github.com/cenyuzhangms/MAFCarepath-v2/client/session"
)

// printer writes incremental view changes to a terminal. It runs on the
// controller goroutine.
type printer struct {
	out      io.Writer
	renderer *render.Renderer

	sessionID string
	printed   int
	timeline  int
	typing    string
	risk      risk.Level
	artifact  *artifact.Artifact

	replies chan struct{}
	opened  chan struct{}
	notices chan controller.Notice
}

func newPrinter(out io.Writer, width int) *printer {
	return &printer{
		out:      out,
		renderer: render.New(width),
		replies:  make(chan struct{}, 16),
		opened:   make(chan struct{}, 1),
		notices:  make(chan controller.Notice, 16),
	}
}

func (p *printer) OnUpdate(view *session.View, change session.Change) {
	if view.SessionID != p.sessionID {
		p.sessionID = view.SessionID
		p.printed, p.timeline = 0, 0
		p.typing, p.risk, p.artifact = "", risk.None, nil
	}
	if change.Has(session.ChangeTimeline) {
		// newest first
		for i := len(view.Timeline) - p.timeline - 1; i >= 0; i-- {
			entry := view.Timeline[i]
			fmt.Fprintf(p.out, "  · [%s] %s\n", entry.Kind, entry.Content)
		}
		p.timeline = len(view.Timeline)
	}
	if change.Has(session.ChangeTyping) && view.Typing != p.typing {
		p.typing = view.Typing
		if p.typing != "" {
			fmt.Fprintf(p.out, "  … %s\n", p.typing)
		}
	}
	// ChangeAll only comes from a reset or a hydration replay, never a live reply.
	replay := change == session.ChangeAll
	if change.Has(session.ChangeTranscript) {
		for _, msg := range view.Transcript[min(p.printed, len(view.Transcript)):] {
			if msg.Role == session.RoleUser {
				continue
			}
			fmt.Fprintln(p.out, p.renderer.Message(msg))
			if !replay {
				p.signal(p.replies)
			}
		}
		p.printed = len(view.Transcript)
	}
	if change.Has(session.ChangeRisk) && view.Risk != p.risk {
		p.risk = view.Risk
		fmt.Fprintln(p.out, p.renderer.Risk(view.Risk))
	}
	if change.Has(session.ChangeArtifact) && view.Artifact != nil && view.Artifact != p.artifact {
		p.artifact = view.Artifact
		fmt.Fprintln(p.out, p.renderer.Artifact(view.Artifact))
	}
}

func (p *printer) OnNotice(notice controller.Notice) {
	if notice.Kind == controller.NoticeConnected {
		p.signal(p.opened)
	}
	select {
	case p.notices <- notice:
	default:
	}
	fmt.Fprintf(p.out, "! %s\n", notice.Message)
}

// discardReplies drops reply signals raised before the next prompt.
func (p *printer) discardReplies() {
	for {
		select {
		case <-p.replies:
		default:
			return
		}
	}
}

func (p *printer) signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
