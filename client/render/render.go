// Package render draws a session view for a terminal.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/cenyuzhangms/MAFCarepath-v2/client/artifact"
	"github.com/cenyuzhangms/MAFCarepath-v2/client/risk"
	"github.com/cenyuzhangms/MAFCarepath-v2/client/session"
	"github.com/cenyuzhangms/MAFCarepath-v2/shared"
)

const (
	sbarLimit      = 80
	defaultWidth   = 80
	timelineLimit  = 8
	orderTurnround = "30-60 min"
)

// Renderer turns views into styled text.
type Renderer struct {
	theme *Theme
	width int
}

// New creates a renderer for the given terminal width; non-positive widths
// use 80 columns.
func New(width int) *Renderer {
	if width <= 0 {
		width = defaultWidth
	}
	return &Renderer{theme: DefaultTheme(), width: width}
}

// Stages renders one line per stage: badge, label and preview or subtitle.
func (r *Renderer) Stages(stages []*session.StageView) string {
	var lines []string
	for _, sv := range stages {
		style, ok := r.theme.Status[sv.Status]
		if !ok {
			style = r.theme.Muted
		}
		badge := style.Render(fmt.Sprintf("[%s] %-8s", sv.Icon, sv.Status.Label()))
		detail := shared.FirstNonEmpty(sv.Preview, sv.Subtitle)
		label := sv.Label
		if sv.Name != "" && sv.Name != sv.ID {
			label = sv.Name
		}
		line := badge + " " + r.theme.PanelTitle.Render(label)
		if detail != "" {
			line += r.theme.Muted.Render(" - " + detail)
		}
		lines = append(lines, line)
	}
	return r.panel("Care team", strings.Join(lines, "\n"))
}

// Timeline renders the most recent entries, newest first.
func (r *Renderer) Timeline(entries []session.TimelineEntry) string {
	if len(entries) == 0 {
		return r.panel("Handoffs", r.theme.Muted.Render("No handoffs yet"))
	}
	if len(entries) > timelineLimit {
		entries = entries[:timelineLimit]
	}
	var lines []string
	for _, entry := range entries {
		stamp := ""
		if !entry.Time.IsZero() {
			stamp = entry.Time.Format("15:04:05") + " "
		}
		lines = append(lines, r.theme.Muted.Render(stamp+entry.Kind)+" "+entry.Content)
	}
	return r.panel("Handoffs", strings.Join(lines, "\n"))
}

// Message renders one transcript entry. Assistant messages made of "### "
// sections render each section under its own heading.
func (r *Renderer) Message(msg session.Message) string {
	style, ok := r.theme.Role[string(msg.Role)]
	if !ok {
		style = r.theme.PanelTitle
	}
	header := style.Render(string(msg.Role))
	if msg.Role != session.RoleAssistant {
		return header + "\n" + strings.TrimSpace(msg.Content)
	}
	sections := Sections(msg.Content)
	if len(sections) == 0 {
		return header + "\n" + strings.TrimSpace(msg.Content)
	}
	parts := []string{header}
	for _, section := range sections {
		parts = append(parts, r.theme.Section.Render(section.Title))
		if section.Body != "" {
			parts = append(parts, section.Body)
		}
	}
	return strings.Join(parts, "\n")
}

// Transcript renders the conversation followed by the typing indicator.
func (r *Renderer) Transcript(view *session.View) string {
	var blocks []string
	for _, msg := range view.Transcript {
		blocks = append(blocks, r.Message(msg))
	}
	if view.Typing != "" {
		blocks = append(blocks, r.theme.Typing.Render(view.Typing))
	}
	return strings.Join(blocks, "\n\n")
}

// Artifact renders the SBAR note and the drafted order list.
func (r *Renderer) Artifact(a *artifact.Artifact) string {
	if a == nil {
		return r.panel("Artifacts", r.theme.Muted.Render("Recent labs & symptoms summarized\nDrafted orders + handoff note"))
	}
	var lines []string
	if a.SBARNote != "" {
		lines = append(lines, "SBAR: "+shared.Ellipsis(a.SBARNote, sbarLimit))
	}
	if a.HasOrders() {
		lines = append(lines, r.theme.PanelTitle.Render("Drafted orders + SBAR handoff ready"))
		for _, item := range a.Items() {
			lines = append(lines, fmt.Sprintf("  %s %s", item, r.theme.Muted.Render(orderTurnround)))
		}
	}
	if len(a.MedOptions) > 0 {
		lines = append(lines, "Medication options: "+strings.Join(a.MedOptions, ", "))
	}
	if len(a.Contraindications) > 0 {
		lines = append(lines, r.theme.Danger.Render("Contraindications: "+strings.Join(a.Contraindications, ", ")))
	}
	return r.panel("Artifacts", strings.Join(lines, "\n"))
}

// Risk renders the risk badge and summary.
func (r *Renderer) Risk(level risk.Level) string {
	badge := r.theme.Muted.Render(level.Label())
	if level != risk.None {
		badge = r.theme.Danger.Render(level.Label())
	}
	return badge + " " + r.theme.Muted.Render(level.Summary())
}

// Sidebar renders stages, risk, artifacts, timeline and summary.
func (r *Renderer) Sidebar(view *session.View) string {
	blocks := []string{
		r.theme.Muted.Render("Session " + view.SessionID),
		r.Stages(view.Stages),
		r.Risk(view.Risk),
		r.Artifact(view.Artifact),
		r.Timeline(view.Timeline),
	}
	if view.Summary != "" {
		blocks = append(blocks, r.panel("Memory", view.Summary))
	}
	return lipgloss.JoinVertical(lipgloss.Left, blocks...)
}

func (r *Renderer) panel(title, body string) string {
	content := r.theme.PanelTitle.Render(title) + "\n" + body
	return r.theme.Panel.Width(r.width - 2).Render(content)
}
