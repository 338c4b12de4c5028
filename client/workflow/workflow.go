// Package workflow holds the static description of the clinical workflow:
// its five ordered stages and the orchestration patterns a session can
// request.
package workflow

import (
	"fmt"
	"strings"
)

// Stage identifiers, in workflow order.
const (
	PatientCompanion  = "patient_companion"
	ClinicalTriage    = "clinical_triage"
	DiagnosticsOrders = "diagnostics_orders"
	CoveragePriorAuth = "coverage_prior_auth"
	CareCoordination  = "care_coordination"
)

// ArtifactProducer is the stage whose final message carries the SBAR note
// and order bundle.
const ArtifactProducer = DiagnosticsOrders

// StageInfo is display metadata for one stage.
type StageInfo struct {
	ID       string
	Label    string
	Subtitle string
	Icon     string
	Color    string
}

var stages = []StageInfo{
	{ID: PatientCompanion, Label: "Patient Companion", Subtitle: "Intake + check-ins", Icon: "PC", Color: "#2563eb"},
	{ID: ClinicalTriage, Label: "Clinical Triage", Subtitle: "Urgency + signoff", Icon: "CT", Color: "#0f766e"},
	{ID: DiagnosticsOrders, Label: "Diagnostics & Orders", Subtitle: "SBAR + orders", Icon: "DO", Color: "#dc2626"},
	{ID: CoveragePriorAuth, Label: "Coverage & Prior Auth", Subtitle: "Payer constraints", Icon: "PA", Color: "#16a34a"},
	{ID: CareCoordination, Label: "Care Coordination", Subtitle: "Scheduling + monitoring", Icon: "CC", Color: "#1d4ed8"},
}

// Stages returns the workflow stages in order.
func Stages() []StageInfo {
	out := make([]StageInfo, len(stages))
	copy(out, stages)
	return out
}

// Lookup returns metadata for id. Unknown ids get a neutral placeholder.
func Lookup(id string) (StageInfo, bool) {
	for _, s := range stages {
		if s.ID == id {
			return s, true
		}
	}
	return StageInfo{ID: id, Label: id, Icon: "MG", Color: "#64748b"}, false
}

// Pattern selects how the orchestrator schedules stages for a turn.
type Pattern string

const (
	Sequential  Pattern = "sequential"
	FanoutFanin Pattern = "fanout_fanin"
	Handoff     Pattern = "handoff"
)

// DefaultPattern is used when nothing was selected.
const DefaultPattern = Sequential

// ParsePattern validates a pattern name; blank yields DefaultPattern.
func ParsePattern(v string) (Pattern, error) {
	switch p := Pattern(strings.ToLower(strings.TrimSpace(v))); p {
	case "":
		return DefaultPattern, nil
	case Sequential, FanoutFanin, Handoff:
		return p, nil
	default:
		return "", fmt.Errorf("unknown pattern %q (expected sequential|fanout_fanin|handoff)", v)
	}
}

// Legend describes the pattern's flow for display.
func (p Pattern) Legend() string {
	switch p {
	case FanoutFanin:
		return "Fan-out runs diagnostics, coverage, and coordination in parallel, then fan-in refines the final plan."
	case Handoff:
		return "Review loop: Triage re-checks urgency after orders. Addendum loop: Coverage asks Diagnostics for docs. Follow-up: Coordination returns to Patient Companion."
	default:
		return "Stages run one after another."
	}
}
