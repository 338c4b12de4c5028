package stage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cenyuzhangms/MAFCarepath-v2/client/artifact"
	"github.com/cenyuzhangms/MAFCarepath-v2/client/risk"
)

func TestStore_StartThenComplete(t *testing.T) {
	type testCase struct {
		name      string
		id        string
		agentName string
		final     string
		expName   string
	}
	cases := []testCase{
		{name: "named", id: "clinical_triage", agentName: "Clinical Triage", final: "ESI 2", expName: "Clinical Triage"},
		{name: "unnamed falls back to id", id: "care_coordination", final: "done", expName: "care_coordination"},
		{name: "empty final text", id: "patient_companion", agentName: "Companion", final: "", expName: "Companion"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := New()
			s.Start(tc.id, tc.agentName)
			assert.EqualValues(t, Active, s.Status(tc.id))
			s.Complete(tc.id, tc.final)

			assert.False(t, s.IsActive(tc.id))
			assert.EqualValues(t, Complete, s.Status(tc.id))
			st, ok := s.Stage(tc.id)
			require.True(t, ok)
			assert.True(t, st.Complete)
			assert.EqualValues(t, tc.final, st.FinalMessage)
			assert.EqualValues(t, tc.expName, s.Name(tc.id))
		})
	}
}

func TestStore_TokenBeforeStart(t *testing.T) {
	s := New()
	assert.False(t, s.AppendToken("clinical_triage", "ignored"))
	_, ok := s.Stage("clinical_triage")
	assert.False(t, ok)
	assert.EqualValues(t, Pending, s.Status("clinical_triage"))

	s.Start("clinical_triage", "")
	assert.True(t, s.AppendToken("clinical_triage", "a"))
	assert.True(t, s.AppendToken("clinical_triage", "b"))
	assert.EqualValues(t, "ab", s.Text("clinical_triage"))
}

func TestStore_ActiveOrder(t *testing.T) {
	s := New()
	s.Start("clinical_triage", "")
	s.Start("diagnostics_orders", "")
	s.Start("clinical_triage", "")
	assert.EqualValues(t, []string{"clinical_triage", "diagnostics_orders"}, s.Active())

	s.Complete("clinical_triage", "x")
	assert.EqualValues(t, []string{"diagnostics_orders"}, s.Active())

	// restart in a later turn takes priority over the earlier completion
	s.Start("clinical_triage", "")
	assert.EqualValues(t, Active, s.Status("clinical_triage"))
}

func TestStore_CompleteWithoutStart(t *testing.T) {
	s := New()
	s.Complete("coverage_prior_auth", "approved")
	s.Complete("coverage_prior_auth", "denied")
	st, ok := s.Stage("coverage_prior_auth")
	require.True(t, ok)
	assert.EqualValues(t, "denied", st.FinalMessage)
	assert.EqualValues(t, []string{"coverage_prior_auth"}, s.Known())
}

func TestStore_Reset(t *testing.T) {
	s := New()
	s.Start("clinical_triage", "")
	s.Start("diagnostics_orders", "")
	s.Complete("clinical_triage", "high acuity")
	assert.True(t, s.Escalate("high acuity"))
	s.SetArtifact(&artifact.Artifact{SBARNote: "x"})

	s.Reset()
	assert.Empty(t, s.Active())
	assert.Empty(t, s.Known())
	assert.EqualValues(t, Pending, s.Status("clinical_triage"))
	assert.Nil(t, s.Artifact())
	assert.EqualValues(t, risk.None, s.Risk())
}

func TestStore_Escalate(t *testing.T) {
	s := New()
	assert.False(t, s.Escalate("routine"))
	assert.True(t, s.Escalate("urgent"))
	assert.False(t, s.Escalate("urgent again"))
	assert.True(t, s.Escalate("high"))
	assert.False(t, s.Escalate("nothing"))
	assert.EqualValues(t, risk.High, s.Risk())
}

func TestStage_Preview(t *testing.T) {
	type testCase struct {
		name     string
		final    string
		expected string
	}
	cases := []testCase{
		{name: "empty", final: "", expected: ""},
		{name: "heading and fence", final: "### Summary\nStable ```json\n{\"a\":1}\n``` vitals", expected: "Summary\nStable  vitals"},
		{name: "json punctuation", final: `{"labs":["CBC"]}`, expected: `"labs":"CBC"`},
		{name: "truncated", final: strings.Repeat("a", 130), expected: strings.Repeat("a", 120) + "..."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := &Stage{FinalMessage: tc.final}
			assert.EqualValues(t, tc.expected, st.Preview())
		})
	}
}

func TestStatus_Label(t *testing.T) {
	assert.EqualValues(t, "Running", Active.Label())
	assert.EqualValues(t, "Complete", Complete.Label())
	assert.EqualValues(t, "Idle", Pending.Label())
}
