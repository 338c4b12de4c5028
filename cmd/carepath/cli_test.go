package carepath

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jessevdk/go-flags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"

	"github.com/cenyuzhangms/MAFCarepath-v2/client/controller"
	"github.com/cenyuzhangms/MAFCarepath-v2/client/session"
)

func TestChatCmd_Flags_DataDriven(t *testing.T) {
	type testCase struct {
		name    string
		args    []string
		expect  ChatCmd
		wantErr bool
	}

	cases := []testCase{
		{
			name:   "defaults",
			args:   []string{},
			expect: ChatCmd{Timeout: 120, Width: 100},
		},
		{
			name:   "single turn on resumed session",
			args:   []string{"-q", "chest pain", "--session", "s-1", "--pattern", "handoff", "--log", "trace.jsonl"},
			expect: ChatCmd{Query: "chest pain", SessionID: "s-1", Pattern: "handoff", Log: "trace.jsonl", Timeout: 120, Width: 100},
		},
		{
			name:   "latest with token",
			args:   []string{"--latest", "--token", "tok", "--verbose", "-t", "5"},
			expect: ChatCmd{Latest: true, Token: "tok", Verbose: true, Timeout: 5, Width: 100},
		},
		{
			name:    "unknown flag",
			args:    []string{"--expose-mcp"},
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cmd := &ChatCmd{}
			parser := flags.NewParser(cmd, flags.HelpFlag|flags.PassDoubleDash)
			_, err := parser.ParseArgs(tc.args)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.EqualValues(t, nil, err)
			assert.EqualValues(t, tc.expect, *cmd)
		})
	}
}

func TestExtractConfigPath(t *testing.T) {
	type testCase struct {
		name   string
		args   []string
		expect string
	}
	cases := []testCase{
		{name: "short", args: []string{"chat", "-f", "a.yaml"}, expect: "a.yaml"},
		{name: "long", args: []string{"--config", "b.jsonc", "list"}, expect: "b.jsonc"},
		{name: "inline", args: []string{"show", "--config=s3://bucket/c.yaml"}, expect: "s3://bucket/c.yaml"},
		{name: "dangling", args: []string{"chat", "-f"}, expect: ""},
		{name: "absent", args: []string{"chat"}, expect: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.EqualValues(t, tc.expect, extractConfigPath(tc.args))
		})
	}
}

func TestOptions_Init(t *testing.T) {
	type testCase struct {
		name   string
		first  string
		expect func(o *Options) bool
	}
	cases := []testCase{
		{name: "chat", first: "chat", expect: func(o *Options) bool { return o.Chat != nil && o.Export == nil }},
		{name: "list", first: "list", expect: func(o *Options) bool { return o.List != nil }},
		{name: "show", first: "show", expect: func(o *Options) bool { return o.Show != nil }},
		{name: "export", first: "export", expect: func(o *Options) bool { return o.Export != nil && o.Chat == nil }},
		{name: "version", first: "version", expect: func(o *Options) bool { return o.Ver != nil }},
		{name: "flag first", first: "-f", expect: func(o *Options) bool { return o.Chat == nil && o.List == nil }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts := &Options{}
			opts.Init(tc.first)
			assert.True(t, tc.expect(opts))
		})
	}
}

func TestWriteExport(t *testing.T) {
	t.Setenv("CAREPATH_WORKSPACE", t.TempDir())
	doc := &session.Export{
		SessionID:    "s-1",
		Conversation: []session.Message{{Role: session.RoleUser, Content: "hi"}},
		Agents:       map[string]*session.ExportAgent{"triage": {Name: "Triage", Tokens: []string{"a"}, Complete: true}},
	}
	explicit := filepath.Join(t.TempDir(), "out.json")

	type testCase struct {
		name   string
		dest   string
		expect string
	}
	cases := []testCase{
		{name: "explicit", dest: explicit, expect: explicit},
		{name: "workspace default", dest: "", expect: filepath.Join(os.Getenv("CAREPATH_WORKSPACE"), "exports", "s-1.json")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := writeExport(context.Background(), afs.New(), doc, tc.dest)
			require.NoError(t, err)
			assert.EqualValues(t, tc.expect, got)
			data, err := os.ReadFile(got)
			require.NoError(t, err)
			actual := &session.Export{}
			require.NoError(t, json.Unmarshal(data, actual))
			assert.EqualValues(t, "s-1", actual.SessionID)
			assert.EqualValues(t, []string{"a"}, actual.Agents["triage"].Tokens)
		})
	}
}

func TestPrinter_Incremental(t *testing.T) {
	buf := &bytes.Buffer{}
	p := newPrinter(buf, 200)

	view := &session.View{
		SessionID: "s-1",
		Transcript: []session.Message{
			{Role: session.RoleUser, Content: "hello"},
		},
	}
	p.OnUpdate(view, session.ChangeTranscript)
	assert.NotContains(t, buf.String(), "hello")
	assert.Len(t, p.replies, 0)

	view.Transcript = append(view.Transcript, session.Message{Role: session.RoleAssistant, Content: "all clear"})
	view.Timeline = []session.TimelineEntry{{Kind: "info", Content: "routing"}}
	p.OnUpdate(view, session.ChangeTranscript|session.ChangeTimeline)
	assert.Contains(t, buf.String(), "all clear")
	assert.Contains(t, buf.String(), "[info] routing")
	assert.Len(t, p.replies, 1)

	buf.Reset()
	p.OnUpdate(view, session.ChangeTranscript|session.ChangeTimeline)
	assert.EqualValues(t, "", strings.TrimSpace(buf.String()))

	p.OnNotice(controller.Notice{Kind: controller.NoticeConnected, Message: "Connected."})
	assert.Len(t, p.opened, 1)
	assert.Contains(t, buf.String(), "Connected.")
}

func TestPrinter_ReplaySignalsNoReply(t *testing.T) {
	type testCase struct {
		name       string
		change     session.Change
		expReplies int
	}
	cases := []testCase{
		{name: "hydrated history", change: session.ChangeAll, expReplies: 0},
		{name: "live reply", change: session.ChangeTranscript | session.ChangeTyping, expReplies: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			p := newPrinter(buf, 200)
			view := &session.View{
				SessionID: "s-old",
				Transcript: []session.Message{
					{Role: session.RoleUser, Content: "earlier question"},
					{Role: session.RoleAssistant, Content: "old answer"},
				},
			}
			p.OnUpdate(view, tc.change)
			assert.Contains(t, buf.String(), "old answer")
			assert.Len(t, p.replies, tc.expReplies)
		})
	}
}

func TestPrinter_DiscardReplies(t *testing.T) {
	p := newPrinter(&bytes.Buffer{}, 200)
	view := &session.View{SessionID: "s-1"}
	for _, content := range []string{"first", "second"} {
		view.Transcript = append(view.Transcript, session.Message{Role: session.RoleAssistant, Content: content})
		p.OnUpdate(view, session.ChangeTranscript)
	}
	assert.Len(t, p.replies, 2)
	p.discardReplies()
	assert.Len(t, p.replies, 0)

	view.Transcript = append(view.Transcript, session.Message{Role: session.RoleAssistant, Content: "fresh"})
	p.OnUpdate(view, session.ChangeTranscript)
	assert.Len(t, p.replies, 1)
}
