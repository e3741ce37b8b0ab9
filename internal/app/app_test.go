package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/glimt/datascout/internal/config"
	"github.com/glimt/datascout/internal/discord/commands"
	historymock "github.com/glimt/datascout/internal/history/mock"
	"github.com/glimt/datascout/internal/mcp"
	mcpmock "github.com/glimt/datascout/internal/mcp/mock"
	"github.com/glimt/datascout/pkg/provider/llm"
	llmmock "github.com/glimt/datascout/pkg/provider/llm/mock"
	"github.com/glimt/datascout/pkg/types"
)

func textTurn(text string) llmmock.Turn {
	return llmmock.Turn{Response: &llm.CompletionResponse{
		Parts: []types.ContentPart{types.TextPart(text)},
	}}
}

func toolTurn(id, name, input string) llmmock.Turn {
	return llmmock.Turn{Response: &llm.CompletionResponse{
		Parts: []types.ContentPart{types.ToolUsePart(id, name, []byte(input))},
	}}
}

func newTestApp(t *testing.T, provider llm.Provider, host mcp.Host, store *historymock.Store) *App {
	t.Helper()
	a, err := New(provider, host, store, config.AskConfig{MaxIterations: 5})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func TestAsk_DirectAnswer(t *testing.T) {
	t.Parallel()

	provider := &llmmock.Provider{Script: []llmmock.Turn{textTurn("42 orders yesterday.")}}
	store := &historymock.Store{}
	a := newTestApp(t, provider, &mcpmock.Host{}, store)

	answer, err := a.Ask(context.Background(), commands.AskRequest{
		Question: "how many orders yesterday?",
		AskerID:  "u1",
	})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer != "42 orders yesterday." {
		t.Errorf("answer = %q", answer)
	}

	if len(store.Added) != 1 {
		t.Fatalf("history records = %d, want 1", len(store.Added))
	}
	rec := store.Added[0]
	if rec.Status != "ok" || rec.Command != "ask-data" {
		t.Errorf("record = %+v, want ok ask-data", rec)
	}
	if rec.ModelCalls != 1 || rec.ToolCalls != 0 {
		t.Errorf("counts = %d model / %d tool, want 1/0", rec.ModelCalls, rec.ToolCalls)
	}
	if rec.Question != "how many orders yesterday?" || rec.Answer != answer {
		t.Error("record question/answer mismatch")
	}
}

func TestAsk_ToolRoundTrip(t *testing.T) {
	t.Parallel()

	provider := &llmmock.Provider{Script: []llmmock.Turn{
		toolTurn("tu1", "glue_list_databases", "{}"),
		textTurn("One database: sales."),
	}}
	host := &mcpmock.Host{
		ExecuteToolResult: &mcp.ToolResult{Content: `{"databases":["sales"]}`},
	}
	store := &historymock.Store{}
	a := newTestApp(t, provider, host, store)

	answer, err := a.Ask(context.Background(), commands.AskRequest{Question: "what data do we have?"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer != "One database: sales." {
		t.Errorf("answer = %q", answer)
	}
	if got := host.CallCount("ExecuteTool"); got != 1 {
		t.Errorf("ExecuteTool calls = %d, want 1", got)
	}
	if rec := store.Added[0]; rec.ModelCalls != 2 || rec.ToolCalls != 1 {
		t.Errorf("counts = %d model / %d tool, want 2/1", rec.ModelCalls, rec.ToolCalls)
	}
}

func TestAsk_ErrorRecordedInHistory(t *testing.T) {
	t.Parallel()

	provider := &llmmock.Provider{Script: []llmmock.Turn{
		{Err: context.DeadlineExceeded},
	}}
	store := &historymock.Store{}
	a := newTestApp(t, provider, &mcpmock.Host{}, store)

	_, err := a.Ask(context.Background(), commands.AskRequest{Question: "q"})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(store.Added) != 1 {
		t.Fatalf("history records = %d, want 1", len(store.Added))
	}
	if store.Added[0].Status != "error" {
		t.Errorf("status = %q, want error", store.Added[0].Status)
	}
}

func TestAsk_HistoryFailureDoesNotFailQuestion(t *testing.T) {
	t.Parallel()

	provider := &llmmock.Provider{Script: []llmmock.Turn{textTurn("done")}}
	store := &historymock.Store{AddErr: context.DeadlineExceeded}
	a := newTestApp(t, provider, &mcpmock.Host{}, store)

	answer, err := a.Ask(context.Background(), commands.AskRequest{Question: "q"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer != "done" {
		t.Errorf("answer = %q", answer)
	}
}

func TestAsk_FreshConversationPerQuestion(t *testing.T) {
	t.Parallel()

	provider := &llmmock.Provider{Script: []llmmock.Turn{
		textTurn("first"),
		textTurn("second"),
	}}
	a := newTestApp(t, provider, &mcpmock.Host{}, &historymock.Store{})

	if _, err := a.Ask(context.Background(), commands.AskRequest{Question: "one"}); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if _, err := a.Ask(context.Background(), commands.AskRequest{Question: "two"}); err != nil {
		t.Fatalf("Ask: %v", err)
	}

	// The second call must not carry the first question or answer.
	second := provider.CompleteCalls[1].Req
	if len(second.Messages) != 1 {
		t.Fatalf("second call carried %d messages, want 1", len(second.Messages))
	}
	if second.Messages[0].Parts[0].Text != "two" {
		t.Errorf("second question = %q, want two", second.Messages[0].Parts[0].Text)
	}
}

func TestAsk_SystemPromptCarriesDate(t *testing.T) {
	t.Parallel()

	provider := &llmmock.Provider{Script: []llmmock.Turn{textTurn("ok")}}
	a := newTestApp(t, provider, &mcpmock.Host{}, &historymock.Store{})

	if _, err := a.Ask(context.Background(), commands.AskRequest{Question: "q"}); err != nil {
		t.Fatalf("Ask: %v", err)
	}

	prompt := provider.CompleteCalls[0].Req.SystemPrompt
	today := time.Now().UTC().Format("2006-01-02")
	if !strings.Contains(prompt, "Today is "+today) {
		t.Errorf("system prompt missing today's date %s", today)
	}
	if !strings.Contains(prompt, "glue_list_databases") {
		t.Error("system prompt missing tool listing")
	}
}

func TestNew_InvalidTimezone(t *testing.T) {
	t.Parallel()

	_, err := New(&llmmock.Provider{}, &mcpmock.Host{}, nil, config.AskConfig{Timezone: "Mars/Olympus"})
	if err == nil {
		t.Fatal("expected error for invalid timezone")
	}
}

func TestApplyAsk(t *testing.T) {
	t.Parallel()

	a := newTestApp(t, &llmmock.Provider{}, &mcpmock.Host{}, &historymock.Store{})

	a.ApplyAsk(config.AskConfig{MaxIterations: 3, Timezone: "Europe/Istanbul"})

	ask, loc := a.askSettings()
	if ask.MaxIterations != 3 {
		t.Errorf("MaxIterations = %d, want 3", ask.MaxIterations)
	}
	if loc.String() != "Europe/Istanbul" {
		t.Errorf("location = %v, want Europe/Istanbul", loc)
	}

	// Invalid timezone keeps the old location but applies the other knobs.
	a.ApplyAsk(config.AskConfig{MaxIterations: 7, Timezone: "Nope/Nowhere"})
	ask, loc = a.askSettings()
	if ask.MaxIterations != 7 {
		t.Errorf("MaxIterations = %d, want 7", ask.MaxIterations)
	}
	if loc.String() != "Europe/Istanbul" {
		t.Errorf("location = %v, want Europe/Istanbul kept", loc)
	}
}

func TestBuildSystemPrompt(t *testing.T) {
	t.Parallel()

	ist, err := time.LoadLocation("Europe/Istanbul")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	// 23:30 UTC is already the next day in Istanbul.
	now := time.Date(2026, 8, 20, 23, 30, 0, 0, time.UTC)
	prompt := buildSystemPrompt(now, ist)
	if !strings.Contains(prompt, "Today is 2026-08-21") {
		t.Error("prompt should carry the date in the configured timezone")
	}

	prompt = buildSystemPrompt(now, time.UTC)
	if !strings.Contains(prompt, "Today is 2026-08-20") {
		t.Error("prompt should carry the UTC date")
	}
}
