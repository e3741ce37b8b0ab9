package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/glimt/datascout/internal/mcp"
	mcpmock "github.com/glimt/datascout/internal/mcp/mock"
	"github.com/glimt/datascout/pkg/provider/llm"
	llmmock "github.com/glimt/datascout/pkg/provider/llm/mock"
	"github.com/glimt/datascout/pkg/types"
)

func textResponse(texts ...string) *llm.CompletionResponse {
	resp := &llm.CompletionResponse{}
	for _, t := range texts {
		resp.Parts = append(resp.Parts, types.TextPart(t))
	}
	return resp
}

func toolUseResponse(id, name, args string) *llm.CompletionResponse {
	return &llm.CompletionResponse{
		Parts: []types.ContentPart{
			types.ToolUsePart(id, name, json.RawMessage(args)),
		},
	}
}

func question(q string) []types.Message {
	return []types.Message{types.UserText(q)}
}

func TestRunReturnsFinalTextWithoutTools(t *testing.T) {
	t.Parallel()

	provider := &llmmock.Provider{
		Script: []llmmock.Turn{{Response: textResponse("The answer is 42.")}},
	}
	host := &mcpmock.Host{}
	o := New(provider, host)

	got, err := o.Run(context.Background(), question("what is the answer?"), "you are an analyst", 5)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got != "The answer is 42." {
		t.Errorf("Run() = %q, want the model text", got)
	}
	if len(provider.CompleteCalls) != 1 {
		t.Errorf("model calls = %d, want 1", len(provider.CompleteCalls))
	}
	if host.CallCount("ExecuteTool") != 0 {
		t.Errorf("tool calls = %d, want 0", host.CallCount("ExecuteTool"))
	}
}

func TestRunJoinsMultipleTextParts(t *testing.T) {
	t.Parallel()

	provider := &llmmock.Provider{
		Script: []llmmock.Turn{{Response: textResponse("first", "second")}},
	}
	o := New(provider, &mcpmock.Host{})

	got, err := o.Run(context.Background(), question("q"), "", 5)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got != "first\nsecond" {
		t.Errorf("Run() = %q, want text parts joined with newline", got)
	}
}

func TestRunDispatchesToolThenReturnsFinalText(t *testing.T) {
	t.Parallel()

	provider := &llmmock.Provider{
		Script: []llmmock.Turn{
			{Response: &llm.CompletionResponse{Parts: []types.ContentPart{
				types.TextPart("Let me check the databases."),
				types.ToolUsePart("tu-1", "glue_list_databases", json.RawMessage(`{"max_databases":10}`)),
			}}},
			{Response: textResponse("There are two databases: sales and marketing.")},
		},
	}
	host := &mcpmock.Host{
		ExecuteToolResult: &mcp.ToolResult{Content: `{"databases":["sales","marketing"],"truncated":false}`},
	}
	o := New(provider, host)

	got, err := o.Run(context.Background(), question("which databases exist?"), "prompt", 5)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got != "There are two databases: sales and marketing." {
		t.Errorf("Run() = %q, want the final model text", got)
	}
	if host.CallCount("ExecuteTool") != 1 {
		t.Fatalf("tool calls = %d, want 1", host.CallCount("ExecuteTool"))
	}

	// The dispatched call carries the tool name and raw JSON input.
	for _, call := range host.Calls() {
		if call.Method != "ExecuteTool" {
			continue
		}
		if call.Args[0] != "glue_list_databases" {
			t.Errorf("tool name = %v, want glue_list_databases", call.Args[0])
		}
		if call.Args[1] != `{"max_databases":10}` {
			t.Errorf("tool args = %v, want the model input verbatim", call.Args[1])
		}
	}

	// The second model call sees the assistant message plus the tool result.
	second := provider.CompleteCalls[1].Req
	if len(second.Messages) != 3 {
		t.Fatalf("second call message count = %d, want 3 (user, assistant, tool result)", len(second.Messages))
	}
	asst := second.Messages[1]
	if asst.Role != types.RoleAssistant || len(asst.Parts) != 2 {
		t.Errorf("assistant message = %+v, want the full recorded response", asst)
	}
	resultMsg := second.Messages[2]
	if resultMsg.Role != types.RoleUser || len(resultMsg.Parts) != 1 {
		t.Fatalf("tool result message = %+v, want one user-role tool result", resultMsg)
	}
	part := resultMsg.Parts[0]
	if part.Kind != types.PartToolResult || part.ToolUseID != "tu-1" {
		t.Errorf("tool result part = %+v, want tool_use_id tu-1", part)
	}
	if part.ToolIsError {
		t.Error("ToolIsError = true, want false for a successful tool")
	}
	if !strings.Contains(part.ToolContent, `"databases"`) {
		t.Errorf("ToolContent = %q, want the normalised tool output", part.ToolContent)
	}
}

func TestRunAnswersEveryToolUsePart(t *testing.T) {
	t.Parallel()

	provider := &llmmock.Provider{
		Script: []llmmock.Turn{
			{Response: &llm.CompletionResponse{Parts: []types.ContentPart{
				types.ToolUsePart("tu-1", "glue_list_databases", json.RawMessage(`{}`)),
				types.ToolUsePart("tu-2", "glue_list_tables", json.RawMessage(`{"database":"sales"}`)),
			}}},
			{Response: textResponse("done")},
		},
	}
	host := &mcpmock.Host{
		ExecuteToolResult: &mcp.ToolResult{Content: `{"databases":[]}`},
	}
	o := New(provider, host)

	if _, err := o.Run(context.Background(), question("q"), "", 5); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// Only the first tool use is dispatched.
	if host.CallCount("ExecuteTool") != 1 {
		t.Errorf("tool calls = %d, want 1", host.CallCount("ExecuteTool"))
	}

	// Both tool uses receive a result so the conversation stays well-formed.
	second := provider.CompleteCalls[1].Req
	resultMsg := second.Messages[len(second.Messages)-1]
	if len(resultMsg.Parts) != 2 {
		t.Fatalf("tool result parts = %d, want 2 (one real, one synthetic)", len(resultMsg.Parts))
	}
	if resultMsg.Parts[0].ToolUseID != "tu-1" || resultMsg.Parts[0].ToolIsError {
		t.Errorf("first result = %+v, want successful result for tu-1", resultMsg.Parts[0])
	}
	if resultMsg.Parts[1].ToolUseID != "tu-2" || !resultMsg.Parts[1].ToolIsError {
		t.Errorf("second result = %+v, want synthetic error result for tu-2", resultMsg.Parts[1])
	}
}

func TestRunToolResultCountMatchesToolUseCount(t *testing.T) {
	t.Parallel()

	provider := &llmmock.Provider{
		Script: []llmmock.Turn{
			{Response: toolUseResponse("tu-1", "glue_list_databases", `{}`)},
			{Response: toolUseResponse("tu-2", "glue_list_tables", `{"database":"sales"}`)},
			{Response: textResponse("final")},
		},
	}
	host := &mcpmock.Host{ExecuteToolResult: &mcp.ToolResult{Content: `{}`}}
	o := New(provider, host)

	if _, err := o.Run(context.Background(), question("q"), "", 5); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	last := provider.CompleteCalls[len(provider.CompleteCalls)-1].Req
	uses, results := 0, 0
	for _, m := range last.Messages {
		for _, p := range m.Parts {
			switch p.Kind {
			case types.PartToolUse:
				uses++
			case types.PartToolResult:
				results++
			}
		}
	}
	if uses != results {
		t.Errorf("tool uses = %d, tool results = %d, want equal", uses, results)
	}
	if uses != 2 {
		t.Errorf("tool uses = %d, want 2", uses)
	}
}

func TestRunSalvagesOnRateLimitWithoutPriorText(t *testing.T) {
	t.Parallel()

	provider := &llmmock.Provider{
		Script: []llmmock.Turn{{Err: llm.ErrRateLimited}},
	}
	o := New(provider, &mcpmock.Host{})

	got, err := o.Run(context.Background(), question("q"), "", 5)
	if err != nil {
		t.Fatalf("Run() error = %v, want rate limit absorbed", err)
	}
	if got != apologyText {
		t.Errorf("Run() = %q, want the fixed apology", got)
	}
}

func TestRunSalvagesPriorAssistantText(t *testing.T) {
	t.Parallel()

	provider := &llmmock.Provider{
		Script: []llmmock.Turn{
			{Response: &llm.CompletionResponse{Parts: []types.ContentPart{
				types.TextPart("Checking the catalog first."),
				types.ToolUsePart("tu-1", "glue_list_databases", json.RawMessage(`{}`)),
			}}},
			{Err: errors.New("429 too many requests")},
		},
	}
	host := &mcpmock.Host{ExecuteToolResult: &mcp.ToolResult{Content: `{}`}}
	o := New(provider, host)

	got, err := o.Run(context.Background(), question("q"), "", 5)
	if err != nil {
		t.Fatalf("Run() error = %v, want rate limit absorbed", err)
	}
	if got != "Checking the catalog first." {
		t.Errorf("Run() = %q, want the salvaged assistant text", got)
	}
}

func TestRunPropagatesFatalModelError(t *testing.T) {
	t.Parallel()

	fatal := errors.New("connection reset by peer")
	provider := &llmmock.Provider{Script: []llmmock.Turn{{Err: fatal}}}
	o := New(provider, &mcpmock.Host{})

	_, err := o.Run(context.Background(), question("q"), "", 5)
	if !errors.Is(err, fatal) {
		t.Fatalf("Run() error = %v, want the fatal model error propagated", err)
	}
}

func TestRunAbsorbsToolHostFailure(t *testing.T) {
	t.Parallel()

	provider := &llmmock.Provider{
		Script: []llmmock.Turn{
			{Response: toolUseResponse("tu-1", "athena_query", `{"sql":"SELECT 1"}`)},
			{Response: textResponse("recovered")},
		},
	}
	host := &mcpmock.Host{ExecuteToolErr: errors.New("transport broken")}
	o := New(provider, host)

	got, err := o.Run(context.Background(), question("q"), "", 5)
	if err != nil {
		t.Fatalf("Run() error = %v, want tool failure absorbed", err)
	}
	if got != "recovered" {
		t.Errorf("Run() = %q, want the loop to continue past the tool failure", got)
	}

	second := provider.CompleteCalls[1].Req
	part := second.Messages[len(second.Messages)-1].Parts[0]
	if !part.ToolIsError {
		t.Error("ToolIsError = false, want true for a failed dispatch")
	}
	if !strings.Contains(part.ToolContent, "transport broken") {
		t.Errorf("ToolContent = %q, want the error payload", part.ToolContent)
	}
}

func TestRunExhaustionTriggersSummarisationCall(t *testing.T) {
	t.Parallel()

	provider := &llmmock.Provider{
		Script: []llmmock.Turn{
			{Response: toolUseResponse("tu-1", "glue_list_databases", `{}`)},
			{Response: toolUseResponse("tu-2", "glue_list_databases", `{}`)},
			{Response: toolUseResponse("tu-3", "glue_list_databases", `{}`)},
			{Response: textResponse("Summary: found sales and marketing databases.")},
		},
	}
	host := &mcpmock.Host{
		ToolsResult:       []types.ToolDefinition{{Name: "glue_list_databases"}},
		ExecuteToolResult: &mcp.ToolResult{Content: `{"databases":["sales","marketing"]}`},
	}
	o := New(provider, host)

	got, err := o.Run(context.Background(), question("q"), "prompt", 3)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got != "Summary: found sales and marketing databases." {
		t.Errorf("Run() = %q, want the summarisation text", got)
	}

	// maxIterations + 1 model calls, the last one without tools.
	if len(provider.CompleteCalls) != 4 {
		t.Fatalf("model calls = %d, want 4", len(provider.CompleteCalls))
	}
	last := provider.CompleteCalls[3].Req
	if len(last.Tools) != 0 {
		t.Errorf("summarisation call offered %d tools, want 0", len(last.Tools))
	}
	for i, call := range provider.CompleteCalls[:3] {
		if len(call.Req.Tools) != 1 {
			t.Errorf("iteration call %d offered %d tools, want 1", i+1, len(call.Req.Tools))
		}
	}
}

func TestRunNeverExceedsIterationBudget(t *testing.T) {
	t.Parallel()

	// Provider always requests a tool; summarisation also fails.
	provider := &llmmock.Provider{
		CompleteResponse: toolUseResponse("tu", "glue_list_databases", `{}`),
	}
	host := &mcpmock.Host{ExecuteToolResult: &mcp.ToolResult{Content: `{}`}}
	o := New(provider, host)

	got, err := o.Run(context.Background(), question("q"), "", 4)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got == "" {
		t.Error("Run() returned empty string, want always non-empty")
	}
	if calls := len(provider.CompleteCalls); calls > 5 {
		t.Errorf("model calls = %d, want at most maxIterations+1 = 5", calls)
	}
}

func TestRunFallsBackWhenSummarisationFails(t *testing.T) {
	t.Parallel()

	provider := &llmmock.Provider{
		Script: []llmmock.Turn{
			{Response: toolUseResponse("tu-1", "glue_list_databases", `{}`)},
			{Err: errors.New("rate limit exceeded")},
		},
	}
	host := &mcpmock.Host{ExecuteToolResult: &mcp.ToolResult{Content: `{}`}}
	o := New(provider, host)

	got, err := o.Run(context.Background(), question("q"), "", 1)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got != fallbackText {
		t.Errorf("Run() = %q, want the fixed fallback sentence", got)
	}
}

func TestRunNormalisesWrappedToolOutput(t *testing.T) {
	t.Parallel()

	provider := &llmmock.Provider{
		Script: []llmmock.Turn{
			{Response: toolUseResponse("tu-1", "athena_results", `{"query_execution_id":"qid"}`)},
			{Response: textResponse("done")},
		},
	}
	host := &mcpmock.Host{
		ExecuteToolResult: &mcp.ToolResult{Content: `{"text": "{\"columns\":[\"n\"],\"rows\":[]}"}`},
	}
	o := New(provider, host)

	if _, err := o.Run(context.Background(), question("q"), "", 5); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	second := provider.CompleteCalls[1].Req
	part := second.Messages[len(second.Messages)-1].Parts[0]
	if part.ToolContent != `{"columns":["n"],"rows":[]}` {
		t.Errorf("ToolContent = %q, want the unwrapped inner JSON", part.ToolContent)
	}
}

func TestRunFreshConversationDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	provider := &llmmock.Provider{
		Script: []llmmock.Turn{
			{Response: toolUseResponse("tu-1", "glue_list_databases", `{}`)},
			{Response: textResponse("done")},
		},
	}
	host := &mcpmock.Host{ExecuteToolResult: &mcp.ToolResult{Content: `{}`}}
	o := New(provider, host)

	initial := question("q")
	if _, err := o.Run(context.Background(), initial, "", 5); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(initial) != 1 {
		t.Errorf("len(initial) = %d after Run, want input left untouched", len(initial))
	}
}
