// Package orchestrator implements the tool-orchestration loop at the heart
// of Datascout: it interleaves model calls with tool invocations until the
// model produces a final answer or the iteration budget runs out.
//
// The loop is strictly sequential. One model call, then at most one tool
// dispatch, then the next model call; tool results are appended to the
// conversation as user-role tool-result parts so the model can react to
// them. The conversation is owned exclusively by one Run invocation and no
// state is carried across runs.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/glimt/datascout/internal/mcp"
	"github.com/glimt/datascout/pkg/provider/llm"
	"github.com/glimt/datascout/pkg/types"
)

// DefaultMaxIterations bounds the loop when the caller passes zero.
const DefaultMaxIterations = 10

// defaultMaxTokens caps the completion size of each model call.
const defaultMaxTokens = 4000

// apologyText is returned when the model host throttles the very first call
// and no partial answer exists to salvage.
const apologyText = "I encountered a rate limit while processing your request. Please try again in a moment."

// fallbackText is returned when the iteration budget is exhausted and no
// summary could be produced.
const fallbackText = "I've completed the data analysis. Please check the results above."

// skippedToolResult is the synthetic result recorded for tool-use parts
// beyond the first in a single response. Only the first tool use per turn is
// dispatched; the rest are answered so the conversation stays well-formed
// for the next model call.
const skippedToolResult = `{"error":"tool call skipped: only the first tool call per turn is executed, issue it again on your next turn"}`

// summaryPrompt asks the model for a best-effort answer once the iteration
// budget is exhausted but tool results were gathered.
const summaryPrompt = "Based on the database exploration and queries executed so far, please provide a " +
	"best-effort answer to my original question. Summarise:\n" +
	"1. What databases and tables were found\n" +
	"2. What data structure was discovered\n" +
	"3. Any successful query results\n" +
	"4. Any errors or challenges encountered\n" +
	"5. Recommended next steps\n\n" +
	"Please be specific about what was found."

// Recorder receives per-call measurements. Implementations must be safe for
// concurrent use.
type Recorder interface {
	// RecordModelCall is invoked after every model call with its duration.
	RecordModelCall(ctx context.Context, d time.Duration, err error)

	// RecordToolCall is invoked after every dispatched tool call.
	RecordToolCall(ctx context.Context, name string, d time.Duration, isError bool)
}

// Orchestrator drives one question through the model/tool loop.
// Construct with [New]; the zero value is not usable.
type Orchestrator struct {
	provider llm.Provider
	host     mcp.Host

	maxTokens   int
	temperature float64
	recorder    Recorder
	log         *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMaxTokens caps the completion size of each model call.
func WithMaxTokens(n int) Option {
	return func(o *Orchestrator) { o.maxTokens = n }
}

// WithTemperature sets the sampling temperature for model calls.
// Zero requests the provider default.
func WithTemperature(t float64) Option {
	return func(o *Orchestrator) { o.temperature = t }
}

// WithRecorder attaches a measurement recorder.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// New creates an Orchestrator that calls provider for completions and host
// for tool execution.
func New(provider llm.Provider, host mcp.Host, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		provider:  provider,
		host:      host,
		maxTokens: defaultMaxTokens,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes the orchestration loop and returns the final answer text.
//
// Each iteration submits the full conversation, the system prompt, and all
// tool definitions to the model. A response without tool-use parts is final:
// its text parts are concatenated and returned. Otherwise the first tool-use
// part is dispatched, its result appended, and the loop continues.
//
// Rate-limit failures are salvaged: any text the model produced in earlier
// iterations is returned, or a fixed apology when none exists. When the
// iteration budget runs out with at least one tool result gathered, one
// extra model call (without tools) asks for a best-effort summary. Run
// therefore issues at most maxIterations+1 model calls and always returns a
// non-empty string unless a non-salvageable model failure occurs.
func (o *Orchestrator) Run(ctx context.Context, initial []types.Message, systemPrompt string, maxIterations int) (string, error) {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}

	conv := slices.Clone(initial)
	toolDefs := o.host.Tools()
	o.log.Debug("starting orchestration", "messages", len(conv), "tools", len(toolDefs), "max_iterations", maxIterations)

	for i := 1; i <= maxIterations; i++ {
		o.log.Debug("orchestration iteration", "iteration", i, "messages", len(conv))

		resp, err := o.complete(ctx, llm.CompletionRequest{
			Messages:     conv,
			Tools:        toolDefs,
			SystemPrompt: systemPrompt,
			Temperature:  o.temperature,
			MaxTokens:    o.maxTokens,
		})
		if err != nil {
			if llm.IsRateLimit(err) {
				o.log.Warn("model host throttled, salvaging partial answer", "iteration", i)
				return salvage(conv), nil
			}
			return "", fmt.Errorf("orchestrator: model call: %w", err)
		}

		first := firstToolUse(resp.Parts)
		if first == nil {
			text := joinText(resp.Parts)
			if text == "" {
				o.log.Warn("final model response carried no text")
				return fallbackText, nil
			}
			return text, nil
		}

		// Record the full response, then answer every tool-use part: the
		// first with a real dispatch, the rest with a synthetic skip marker
		// so the conversation stays well-formed.
		conv = append(conv, types.Message{Role: types.RoleAssistant, Parts: resp.Parts})

		content, isErr := o.dispatch(ctx, *first)
		results := []types.ContentPart{types.ToolResultPart(first.ToolUseID, content, isErr)}
		for _, part := range trailingToolUses(resp.Parts, first.ToolUseID) {
			o.log.Warn("skipping extra tool use in same turn", "tool", part.ToolName)
			results = append(results, types.ToolResultPart(part.ToolUseID, skippedToolResult, true))
		}
		conv = append(conv, types.Message{Role: types.RoleUser, Parts: results})
	}

	o.log.Warn("iteration budget exhausted", "max_iterations", maxIterations)
	if !hasToolResult(conv) {
		return fallbackText, nil
	}

	// One extra call, no tools offered, asking for a best-effort summary of
	// everything gathered so far.
	conv = append(conv, types.UserText(summaryPrompt))
	resp, err := o.complete(ctx, llm.CompletionRequest{
		Messages:     conv,
		SystemPrompt: systemPrompt,
		Temperature:  o.temperature,
		MaxTokens:    o.maxTokens,
	})
	if err != nil {
		o.log.Error("summarisation call failed", "error", err)
		return fallbackText, nil
	}
	if text := joinText(resp.Parts); text != "" {
		return text, nil
	}
	return fallbackText, nil
}

// complete performs one model call with measurement recording.
func (o *Orchestrator) complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	start := time.Now()
	resp, err := o.provider.Complete(ctx, req)
	if o.recorder != nil {
		o.recorder.RecordModelCall(ctx, time.Since(start), err)
	}
	return resp, err
}

// dispatch executes one tool-use part and returns the JSON content for its
// tool-result part. Failures are absorbed: any error while contacting the
// tool host becomes an error payload the model can see and react to.
func (o *Orchestrator) dispatch(ctx context.Context, part types.ContentPart) (content string, isErr bool) {
	args := string(part.ToolInput)
	if args == "" {
		args = "{}"
	}
	o.log.Info("dispatching tool", "tool", part.ToolName)

	start := time.Now()
	result, err := o.host.ExecuteTool(ctx, part.ToolName, args)
	duration := time.Since(start)
	isErr = err != nil || result.IsError
	if o.recorder != nil {
		o.recorder.RecordToolCall(ctx, part.ToolName, duration, isErr)
	}

	if err != nil {
		o.log.Error("tool execution failed", "tool", part.ToolName, "error", err)
		payload, _ := json.Marshal(map[string]any{"error": err.Error()})
		return string(payload), true
	}

	o.log.Debug("tool finished", "tool", part.ToolName, "duration_ms", duration.Milliseconds(), "is_error", result.IsError)
	return NormalizeJSON(result.Content), result.IsError
}

// firstToolUse returns the first tool-use part, or nil when the response
// carries none.
func firstToolUse(parts []types.ContentPart) *types.ContentPart {
	for i := range parts {
		if parts[i].Kind == types.PartToolUse {
			return &parts[i]
		}
	}
	return nil
}

// trailingToolUses returns all tool-use parts except the one with firstID.
func trailingToolUses(parts []types.ContentPart, firstID string) []types.ContentPart {
	var out []types.ContentPart
	for _, p := range parts {
		if p.Kind == types.PartToolUse && p.ToolUseID != firstID {
			out = append(out, p)
		}
	}
	return out
}

// joinText concatenates all text parts with newlines.
func joinText(parts []types.ContentPart) string {
	var texts []string
	for _, p := range parts {
		if p.Kind == types.PartText && p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// salvage assembles a best-effort answer from text the model already
// produced in prior assistant messages. Returns the fixed apology when
// nothing was produced yet.
func salvage(conv []types.Message) string {
	var texts []string
	for _, m := range conv {
		if m.Role != types.RoleAssistant {
			continue
		}
		for _, p := range m.Parts {
			if p.Kind == types.PartText && p.Text != "" {
				texts = append(texts, p.Text)
			}
		}
	}
	if len(texts) == 0 {
		return apologyText
	}
	return strings.Join(texts, "\n")
}

// hasToolResult reports whether the conversation contains at least one
// tool-result part.
func hasToolResult(conv []types.Message) bool {
	for _, m := range conv {
		for _, p := range m.Parts {
			if p.Kind == types.PartToolResult {
				return true
			}
		}
	}
	return false
}
