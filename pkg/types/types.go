// Package types defines the shared types used across all Datascout packages.
//
// These types form the lingua franca between the LLM providers, the tool
// host, and the orchestrator. They are intentionally minimal — each package
// defines its own domain types, but cross-cutting data structures live here
// to avoid circular imports.
package types

import "encoding/json"

// Role identifies the author of a conversation message.
type Role string

const (
	// RoleUser marks messages authored by the asking user, including the
	// tool-result messages the orchestrator appends on the user's behalf.
	RoleUser Role = "user"

	// RoleAssistant marks messages authored by the model.
	RoleAssistant Role = "assistant"
)

// PartKind discriminates the content part union.
type PartKind int

const (
	// PartText is plain text content.
	PartText PartKind = iota

	// PartToolUse is a model-issued request to invoke a named tool.
	PartToolUse

	// PartToolResult is the outcome of a dispatched tool use, fed back into
	// the conversation inside a user-role message.
	PartToolResult
)

// String returns the wire-level name of the part kind.
func (k PartKind) String() string {
	switch k {
	case PartText:
		return "text"
	case PartToolUse:
		return "tool_use"
	case PartToolResult:
		return "tool_result"
	default:
		return "unknown"
	}
}

// ContentPart is one element of a message's content. Exactly the fields for
// the active Kind are set; all others are zero. Consumers switch on Kind —
// there is no attribute probing.
type ContentPart struct {
	// Kind selects which variant this part is.
	Kind PartKind

	// Text is the text content when Kind is PartText.
	Text string

	// ToolUseID is the provider-assigned id of a tool-use request
	// (Kind == PartToolUse) or the id a result answers (Kind == PartToolResult).
	ToolUseID string

	// ToolName is the requested tool's name when Kind is PartToolUse.
	ToolName string

	// ToolInput is the JSON-encoded tool arguments when Kind is PartToolUse.
	ToolInput json.RawMessage

	// ToolContent is the JSON-encoded tool outcome (value or error object)
	// when Kind is PartToolResult.
	ToolContent string

	// ToolIsError marks a tool result that carries an error payload.
	ToolIsError bool
}

// TextPart builds a PartText content part.
func TextPart(text string) ContentPart {
	return ContentPart{Kind: PartText, Text: text}
}

// ToolUsePart builds a PartToolUse content part.
func ToolUsePart(id, name string, input json.RawMessage) ContentPart {
	return ContentPart{Kind: PartToolUse, ToolUseID: id, ToolName: name, ToolInput: input}
}

// ToolResultPart builds a PartToolResult content part answering the tool-use
// request with the given id.
func ToolResultPart(toolUseID, content string, isErr bool) ContentPart {
	return ContentPart{Kind: PartToolResult, ToolUseID: toolUseID, ToolContent: content, ToolIsError: isErr}
}

// Message is a single message in a conversation: a role plus an ordered
// sequence of content parts. Part order is significant and must be preserved
// exactly — it is the model's context.
type Message struct {
	Role  Role
	Parts []ContentPart
}

// UserText builds a user message containing a single text part.
func UserText(text string) Message {
	return Message{Role: RoleUser, Parts: []ContentPart{TextPart(text)}}
}

// ToolDefinition describes a tool that can be offered to an LLM.
type ToolDefinition struct {
	// Name is the tool's unique identifier.
	Name string

	// Description explains what the tool does (included in LLM prompts).
	Description string

	// Parameters is the JSON Schema describing the tool's input parameters.
	// It is transmitted to the model verbatim and never validated locally.
	Parameters map[string]any
}

// ModelCapabilities describes what an LLM model supports.
type ModelCapabilities struct {
	// ContextWindow is the maximum token count for input + output.
	ContextWindow int

	// MaxOutputTokens is the maximum tokens the model can generate in one completion.
	MaxOutputTokens int

	// SupportsToolCalling indicates native function/tool calling support.
	SupportsToolCalling bool

	// SupportsStreaming indicates the model supports streaming completions.
	SupportsStreaming bool
}
