// Package mcp defines the interface for a Model Context Protocol (MCP) host.
//
// The MCP host manages connections to one or more MCP servers plus a set of
// in-process builtin tools, maintains a catalogue of available tools, and
// executes tool calls on behalf of the orchestrator.
//
// Lifecycle:
//
//  1. Register builtin tools and call [Host.RegisterServer] for each external
//     MCP server to connect to.
//  2. Use [Host.Tools] to enumerate tool definitions for the model.
//  3. Use [Host.ExecuteTool] to run tools.
//  4. Call [Host.Close] to release all connections.
//
// All methods must be safe for concurrent use. Tool execution is strictly
// sequential: a host never has more than one tool call in flight, regardless
// of how many goroutines call ExecuteTool.
package mcp

import (
	"context"

	"github.com/glimt/datascout/pkg/types"
)

// ServerConfig describes how to connect to a single MCP server.
type ServerConfig struct {
	// Name is the human-readable identifier for this server.
	// Must be unique within a single [Host]. Used in log messages and errors.
	Name string

	// Transport specifies the connection mechanism.
	Transport Transport

	// Command is the executable path (and optional arguments) used when
	// Transport is [TransportStdio].
	// Example: "/usr/local/bin/mcp-server --config /etc/mcp.json"
	// Ignored for streamable-http transport.
	Command string

	// URL is the endpoint address used when Transport is
	// [TransportStreamableHTTP]. Ignored for stdio transport.
	URL string

	// Env holds additional environment variables injected into the server
	// process when Transport is [TransportStdio]. May be nil.
	Env map[string]string
}

// Host manages tool registration and execution.
//
// Implementations must be safe for concurrent use.
type Host interface {
	// RegisterServer connects to the MCP server described by cfg and imports
	// its tool catalogue into the host. If a server with the same Name is
	// already registered it is reconnected rather than duplicated.
	//
	// Returns an error if the transport cannot be established or the initial
	// tool listing request fails.
	RegisterServer(ctx context.Context, cfg ServerConfig) error

	// Tools returns the definitions of all registered tools, sorted by name.
	// Definitions are transmitted to the model verbatim; input schemas are
	// never validated locally.
	Tools() []types.ToolDefinition

	// ExecuteTool calls the named tool with JSON-encoded args and returns the
	// result. name must exactly match a [types.ToolDefinition.Name] returned
	// by [Host.Tools].
	//
	// args must be a valid JSON object string conforming to the tool's
	// Parameters schema. An empty object ("{}") is valid for parameter-less
	// tools.
	//
	// Calls are serialised: at most one tool invocation is in flight at any
	// time, and invocations reach the backing tools in the order ExecuteTool
	// acquires the dispatch slot.
	//
	// A non-nil *ToolResult is returned on success even when
	// [ToolResult.IsError] is true (application-level error). A Go error is
	// returned only on transport or protocol failure.
	ExecuteTool(ctx context.Context, name string, args string) (*ToolResult, error)

	// Stats returns per-tool call accounting, sorted by tool name.
	Stats() []ToolStats

	// Close shuts down all server connections and releases associated
	// resources. After Close returns the Host must not be used again.
	Close() error
}
