// Package server implements the MCP (Model Context Protocol) server for the
// tattoo stencil pipeline.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Stateless:
//   - stencil_load: Decode and fit a photograph, report its size
//   - stencil_process: One synchronous pipeline run at a chosen tier
//   - stencil_curve_presets: List the named curve presets
//
// Editing sessions (one per source path):
//   - stencil_edit_curve: Insert, move, remove or reset draft curve points
//   - stencil_update_settings: Replace levels, opacity, mode or preset
//   - stencil_commit: Promote the draft and wait for a high-fidelity run
//   - stencil_export: Write the latest artifact to disk
//
// Curve edits only schedule low-fidelity previews, coalesced by a debounce
// delay. A commit always produces exactly one high-fidelity run, and results
// of superseded runs are never published.
//
// # Configuration
//
// ConfigFromEnv reads STENCIL_MCP_LOG_LEVEL, STENCIL_MCP_MAX_DIMENSION and
// STENCIL_MCP_DEBOUNCE_MS. Invalid values fall back to defaults.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// # Usage
//
//	srv := server.New(server.ConfigFromEnv())
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
