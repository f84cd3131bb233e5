// Package server implements the MCP (Model Context Protocol) server for identity
// card extraction.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Logs must therefore go to stderr. Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
//   - idcard_extract: Full extraction from front and back image files
//   - idcard_preprocess: The enhanced image the recognizer would see, as base64 PNG
//   - idcard_recognize: Raw and normalized text for one side
//   - idcard_parse_text: Field extraction and validation over supplied text
//   - idcard_validate_number: Verhoeff check of a single identity number
//
// Images are read from disk on every call; nothing is cached between calls.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with code
// -32000. When the pipeline rejected the request, message is the user-facing
// pipeline message and data is an ErrorData carrying the error kind, the
// offending side or field and whether a retry may help. idcard_parse_text
// reports validation failures inside its result instead, next to the partial
// record.
//
// # Usage
//
//	srv := server.New(p, pre, log, version)
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal().Err(err).Msg("MCP server failed")
//	}
package server
