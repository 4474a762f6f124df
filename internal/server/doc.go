// Package server implements the MCP (Model Context Protocol) server for
// measuring how full a plate or bowl is.
//
// This package provides a JSON-RPC 2.0 server that exposes the fill
// measurement pipeline and its individual stages through the MCP protocol,
// so an assistant can measure a frame, or inspect why a measurement failed.
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
// Frame Information:
//   - image_load: Load a frame and get its size and suggested radius bounds
//   - image_edge_detect: Canny edge map as used by the utensil locator
//
// Pipeline Stages:
//   - plate_detect_utensil: Find the plate or bowl boundary
//   - plate_sample_rim: Estimate the empty-surface color near the rim
//   - plate_measure: Fill percentage, plate volume, optional overlay
//
// Sessions:
//   - plate_session_start: Fix the utensil and scale for a stream of frames
//   - plate_session_end: Close a session
//
// Frames are given either as a file path or inline as a base64 data URL.
//
// # Sessions
//
// A session carries the boundary smoothing state between plate_measure
// calls, so a camera stream gets a steady outline. Frames within one session
// are measured one at a time; separate sessions run independently.
//
// # Image Caching
//
// Frames loaded by path are cached in memory for the lifetime of the
// process. Inline frames are never cached.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// A frame with no detectable utensil is a normal result, not an error:
// plate_measure returns detected=false with null percent_fill.
//
// # Usage
//
//	srv, err := server.New(config.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
