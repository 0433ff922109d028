// Package server implements the MCP (Model Context Protocol) server for wire
// and particle diameter analysis.
//
// This package provides a JSON-RPC 2.0 server that exposes the analysis
// pipelines through the MCP protocol, so an assistant can measure a
// segmented micrograph, look at individual components and render the
// resulting diameter maps.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//   - Logs: zerolog JSON on stderr
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Inputs:
//   - wire_mask_info: Dimensions, format and feature fraction of a mask
//   - wire_scale_bar: Calibrate pixels per micron from the scale bar
//
// Pipelines:
//   - wire_small_features: Ellipse-equivalent diameters of particles
//   - wire_large_features: Scan-averaged widths of wires
//   - wire_inspect_component: Render one measured component
//
// Diameter maps:
//   - wire_merge_maps: Overlay the small map onto the large one
//   - wire_render_diameter_map: Heatmap PNG of a map
//
// # Configuration
//
// Every pipeline tool starts from the server's config.Config and accepts
// per-call overrides for the area threshold, the morphology counts and the
// calibration.
//
// # Image Caching
//
// Masks are cached by path and reused across tool calls. Files the server
// writes are evicted from the cache so later calls see the new contents.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: {"error": <Go error string>, "kind": <failure kind>}
//
// # Usage
//
//	srv := server.New(cfg, logger.New(os.Stderr, zerolog.InfoLevel))
//	if err := srv.Run(); err != nil {
//	    log.Fatal().Err(err).Msg("server stopped")
//	}
package server
