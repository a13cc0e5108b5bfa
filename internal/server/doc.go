// Package server implements the MCP (Model Context Protocol) front end of
// signscan.
//
// The server speaks JSON-RPC 2.0 over stdio, one request per line, and
// exposes the detection pipeline as tools so an assistant can scan photos,
// inspect why a tile was or was not a candidate, and tune thresholds.
//
// # Protocol
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
//   - image_load: Load a photo as a frame and report its size
//   - image_sample_color: Pixel color with HSV and the red test
//
// Detection:
//   - sign_detect: Run a full scan and return the report
//   - sign_candidate_stats: Color filter statistics for one tile
//   - sign_red_bbox: Padded bounding box of red pixels in a tile
//   - sign_crop_tile: Tile as base64 PNG
//   - sign_annotate: Write the frame with the accepted tile outlined
//   - sign_read_text: OCR of a tile
//   - sign_info: Detector thresholds, scales, labels and OCR backend
//
// Every scan goes through the shared pipeline, so sign_detect calls are
// serialised with scans from other front ends and update the latest report.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with
// code -32000 and the Go error string as data. Malformed tools/call
// parameters get -32602 and unknown methods -32601.
package server
