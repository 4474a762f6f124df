// Package web serves the fill estimator over HTTP for browser clients.
//
// Routes:
//
//	POST /process   {"image", "utensil", "diameter_mm", "assumed_height_mm", "session"}
//	                -> {"percent_fill", "volume_ml", "overlay"}
//	GET  /stream    MJPEG of the most recent overlay
//	GET  /healthz   liveness probe
//
// image is a data URL or raw base64 JPEG/PNG. A request without an image gets
// 400 {"error": "missing image"}; one that cannot be decoded gets
// 400 {"error": "bad image"}. A frame with no utensil is still a 200 with null
// percent_fill and volume_ml and an overlay saying so.
//
// Requests are independent unless they carry a session name: frames in one
// session share boundary smoothing, like an MCP session.
package web
