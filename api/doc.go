// Package api defines the wire types of the memegate HTTP API.
//
// # API Overview
//
//   - POST /api/generate-meme: accepts {"imageData", "prompt"} as JSON, or a
//     multipart form with a "file" (or "imageData") field and a "prompt" field,
//     and answers with the canonical candidates/content/parts structure.
//   - GET /health, /healthz: liveness, always {"status":"ok"}.
//   - GET /ready: 503 until an image provider API key is configured.
//   - GET /version and GET /: build and service information.
//
// Every failure is answered with {"error": "<message>"} and the matching status code.
package api
