// Package middleware contains HTTP middleware for the Fiber application.
//
// # Components
//
//   - auth: API key validation (X-API-Key header or api_key query parameter).
//   - rayid: assigns every request a RayID, stored in the context locals and
//     echoed in the X-Ray-ID response header for tracing.
//   - ratelimit: per-IP token bucket built on golang.org/x/time/rate, applied
//     to the import routes since each call may write thousands of rows.
//
// The components live in sub-packages and are registered globally or per
// route group in cmd/start.go.
package middleware
