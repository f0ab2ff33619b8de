// Package server holds the HTTP server configuration.
//
// The start command owns the Fiber application itself; this package only
// defines the settings it reads: listen port, API key, request body limit and
// the per-IP rate limit applied to the import routes.
//
// # Usage
//
// This package is embedded by core/config and consumed by cmd/start.go.
package server
