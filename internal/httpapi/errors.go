package httpapi

import "github.com/eratosthenes/geoguess-server/internal/engine"

// errorCode extracts the wire errorCode for an engine error, or "" if
// err is nil. HTTP and WS (spec.md §4.6) agree on this mapping exactly.
func errorCode(err error) string {
	if err == nil {
		return ""
	}
	if engErr, ok := err.(*engine.Error); ok {
		return engErr.Code
	}
	return "internal"
}
