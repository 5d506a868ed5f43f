// Package server implements the UDP ingest server for framed audio and the
// HTTP API. It handles concurrent frame processing, routing to sessions, and
// provides monitoring endpoints.
package server
