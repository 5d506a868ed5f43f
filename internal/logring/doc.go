// Package logring retains the most recent log records in a fixed-size ring
// while forwarding them to the configured slog handler. The retained
// entries back the monitoring API's log endpoint.
package logring
