// Package sink delivers encoded audio to the hearing aid over a TCP byte
// stream. It tracks the connection state machine, reconnects with bounded
// exponential backoff, and exposes delivery statistics.
package sink
