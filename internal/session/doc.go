// Package session tracks the live bridged streams. Each session owns a left
// and a right encode pipeline, a pump loop that drains encoded audio into
// the hearing-aid sink, and inactivity-based cleanup.
package session
