// Package protocol implements parsing and validation of the framed audio
// feed from the capture side: header parsing, signaling payload extraction,
// and audio payload processing.
package protocol
