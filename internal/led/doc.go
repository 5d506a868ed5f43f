// Package led renders status indicator patterns (blink, pulse, Morse SOS)
// as brightness levels over time. It is pure timing logic; the daemon maps
// connection states to patterns and applies the levels to its output.
package led
