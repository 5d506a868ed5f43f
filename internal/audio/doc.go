// Package audio implements the buffering layer around the codec: byte ring
// buffers with overflow/underflow accounting, the per-stream encode pipeline
// (PCM in, codeword bytes out, volume applied in the linear domain), and WAV
// container helpers for tooling.
package audio
