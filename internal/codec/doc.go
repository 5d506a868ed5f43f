// Package codec implements the fixed-point adaptive differential codec used
// on the hearing-aid audio path. It transcodes 16-bit PCM into a
// one-byte-per-sample bitstream and back, sample by sample, with all
// adaptive state owned by the caller-held Encoder/Decoder handles.
package codec
