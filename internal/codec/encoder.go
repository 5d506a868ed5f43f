package codec

// Encoder holds the adaptive state for one outgoing stream. It is a
// single-owner mutable resource: concurrent Encode calls require external
// mutual exclusion. State persists across buffer boundaries; constructing a
// fresh Encoder is the only reset.
type Encoder struct {
	// Quantizer scale scalars. Initialized once; the active path never
	// re-adapts them.
	yl int32
	yu int32

	// Segment and adaptation-speed trackers. Present for state parity,
	// inert on the active path.
	dms int32
	dml int32
	ap  int32
	td  int32

	a  [2]int32 // pole coefficients, Q15: 0 = low band, 1 = high band
	b  [6]int32 // zero-predictor coefficients, inert
	sr [2]int32 // reconstructed-signal history per band
	dq [6]int32 // quantized-residual history; only 0 and 1 are active
	pk [2][3]int32

	rate      int
	shiftBits int
}

// NewEncoder creates an encoder for the given bit rate (48000, 56000 or
// 64000) and options word. Unrecognized rates behave as 64000.
func NewEncoder(bitRate, options int) *Encoder {
	return &Encoder{
		yl:        34816,
		yu:        544,
		rate:      bitRate,
		shiftBits: shiftBitsFor(bitRate, options),
	}
}

// Rate returns the configured bit rate.
func (e *Encoder) Rate() int {
	return e.rate
}

// Encode transcodes pcm into dst, one codeword byte per input sample, and
// returns the number of bytes produced (always len(pcm)). The caller must
// size dst with len(dst) >= len(pcm); there is no partial processing and no
// error path.
func (e *Encoder) Encode(dst []byte, pcm []int16) int {
	for k, s := range pcm {
		// Byte-domain band split of the 16-bit sample. This is not a
		// frequency-domain filter bank; the produced bitstream depends
		// on this exact split.
		xh := int32(s >> 8)
		xl := int32(int16(uint16(s) << 8))

		// High band: pole prediction against reconstructed history,
		// offset by the previous quantized residual.
		sh := predictorPole(e.a[1], e.sr[1:])
		wd := int32(saturate(sh + e.dq[0]))
		e.dq[0] = quantize(xh-wd, e.yu, 10)

		e.sr[1] = int32(saturate((e.dq[0] << 2) - (e.a[1] >> 9)))
		e.a[1] += (e.dq[0] * 11) >> 7

		// Low band. The offset term reuses the high-band residual
		// dq[0]; the halved difference is quantized at the 9-bit scale.
		sl := predictorPole(e.a[0], e.sr[:])
		wd = sl + e.dq[0]
		el := int32(saturate(xl-wd)) >> 1
		e.dq[1] = quantize(el, e.yl, 9)

		e.sr[0] = int32(saturate((e.dq[1] << 1) + e.a[0]))
		e.a[0] += (e.dq[1] * 9) >> 5

		// Pack the combined codeword. 56000 and 64000 share one layout.
		if e.rate == Rate48000 {
			dst[k] = byte(e.dq[0]<<2) | byte(e.dq[1]&0x3)
		} else {
			dst[k] = byte(e.dq[0]<<6) | byte(e.dq[1]<<2)
		}
	}

	return len(pcm)
}
