package codec

// Decoder holds the mirrored per-band adaptive state for one incoming
// stream. Like Encoder it is a single-owner mutable resource; constructing a
// fresh Decoder is the only reset, and resetting mid-stream desynchronizes
// the adaptive trajectory from the encoder.
type Decoder struct {
	// Shared scale scalars; yu is rederived from yl every sample.
	yl int32
	yu int32

	// Adaptation-speed trackers, inert on the active path.
	dms int32
	dml int32
	ap  [2]int32

	a  [2][2]int32 // pole coefficients per band
	b  [2][6]int32 // zero-predictor coefficients, inert
	pk [2][3]int32 // band signal history
	dq [2][6]int32 // quantized-difference history; only index 0 is active
	sr [2][2]int32 // reconstructed history, inert

	rate      int
	shiftBits int
}

// NewDecoder creates a decoder for the given bit rate (48000, 56000 or
// 64000) and options word. Unrecognized rates behave as 64000.
func NewDecoder(bitRate, options int) *Decoder {
	return &Decoder{
		yl:        34816,
		yu:        544,
		rate:      bitRate,
		shiftBits: shiftBitsFor(bitRate, options),
	}
}

// Rate returns the configured bit rate.
func (d *Decoder) Rate() int {
	return d.rate
}

// Decode transcodes codeword bytes into dst, one PCM sample per input byte,
// and returns the number of samples produced (always len(data)). The caller
// must size dst with len(dst) >= len(data); there is no partial processing
// and no error path.
func (d *Decoder) Decode(dst []int16, data []byte) int {
	for i, code := range data {
		c := int32(code)

		var ihigh, ilow int32
		switch d.rate {
		case Rate48000:
			// All six active bits carry the high band.
			ihigh = c & 0x3F
			ilow = 0
		case Rate56000:
			ihigh = (c >> 1) & 0x3F
			ilow = (c & 0x01) << 2
		default:
			ihigh = (c >> 2) & 0x3F
			ilow = (c & 0x03) << 2
		}

		rlow := d.inverseBand(1, ilow, 1)
		rhigh := d.inverseBand(0, ihigh, 0x7)

		// Recombine the bands into one packed output sample.
		xout1 := int32(saturate(rlow + rhigh))
		xout2 := int32(saturate(rlow - rhigh))
		dst[i] = int16(uint16(xout1)<<8 | uint16(xout2)&0xFF)
	}

	return len(data)
}

// inverseBand runs one band through the inverse quantizer, updates the band
// signal history, and rederives yu from yl via two squared scalings. band
// selects the pole/history row (1 = low, 0 = high) and corrMask bounds the
// threshold-corrected code.
func (d *Decoder) inverseBand(band int, code, corrMask int32) int32 {
	pole := &d.a[band]

	// Threshold correction of the received code against the pole state.
	wd1 := int32(saturate(pole[0]))
	wd2 := (pole[1] * 32512) >> 15
	wd3 := ((code << 14) + wd1 - wd2) >> 13
	if wd3 < 0 {
		code = ((-wd3) >> 10) & corrMask
	} else {
		code = 0
	}

	// Quantized difference: table lookup scaled by yu, clamped to 15 bits
	// then doubled.
	var idx int32
	if band == 1 {
		idx = code << 2
	} else {
		idx = code << 1
	}
	wd2 = int32(qm4[idx])
	wd2 = (d.yu * wd2) >> 15
	if wd2 > 16383 {
		wd2 = 16383
	} else if wd2 < -16384 {
		wd2 = -16384
	}
	dqt := wd2 << 1

	r := int32(saturate(d.yl>>15)) + dqt

	// Band history update.
	d.pk[band][0] = d.pk[band][1]
	d.pk[band][1] = r

	wd1 = dqt >> 31
	wd1 = (wd1 ^ d.dq[band][0]) + (wd1 & 1)
	d.dq[band][0] = dqt
	wd2 = (d.pk[band][0] * wd1) >> 8
	if wd2 > 32767 {
		wd2 = 32767
	}
	wd3 = (d.pk[band][1] * wd1) >> 8
	if wd3 > 32767 {
		wd3 = 32767
	}
	d.pk[band][0] = int32(saturate(d.pk[band][0] - wd2))
	d.pk[band][1] = int32(saturate(d.pk[band][1] - wd3))

	// Rederive the scale from yl. yl never changes, so yu settles to a
	// constant after the first sample.
	wd1 = int32(saturate(d.yl >> 15))
	if wd1 == 0 {
		wd2 = 0
	} else {
		wd2 = int32(saturate(d.yu*wd1)) >> 15
	}
	if wd2 == 0 {
		wd3 = 0
	} else {
		wd3 = (d.yu * wd2) >> 15
	}
	d.yu = wd3

	return r
}
