package codec

// Supported bit rates. Any other value falls through to the 64000 behavior.
const (
	Rate48000 = 48000
	Rate56000 = 56000
	Rate64000 = 64000
)

// OptionPacked selects the packed output convention (bit 0 of the options
// word). It only affects the stored shiftBits flag; the transform paths do
// not consume it.
const OptionPacked = 0x1

// IsValidRate reports whether the bit rate is one of the supported values.
func IsValidRate(bitRate int) bool {
	return bitRate == Rate48000 || bitRate == Rate56000 || bitRate == Rate64000
}

// shiftBitsFor computes the packed-vs-shifted format flag from the creation
// options. The flag is carried on the state for parity with the wire users
// but is never read on the encode/decode paths.
func shiftBitsFor(bitRate, options int) int {
	if options&OptionPacked != 0 {
		return 0
	}
	if bitRate == Rate48000 {
		return 1
	}
	return 0
}
