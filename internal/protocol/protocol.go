package protocol

import (
	"encoding/binary"
	"fmt"
)

const (
	// Frame types
	FrameTypeSignaling = 0x01
	FrameTypeAudio     = 0x02

	// Ear sides
	SideLeft  = 0x01
	SideRight = 0x02

	// Frame structure sizes
	HeaderSize             = 8  // 1 + 2 + 4 + 1 bytes
	SignalingPayloadSize   = 80 // 64 + 4 + 4 + 4 + 4 bytes
	AudioPayloadHeaderSize = 4  // Sequence number (4 bytes)

	// Field sizes in the signaling payload
	DeviceNameSize = 64
)

// Header is the 8-byte frame header.
// Layout: [FrameType:1][FrameLen:2][StreamID:4][Side:1]
type Header struct {
	FrameType uint8  // 0x01=Signaling, 0x02=Audio
	FrameLen  uint16 // Total frame size (header + payload)
	StreamID  uint32 // Unique stream identifier
	Side      uint8  // 0x01=Left, 0x02=Right
}

// SignalingPayload is the 80-byte stream announcement payload.
// Layout: [DeviceName:64][SampleRate:4][BitRate:4][Options:4][Timestamp:4]
type SignalingPayload struct {
	DeviceName [DeviceNameSize]byte // Null-terminated string
	SampleRate uint32               // PCM sample rate in Hz
	BitRate    uint32               // Codec bit rate (48000/56000/64000)
	Options    uint32               // Codec options word
	Timestamp  uint32               // Unix timestamp
}

// AudioPayload is the audio frame payload.
// Layout: [Sequence:4][PCMData:N]
type AudioPayload struct {
	Sequence uint32 // Frame sequence number
	PCMData  []byte // Little-endian 16-bit PCM (variable length)
}

// ParsedFrame is a fully parsed frame.
type ParsedFrame struct {
	Header    *Header
	Signaling *SignalingPayload // Only set for signaling frames
	Audio     *AudioPayload     // Only set for audio frames
}

// ParseHeader parses the 8-byte frame header.
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("header too short: expected %d bytes, got %d", HeaderSize, len(data))
	}

	header := &Header{
		FrameType: data[0],
		FrameLen:  binary.BigEndian.Uint16(data[1:3]),
		StreamID:  binary.BigEndian.Uint32(data[3:7]),
		Side:      data[7],
	}

	return header, nil
}

// ParseSignalingPayload parses the 80-byte signaling frame payload.
func ParseSignalingPayload(data []byte) (*SignalingPayload, error) {
	if len(data) < SignalingPayloadSize {
		return nil, fmt.Errorf("signaling payload too short: expected %d bytes, got %d",
			SignalingPayloadSize, len(data))
	}

	payload := &SignalingPayload{}
	copy(payload.DeviceName[:], data[0:DeviceNameSize])
	payload.SampleRate = binary.BigEndian.Uint32(data[DeviceNameSize : DeviceNameSize+4])
	payload.BitRate = binary.BigEndian.Uint32(data[DeviceNameSize+4 : DeviceNameSize+8])
	payload.Options = binary.BigEndian.Uint32(data[DeviceNameSize+8 : DeviceNameSize+12])
	payload.Timestamp = binary.BigEndian.Uint32(data[DeviceNameSize+12 : DeviceNameSize+16])

	return payload, nil
}

// ParseAudioPayload parses the audio frame payload (4-byte sequence + PCM).
func ParseAudioPayload(data []byte) (*AudioPayload, error) {
	if len(data) < AudioPayloadHeaderSize {
		return nil, fmt.Errorf("audio payload too short: expected at least %d bytes, got %d",
			AudioPayloadHeaderSize, len(data))
	}

	payload := &AudioPayload{
		Sequence: binary.BigEndian.Uint32(data[0:4]),
	}

	if len(data) > AudioPayloadHeaderSize {
		payload.PCMData = make([]byte, len(data)-AudioPayloadHeaderSize)
		copy(payload.PCMData, data[AudioPayloadHeaderSize:])
	}

	return payload, nil
}

// ParseFrame parses a complete frame (header + payload).
func ParseFrame(data []byte) (*ParsedFrame, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("frame too short: expected at least %d bytes, got %d", HeaderSize, len(data))
	}

	header, err := ParseHeader(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}

	if int(header.FrameLen) != len(data) {
		return nil, fmt.Errorf("frame length mismatch: header says %d bytes, got %d bytes",
			header.FrameLen, len(data))
	}

	if err := ValidateHeader(header); err != nil {
		return nil, fmt.Errorf("invalid header: %w", err)
	}

	frame := &ParsedFrame{Header: header}
	payloadData := data[HeaderSize:]

	switch header.FrameType {
	case FrameTypeSignaling:
		payload, err := ParseSignalingPayload(payloadData)
		if err != nil {
			return nil, fmt.Errorf("failed to parse signaling payload: %w", err)
		}
		frame.Signaling = payload

	case FrameTypeAudio:
		payload, err := ParseAudioPayload(payloadData)
		if err != nil {
			return nil, fmt.Errorf("failed to parse audio payload: %w", err)
		}
		frame.Audio = payload

	default:
		return nil, fmt.Errorf("unknown frame type: 0x%02x", header.FrameType)
	}

	return frame, nil
}

// ValidateHeader validates the frame header fields.
func ValidateHeader(header *Header) error {
	if !IsValidFrameType(header.FrameType) {
		return fmt.Errorf("invalid frame type: 0x%02x", header.FrameType)
	}

	if !IsValidSide(header.Side) {
		return fmt.Errorf("invalid side: 0x%02x", header.Side)
	}

	if header.FrameLen < HeaderSize {
		return fmt.Errorf("frame length too small: %d (minimum %d)", header.FrameLen, HeaderSize)
	}

	expectedPayloadSize := int(header.FrameLen) - HeaderSize
	switch header.FrameType {
	case FrameTypeSignaling:
		if expectedPayloadSize != SignalingPayloadSize {
			return fmt.Errorf("signaling frame payload size mismatch: expected %d, got %d",
				SignalingPayloadSize, expectedPayloadSize)
		}
	case FrameTypeAudio:
		if expectedPayloadSize < AudioPayloadHeaderSize {
			return fmt.Errorf("audio frame payload too small: expected at least %d, got %d",
				AudioPayloadHeaderSize, expectedPayloadSize)
		}
	}

	return nil
}

// IsValidFrameType checks if the frame type is known.
func IsValidFrameType(ftype uint8) bool {
	return ftype == FrameTypeSignaling || ftype == FrameTypeAudio
}

// IsValidSide checks if the side marker is known.
func IsValidSide(side uint8) bool {
	return side == SideLeft || side == SideRight
}

// BuildSignalingFrame assembles a complete signaling frame. The device name
// is truncated to the field size.
func BuildSignalingFrame(streamID uint32, side uint8, p *SignalingPayload) []byte {
	buf := make([]byte, HeaderSize+SignalingPayloadSize)
	buf[0] = FrameTypeSignaling
	binary.BigEndian.PutUint16(buf[1:3], uint16(len(buf)))
	binary.BigEndian.PutUint32(buf[3:7], streamID)
	buf[7] = side

	copy(buf[HeaderSize:HeaderSize+DeviceNameSize], p.DeviceName[:])
	binary.BigEndian.PutUint32(buf[HeaderSize+DeviceNameSize:], p.SampleRate)
	binary.BigEndian.PutUint32(buf[HeaderSize+DeviceNameSize+4:], p.BitRate)
	binary.BigEndian.PutUint32(buf[HeaderSize+DeviceNameSize+8:], p.Options)
	binary.BigEndian.PutUint32(buf[HeaderSize+DeviceNameSize+12:], p.Timestamp)

	return buf
}

// BuildAudioFrame assembles a complete audio frame around PCM bytes.
func BuildAudioFrame(streamID uint32, side uint8, sequence uint32, pcm []byte) []byte {
	buf := make([]byte, HeaderSize+AudioPayloadHeaderSize+len(pcm))
	buf[0] = FrameTypeAudio
	binary.BigEndian.PutUint16(buf[1:3], uint16(len(buf)))
	binary.BigEndian.PutUint32(buf[3:7], streamID)
	buf[7] = side
	binary.BigEndian.PutUint32(buf[HeaderSize:], sequence)
	copy(buf[HeaderSize+AudioPayloadHeaderSize:], pcm)

	return buf
}

// ExtractString extracts a null-terminated string from a fixed-size field.
func ExtractString(buf []byte) string {
	nullPos := len(buf)
	for i, b := range buf {
		if b == 0 {
			nullPos = i
			break
		}
	}
	return string(buf[:nullPos])
}

// GetDeviceName extracts the device name as a string.
func (s *SignalingPayload) GetDeviceName() string {
	return ExtractString(s.DeviceName[:])
}

// SideName returns "left", "right" or a hex fallback.
func SideName(side uint8) string {
	switch side {
	case SideLeft:
		return "left"
	case SideRight:
		return "right"
	default:
		return fmt.Sprintf("unknown(0x%02x)", side)
	}
}

// String returns a human-readable representation of the header.
func (h *Header) String() string {
	var frameType string

	switch h.FrameType {
	case FrameTypeSignaling:
		frameType = "Signaling"
	case FrameTypeAudio:
		frameType = "Audio"
	default:
		frameType = fmt.Sprintf("Unknown(0x%02x)", h.FrameType)
	}

	return fmt.Sprintf("Header{Type:%s, Len:%d, StreamID:%d, Side:%s}",
		frameType, h.FrameLen, h.StreamID, SideName(h.Side))
}

// String returns a human-readable representation of the signaling payload.
func (s *SignalingPayload) String() string {
	return fmt.Sprintf("SignalingPayload{DeviceName:%q, SampleRate:%d, BitRate:%d, Options:%d, Timestamp:%d}",
		s.GetDeviceName(), s.SampleRate, s.BitRate, s.Options, s.Timestamp)
}

// String returns a human-readable representation of the audio payload.
func (a *AudioPayload) String() string {
	return fmt.Sprintf("AudioPayload{Sequence:%d, PCMDataLen:%d}", a.Sequence, len(a.PCMData))
}
