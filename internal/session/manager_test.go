package session

import (
	"sync"
	"testing"
	"time"

	"github.com/picoasha/bridge/internal/audio"
	"github.com/picoasha/bridge/internal/codec"
	"github.com/picoasha/bridge/internal/protocol"
)

// captureSink records everything sent to it.
type captureSink struct {
	mu    sync.Mutex
	data  []byte
	sends int
}

func (c *captureSink) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = append(c.data, data...)
	c.sends++
	return nil
}

func (c *captureSink) bytes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

func testManagerConfig() ManagerConfig {
	return ManagerConfig{
		Timeout:      time.Minute,
		PumpInterval: 5 * time.Millisecond,
		StreamConfig: audio.StreamConfig{
			SampleRate:   16000,
			BitRate:      codec.Rate64000,
			FrameSamples: 160,
		},
	}
}

func testSignaling(device string) *protocol.SignalingPayload {
	var sig protocol.SignalingPayload
	copy(sig.DeviceName[:], device)
	return &sig
}

func pcmFrame(samples int) []byte {
	data := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		v := int16(i * 123)
		data[i*2] = byte(v)
		data[i*2+1] = byte(uint16(v) >> 8)
	}
	return data
}

func TestCreateSession(t *testing.T) {
	snk := &captureSink{}
	mgr, err := NewManager(nil, snk, testManagerConfig())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer mgr.Stop()

	session, err := mgr.CreateSession(1, testSignaling("Oticon More L"))
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if session.DeviceName != "Oticon More L" {
		t.Errorf("device name = %q", session.DeviceName)
	}
	if mgr.GetActiveSessionCount() != 1 {
		t.Errorf("active sessions = %d, want 1", mgr.GetActiveSessionCount())
	}
	if !session.Left.Active() || !session.Right.Active() {
		t.Error("side streams must be started with the session")
	}

	// A second signaling frame updates metadata, not session count.
	again, err := mgr.CreateSession(1, testSignaling("Oticon More L v2"))
	if err != nil {
		t.Fatalf("CreateSession repeat: %v", err)
	}
	if again != session {
		t.Error("repeated signaling must reuse the session")
	}
	if mgr.GetActiveSessionCount() != 1 {
		t.Errorf("active sessions = %d after repeat, want 1", mgr.GetActiveSessionCount())
	}
	if again.GetSessionInfo().DeviceName != "Oticon More L v2" {
		t.Error("repeated signaling must update metadata")
	}
}

func TestSignalingOverridesCodecParams(t *testing.T) {
	snk := &captureSink{}
	mgr, _ := NewManager(nil, snk, testManagerConfig())
	defer mgr.Stop()

	sig := testSignaling("aid")
	sig.BitRate = codec.Rate48000
	sig.SampleRate = 16000

	session, err := mgr.CreateSession(2, sig)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	_ = session
}

func TestAddAudioRouting(t *testing.T) {
	snk := &captureSink{}
	mgr, _ := NewManager(nil, snk, testManagerConfig())
	defer mgr.Stop()

	session, _ := mgr.CreateSession(3, testSignaling("aid"))

	if err := session.AddAudio(protocol.SideLeft, 1, pcmFrame(160)); err != nil {
		t.Fatalf("AddAudio left: %v", err)
	}
	if err := session.AddAudio(protocol.SideRight, 1, pcmFrame(160)); err != nil {
		t.Fatalf("AddAudio right: %v", err)
	}
	if err := session.AddAudio(0x99, 1, pcmFrame(160)); err == nil {
		t.Error("expected error for invalid side")
	}

	info := session.GetSessionInfo()
	if info.FramesReceived != 2 {
		t.Errorf("frames received = %d, want 2", info.FramesReceived)
	}
}

func TestSequenceGapCountsDrops(t *testing.T) {
	snk := &captureSink{}
	mgr, _ := NewManager(nil, snk, testManagerConfig())
	defer mgr.Stop()

	session, _ := mgr.CreateSession(4, testSignaling("aid"))
	session.AddAudio(protocol.SideLeft, 1, pcmFrame(160))
	session.AddAudio(protocol.SideLeft, 5, pcmFrame(160))

	if info := session.GetSessionInfo(); info.FramesDropped != 3 {
		t.Errorf("frames dropped = %d, want 3", info.FramesDropped)
	}
}

func TestPumpDeliversToSink(t *testing.T) {
	snk := &captureSink{}
	mgr, _ := NewManager(nil, snk, testManagerConfig())
	defer mgr.Stop()

	session, _ := mgr.CreateSession(5, testSignaling("aid"))
	session.AddAudio(protocol.SideLeft, 1, pcmFrame(160))

	// One 160-sample frame encodes to 160 bytes.
	deadline := time.Now().Add(2 * time.Second)
	for snk.bytes() < 160 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if snk.bytes() != 160 {
		t.Fatalf("sink received %d bytes, want 160", snk.bytes())
	}

	if info := session.GetSessionInfo(); info.SinkSends == 0 {
		t.Error("sink sends not counted")
	}
}

func TestRemoveSession(t *testing.T) {
	snk := &captureSink{}
	mgr, _ := NewManager(nil, snk, testManagerConfig())
	defer mgr.Stop()

	mgr.CreateSession(6, testSignaling("aid"))
	if !mgr.RemoveSession(6) {
		t.Fatal("RemoveSession returned false for live session")
	}
	if mgr.RemoveSession(6) {
		t.Error("RemoveSession returned true for removed session")
	}
	if mgr.GetActiveSessionCount() != 0 {
		t.Errorf("active sessions = %d, want 0", mgr.GetActiveSessionCount())
	}
}

func TestManagerStop(t *testing.T) {
	snk := &captureSink{}
	mgr, _ := NewManager(nil, snk, testManagerConfig())

	mgr.CreateSession(7, testSignaling("a"))
	mgr.CreateSession(8, testSignaling("b"))
	mgr.Stop()

	if mgr.GetActiveSessionCount() != 0 {
		t.Errorf("active sessions after Stop = %d, want 0", mgr.GetActiveSessionCount())
	}
}

func TestNewManagerRequiresSink(t *testing.T) {
	if _, err := NewManager(nil, nil, testManagerConfig()); err == nil {
		t.Error("expected error for nil sink")
	}
}
