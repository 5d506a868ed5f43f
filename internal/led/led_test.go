package led

import "testing"

func TestControllerDefaults(t *testing.T) {
	c := NewController()
	if c.GetPattern() != PatternOff {
		t.Errorf("default pattern = %s, want off", c.GetPattern())
	}
	if c.GetBrightness() != 255 {
		t.Errorf("default brightness = %d, want 255", c.GetBrightness())
	}
	if c.Process(100) != 0 {
		t.Error("off pattern must output 0")
	}
}

func TestOnOff(t *testing.T) {
	c := NewController()

	c.SetPattern(PatternOn)
	if c.Process(0) != 255 {
		t.Error("on pattern must output 255")
	}

	c.SetOn(false)
	if c.GetPattern() != PatternOff {
		t.Errorf("SetOn(false) pattern = %s, want off", c.GetPattern())
	}
	c.SetOn(true)
	if c.GetPattern() != PatternOn {
		t.Errorf("SetOn(true) pattern = %s, want on", c.GetPattern())
	}
}

func TestBlinkSlow(t *testing.T) {
	c := NewController()
	c.SetPattern(PatternBlinkSlow)

	if c.Process(0) != 255 {
		t.Error("start of cycle must be on")
	}
	if c.Process(499) != 255 {
		t.Error("just before half period must be on")
	}
	if c.Process(1) != 0 {
		t.Error("second half of period must be off")
	}
	if c.Process(500) != 0 {
		t.Error("cycle boundary resets without forcing on")
	}
	if c.Process(0) != 255 {
		t.Error("new cycle must be on")
	}
}

func TestBlinkFast(t *testing.T) {
	c := NewController()
	c.SetPattern(PatternBlinkFast)

	if c.Process(0) != 255 {
		t.Error("start of cycle must be on")
	}
	if c.Process(100) != 0 {
		t.Error("second half of 200ms period must be off")
	}
}

func TestPulseRampsUpAndDown(t *testing.T) {
	c := NewController()
	c.SetPattern(PatternPulse)

	low := c.Process(100)  // t=100
	mid := c.Process(300)  // t=400
	high := c.Process(99)  // t=499
	if !(low < mid && mid < high) {
		t.Errorf("fade-in not monotonic: %d %d %d", low, mid, high)
	}

	falling := c.Process(1101) // t=1600, well into fade-out
	if falling >= high {
		t.Errorf("fade-out level %d not below peak %d", falling, high)
	}
	if c.Process(400) != 0 {
		t.Error("end of cycle must reset to 0")
	}
}

func TestDoubleBlink(t *testing.T) {
	c := NewController()
	c.SetPattern(PatternDoubleBlink)

	steps := []struct {
		elapsed uint32
		want    uint8
	}{
		{0, 255},    // first on
		{100, 0},    // first off
		{100, 255},  // second on
		{100, 0},    // second off
		{100, 0},    // pause
		{800, 255},  // cycle wraps, first on again... time=1200>=1200 reset
	}
	// After reset Process returns the retained level; advance once more.
	for i, s := range steps[:5] {
		if got := c.Process(s.elapsed); got != s.want {
			t.Errorf("step %d: level = %d, want %d", i, got, s.want)
		}
	}

	c.Process(800) // hits the cycle boundary, resets the clock
	if got := c.Process(0); got != 255 {
		t.Errorf("new cycle start = %d, want 255", got)
	}
}

func TestTripleBlinkCycle(t *testing.T) {
	c := NewController()
	c.SetPattern(PatternTripleBlink)

	// Third on window sits at 400..500ms.
	c.Process(0)
	if got := c.Process(450); got != 255 {
		t.Errorf("third blink level = %d, want 255", got)
	}
	if got := c.Process(100); got != 0 {
		t.Errorf("third off level = %d, want 0", got)
	}
	if got := c.Process(200); got != 0 {
		t.Errorf("pause level = %d, want 0", got)
	}
}

func TestSOSSequence(t *testing.T) {
	c := NewController()
	c.SetPattern(PatternSOS)

	// First dot.
	if c.Process(0) != 255 {
		t.Error("first dot must be on")
	}
	// Advance through the dot; element pause follows.
	c.Process(200)
	if c.Process(0) != 0 {
		t.Error("element pause must be off")
	}

	// Walk the full 19-element sequence and count lit elements.
	c2 := NewController()
	c2.SetPattern(PatternSOS)
	lit := 0
	for i := 0; i < len(sosPattern); i++ {
		if c2.Process(0) > 0 {
			lit++
		}
		c2.Process(1400) // longer than any element duration
	}
	if lit != 9 {
		t.Errorf("lit elements in one SOS cycle = %d, want 9", lit)
	}
}

func TestBrightnessScaling(t *testing.T) {
	c := NewController()
	c.SetPattern(PatternOn)

	c.SetBrightness(128)
	if got := c.Process(0); got != 128 {
		t.Errorf("scaled level = %d, want 128", got)
	}
	c.SetBrightness(0)
	if got := c.Process(0); got != 0 {
		t.Errorf("zero brightness level = %d, want 0", got)
	}
}

func TestSetPatternRestartsCycle(t *testing.T) {
	c := NewController()
	c.SetPattern(PatternBlinkSlow)
	c.Process(600) // into the off half

	c.SetPattern(PatternBlinkFast)
	if c.Process(0) != 255 {
		t.Error("pattern change must restart the cycle")
	}
}

func TestPatternString(t *testing.T) {
	tests := []struct {
		pattern Pattern
		want    string
	}{
		{PatternOff, "off"},
		{PatternOn, "on"},
		{PatternBlinkSlow, "blink_slow"},
		{PatternBlinkFast, "blink_fast"},
		{PatternPulse, "pulse"},
		{PatternDoubleBlink, "double_blink"},
		{PatternTripleBlink, "triple_blink"},
		{PatternSOS, "sos"},
		{Pattern(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.pattern.String(); got != tt.want {
			t.Errorf("Pattern(%d).String() = %q, want %q", tt.pattern, got, tt.want)
		}
	}
}
