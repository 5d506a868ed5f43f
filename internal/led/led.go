package led

import "sync"

// Pattern selects the indicator animation.
type Pattern uint8

const (
	PatternOff Pattern = iota
	PatternOn
	PatternBlinkSlow
	PatternBlinkFast
	PatternPulse
	PatternDoubleBlink
	PatternTripleBlink
	PatternSOS
)

// String returns the pattern name for logs and the HTTP API.
func (p Pattern) String() string {
	switch p {
	case PatternOff:
		return "off"
	case PatternOn:
		return "on"
	case PatternBlinkSlow:
		return "blink_slow"
	case PatternBlinkFast:
		return "blink_fast"
	case PatternPulse:
		return "pulse"
	case PatternDoubleBlink:
		return "double_blink"
	case PatternTripleBlink:
		return "triple_blink"
	case PatternSOS:
		return "sos"
	default:
		return "unknown"
	}
}

// Pattern timing in ms.
const (
	blinkSlowPeriod = 1000
	blinkFastPeriod = 200
	pulsePeriod     = 2000

	doubleBlinkOnTime    = 100
	doubleBlinkOffTime   = 100
	doubleBlinkPauseTime = 800

	tripleBlinkOnTime    = 100
	tripleBlinkOffTime   = 100
	tripleBlinkPauseTime = 800

	sosDotTime      = 200
	sosDashTime     = 600
	sosElementPause = 200
	sosWordPause    = 1400
)

// SOS pattern: 3 dots, 3 dashes, 3 dots, word pause.
var sosPattern = []uint8{
	1, 0, 1, 0, 1, 0,
	2, 0, 2, 0, 2, 0,
	1, 0, 1, 0, 1, 0,
	3,
}

// Controller renders the indicator patterns. Process advances the animation
// clock and returns the level; the caller applies it to whatever output it
// has. Levels scale by the brightness setting.
type Controller struct {
	pattern     Pattern
	brightness  uint8
	patternTime uint32 // ms into the current cycle
	state       int    // SOS element index
	level       uint8  // last raw level before brightness scaling

	mu sync.Mutex
}

// NewController creates a controller with the LED off at full brightness.
func NewController() *Controller {
	return &Controller{brightness: 255}
}

// SetPattern switches the animation. Changing the pattern restarts its
// cycle; setting the same pattern again is a no-op.
func (c *Controller) SetPattern(pattern Pattern) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if pattern == c.pattern {
		return
	}
	c.pattern = pattern
	c.patternTime = 0
	c.state = 0

	switch pattern {
	case PatternOn:
		c.level = 255
	case PatternOff:
		c.level = 0
	}
}

// GetPattern returns the active pattern.
func (c *Controller) GetPattern() Pattern {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pattern
}

// SetBrightness sets the output ceiling (0-255).
func (c *Controller) SetBrightness(brightness uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.brightness = brightness
}

// GetBrightness returns the output ceiling.
func (c *Controller) GetBrightness() uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.brightness
}

// SetOn is a convenience switch between the on and off patterns.
func (c *Controller) SetOn(on bool) {
	if on {
		c.SetPattern(PatternOn)
	} else {
		c.SetPattern(PatternOff)
	}
}

// Process advances the animation by elapsed milliseconds and returns the
// output level scaled by brightness.
func (c *Controller) Process(elapsedMS uint32) uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.patternTime += elapsedMS

	switch c.pattern {
	case PatternOff:
		c.level = 0

	case PatternOn:
		c.level = 255

	case PatternBlinkSlow:
		c.blink(blinkSlowPeriod)

	case PatternBlinkFast:
		c.blink(blinkFastPeriod)

	case PatternPulse:
		half := uint32(pulsePeriod / 2)
		switch {
		case c.patternTime < half:
			c.level = uint8(c.patternTime * 255 / half)
		case c.patternTime < pulsePeriod:
			c.level = uint8(255 - (c.patternTime-half)*255/half)
		default:
			c.patternTime = 0
			c.level = 0
		}

	case PatternDoubleBlink:
		c.multiBlink(2, doubleBlinkOnTime, doubleBlinkOffTime, doubleBlinkPauseTime)

	case PatternTripleBlink:
		c.multiBlink(3, tripleBlinkOnTime, tripleBlinkOffTime, tripleBlinkPauseTime)

	case PatternSOS:
		code := sosPattern[c.state]
		var duration uint32
		switch code {
		case 1:
			duration = sosDotTime
			c.level = 255
		case 2:
			duration = sosDashTime
			c.level = 255
		case 3:
			duration = sosWordPause
			c.level = 0
		default:
			duration = sosElementPause
			c.level = 0
		}
		if c.patternTime >= duration {
			c.patternTime = 0
			c.state = (c.state + 1) % len(sosPattern)
		}
	}

	return uint8(uint32(c.level) * uint32(c.brightness) / 255)
}

func (c *Controller) blink(period uint32) {
	switch {
	case c.patternTime < period/2:
		c.level = 255
	case c.patternTime < period:
		c.level = 0
	default:
		c.patternTime = 0
	}
}

func (c *Controller) multiBlink(count, onTime, offTime, pauseTime uint32) {
	cycleTime := count*(onTime+offTime) + pauseTime
	if c.patternTime >= cycleTime {
		c.patternTime = 0
		return
	}

	phase := c.patternTime
	for i := uint32(0); i < count; i++ {
		if phase < onTime {
			c.level = 255
			return
		}
		phase -= onTime
		if phase < offTime {
			c.level = 0
			return
		}
		phase -= offTime
	}
	c.level = 0
}
