package clock

import (
	"sync"
	"time"
)

// HostClock provides the host-side time base for a capture, as seconds
// since the clock was created. The zero point is arbitrary; only
// differences and device-clock correlation matter.
type HostClock struct {
	start time.Time
}

func NewHostClock() *HostClock {
	return &HostClock{start: time.Now()}
}

func (h *HostClock) Now() float64 {
	return time.Since(h.start).Seconds()
}

// Clock32 extends wrapping 32-bit device clock readings into a 64-bit
// counter. Consecutive readings must lie within half a wrap period
// (2^31 ticks) of each other, in either direction: readings carry no
// ordering guarantee, so a slightly earlier reading resolves as a
// small step back rather than a full wrap.
type Clock32 struct {
	last uint64
	set  bool
}

func (c *Clock32) Extend(raw uint32) uint64 {
	if !c.set {
		c.set = true
		c.last = uint64(raw)
		return c.last
	}
	diff := int64(int32(raw - uint32(c.last)))
	next := int64(c.last) + diff
	if next < 0 {
		// backward reading before the 64-bit epoch
		next = 0
	}
	c.last = uint64(next)
	return c.last
}

// Translator converts between the device clock domain and host time.
// Implementations must be consistent for the duration of a capture
// session.
type Translator interface {
	// ClockToHostTime converts a raw 32-bit device clock reading into
	// host time.
	ClockToHostTime(raw uint32) float64
	// HostTimeToClock converts a host time into device clock ticks.
	HostTimeToClock(t float64) uint64
	// SecondsToClock converts a duration in seconds into device clock
	// ticks.
	SecondsToClock(seconds float64) uint64
	// ClockToSeconds converts a tick count into seconds.
	ClockToSeconds(ticks uint64) float64
}

// LinearTranslator maps device clock ticks to host time with a fixed
// frequency and offset: host = offset + ticks/freq.
type LinearTranslator struct {
	freq   float64
	offset float64

	mu  sync.Mutex
	ext Clock32
}

func NewLinearTranslator(freqHz, offset float64) *LinearTranslator {
	return &LinearTranslator{freq: freqHz, offset: offset}
}

func (t *LinearTranslator) ClockToHostTime(raw uint32) float64 {
	t.mu.Lock()
	ticks := t.ext.Extend(raw)
	t.mu.Unlock()
	return t.offset + float64(ticks)/t.freq
}

func (t *LinearTranslator) HostTimeToClock(ht float64) uint64 {
	if ht <= t.offset {
		return 0
	}
	return uint64((ht - t.offset) * t.freq)
}

func (t *LinearTranslator) SecondsToClock(seconds float64) uint64 {
	if seconds <= 0 {
		return 0
	}
	return uint64(seconds * t.freq)
}

func (t *LinearTranslator) ClockToSeconds(ticks uint64) float64 {
	return float64(ticks) / t.freq
}
