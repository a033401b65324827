package adxl345

// MonotonicSequence extends wrapping 16-bit batch sequence numbers
// into a monotonic 32-bit counter for one stream lifetime.
//
// Precondition: at most one 16-bit wrap occurs between consecutive
// observations (bounded batch latency). Longer gaps are not detected
// and silently corrupt the count.
type MonotonicSequence struct {
	last uint32
}

// Extend folds raw into the running counter and returns the extended
// value. It must be applied to every batch at ingestion time, since
// later extensions depend on the context reflecting all earlier ones.
func (m *MonotonicSequence) Extend(raw uint16) uint32 {
	candidate := (m.last &^ 0xFFFF) | uint32(raw)
	if candidate < m.last {
		candidate += 0x10000
	}
	m.last = candidate
	return candidate
}

// Last returns the most recently extended value.
func (m *MonotonicSequence) Last() uint32 {
	return m.last
}
