package adxl345

// The device packs each axis as a little-endian 16-bit field whose
// top three bits mirror bit 12; readings are really 13-bit
// two's-complement values. decodeAxis reconstructs the signed count
// by subtracting the sign bit's 16-bit contribution and re-adding it
// at 13-bit weight.
func decodeAxis(lo, hi byte) int {
	return (int(lo) | int(hi)<<8) - int(hi&0x80)<<9
}

// DecodeCounts unpacks a batch payload into per-sample (x, y, z) raw
// counts. Trailing bytes that do not form a whole sample are ignored.
func DecodeCounts(payload []byte) [][3]int {
	n := len(payload) / BytesPerSample
	out := make([][3]int, n)
	for i := 0; i < n; i++ {
		off := i * BytesPerSample
		out[i] = [3]int{
			decodeAxis(payload[off], payload[off+1]),
			decodeAxis(payload[off+2], payload[off+3]),
			decodeAxis(payload[off+4], payload[off+5]),
		}
	}
	return out
}

// SampleCount reports the number of whole samples in a batch payload.
func SampleCount(payload []byte) int {
	return len(payload) / BytesPerSample
}

// DecodedSample is one calibrated measurement: host-time timestamp and
// acceleration per axis in mm/s^2 scaled by 1000.
type DecodedSample struct {
	Time float64
	X    float64
	Y    float64
	Z    float64
}
