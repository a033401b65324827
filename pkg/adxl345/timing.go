package adxl345

import (
	"errors"
	"fmt"
)

// ErrInsufficientSamples is returned when a capture stops before any
// full batch was counted, so no sample interval can be derived.
var ErrInsufficientSamples = errors.New("no samples found")

// StreamEpoch holds the two host-time anchors recorded at stream
// start, derived from two independent device clock readings. Hardware
// does not guarantee an ordering between them: CoarseStart anchors
// display output, FineStart anchors the derived sample rate.
type StreamEpoch struct {
	CoarseStart float64
	FineStart   float64
}

// StreamEnd is the stop summary with its clock readings already mapped
// into host time and its sequence already extended.
type StreamEnd struct {
	End1Time   float64
	End2Time   float64
	Sequence   uint32
	LimitCount uint16
}

// Correlation maps extended batch sequence numbers to host-time
// timestamps. The sample interval is derived from total elapsed
// capture time over total sample count, which compensates for crystal
// drift and batching jitter; the nominal configured rate is only
// approximate and is not used for timestamps.
type Correlation struct {
	TotalCount     int
	SampleInterval float64
	BatchInterval  float64
	start          float64
}

// Correlate derives per-sample timing from the stream boundaries.
// samplesInLastBatch is the number of whole samples carried by the
// final received batch, which is generally partial.
func Correlate(epoch StreamEpoch, end StreamEnd, samplesInLastBatch int) (*Correlation, error) {
	totalCount := (int(end.Sequence)-1)*SamplesPerBatch + samplesInLastBatch
	if totalCount <= 0 {
		return nil, fmt.Errorf("correlate %d batches: %w", end.Sequence, ErrInsufficientSamples)
	}
	totalTime := end.End2Time - epoch.FineStart
	sampleInterval := totalTime / float64(totalCount)
	return &Correlation{
		TotalCount:     totalCount,
		SampleInterval: sampleInterval,
		BatchInterval:  sampleInterval * SamplesPerBatch,
		start:          epoch.FineStart,
	}, nil
}

// BatchTime returns the timestamp of the first sample in the batch
// with the given extended sequence.
func (c *Correlation) BatchTime(sequence uint32) float64 {
	return c.start + float64(sequence)*c.BatchInterval
}

// SampleTime returns the timestamp of sample j within a batch.
func (c *Correlation) SampleTime(sequence uint32, j int) float64 {
	return c.BatchTime(sequence) + float64(j)*c.SampleInterval
}
