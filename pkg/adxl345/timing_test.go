package adxl345

import (
	"errors"
	"math"
	"testing"
)

func TestCorrelateDerivedInterval(t *testing.T) {
	epoch := StreamEpoch{CoarseStart: 9.9, FineStart: 10.0}
	end := StreamEnd{End2Time: 14.0, Sequence: 500}
	corr, err := Correlate(epoch, end, SamplesPerBatch)
	if err != nil {
		t.Fatalf("Correlate: %v", err)
	}
	if corr.TotalCount != 4000 {
		t.Fatalf("TotalCount: got %d want 4000", corr.TotalCount)
	}
	if corr.SampleInterval != 0.001 {
		t.Fatalf("SampleInterval: got %v want 0.001", corr.SampleInterval)
	}
	if corr.BatchInterval != 0.008 {
		t.Fatalf("BatchInterval: got %v want 0.008", corr.BatchInterval)
	}
	// samples of the first batch start at the fine anchor
	for j := 0; j < SamplesPerBatch; j++ {
		want := 10.0 + float64(j)*0.001
		if got := corr.SampleTime(0, j); math.Abs(got-want) > 1e-12 {
			t.Fatalf("SampleTime(0,%d): got %v want %v", j, got, want)
		}
	}
	if got := corr.BatchTime(2); math.Abs(got-10.016) > 1e-12 {
		t.Fatalf("BatchTime(2): got %v want 10.016", got)
	}
}

func TestCorrelatePartialLastBatch(t *testing.T) {
	// 3 batches: two full, final carries 4 samples
	corr, err := Correlate(StreamEpoch{FineStart: 0}, StreamEnd{End2Time: 2.0, Sequence: 3}, 4)
	if err != nil {
		t.Fatalf("Correlate: %v", err)
	}
	if corr.TotalCount != 20 {
		t.Fatalf("TotalCount: got %d want 20", corr.TotalCount)
	}
	if corr.SampleInterval != 0.1 {
		t.Fatalf("SampleInterval: got %v want 0.1", corr.SampleInterval)
	}
}

func TestCorrelateInsufficientSamples(t *testing.T) {
	tests := []struct {
		name        string
		sequence    uint32
		lastSamples int
		wantErr     bool
	}{
		{"no batches counted", 1, 0, true},
		{"single sample", 1, 1, false},
		{"full single batch", 1, 8, false},
		{"stopped immediately", 0, 0, true},
	}
	for _, tt := range tests {
		_, err := Correlate(StreamEpoch{}, StreamEnd{End2Time: 1, Sequence: tt.sequence}, tt.lastSamples)
		if tt.wantErr != (err != nil) {
			t.Fatalf("%s: err=%v wantErr=%v", tt.name, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrInsufficientSamples) {
			t.Fatalf("%s: error %v is not ErrInsufficientSamples", tt.name, err)
		}
	}
}
