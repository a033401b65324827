package csvfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/eltonlaw/klipper/pkg/adxl345"
)

func TestCSVPublish(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.csv")
	c := New(path)
	res := &adxl345.CaptureResult{
		SessionID: "s",
		Rate:      100,
		Epoch:     adxl345.StreamEpoch{CoarseStart: 4.9, FineStart: 5.0},
		End: adxl345.StreamEnd{
			End1Time: 5.23, End2Time: 5.24, Sequence: 3, LimitCount: 7,
		},
		SampleInterval: 0.01,
		TotalCount:     24,
		ActualCount:    2,
		Drops:          22,
		Samples: []adxl345.DecodedSample{
			{Time: 5.0, X: 1, Y: 2, Z: 3},
			{Time: 5.01, X: -1, Y: -2, Z: -3},
		},
	}
	if err := c.Publish(res); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	lines := strings.Split(string(b), "\n")
	want := []string{
		"##start=4.900000/5.000000,end=5.230000/5.240000",
		"##limit_count=7,end_seq=3,time_per_sample=0.010000000",
		"#time,x,y,z",
		"5.000000,1.000000,2.000000,3.000000",
		"5.010000,-1.000000,-2.000000,-3.000000",
		"##count=24/2,drops=22",
	}
	if len(lines) != len(want) {
		t.Fatalf("line count: got %d want %d\n%s", len(lines), len(want), string(b))
	}
	for i, w := range want {
		if lines[i] != w {
			t.Fatalf("line %d:\n got: %q\nwant: %q", i, lines[i], w)
		}
	}
}

func TestCSVDefaultPath(t *testing.T) {
	at := time.Date(2026, 8, 31, 13, 5, 9, 0, time.UTC)
	if got := defaultPath(at); got != "/tmp/adxl345-20260831_130509.csv" {
		t.Fatalf("default path: %q", got)
	}
}
