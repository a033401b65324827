// Package csvfile writes captures as the flat comma-separated export
// consumed by existing accelerometer analysis tooling: two ## header
// lines with the stream boundaries, a column header, one row per
// sample and a trailing ## count summary.
package csvfile

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/eltonlaw/klipper/pkg/adxl345"
	"github.com/eltonlaw/klipper/pkg/output"
)

type CSVOutput struct {
	path string
}

// New returns a sink writing to path; an empty path selects a
// timestamped file under /tmp.
func New(path string) output.Output { return &CSVOutput{path: path} }

func defaultPath(now time.Time) string {
	return fmt.Sprintf("/tmp/adxl345-%s.csv", now.Format("20060102_150405"))
}

func (c *CSVOutput) Publish(res *adxl345.CaptureResult) error {
	path := c.path
	if path == "" {
		path = defaultPath(time.Now())
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export: %w", err)
	}
	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "##start=%.6f/%.6f,end=%.6f/%.6f\n",
		res.Epoch.CoarseStart, res.Epoch.FineStart, res.End.End1Time, res.End.End2Time)
	fmt.Fprintf(w, "##limit_count=%d,end_seq=%d,time_per_sample=%.9f\n",
		res.End.LimitCount, res.End.Sequence, res.SampleInterval)
	fmt.Fprintf(w, "#time,x,y,z\n")
	for _, s := range res.Samples {
		fmt.Fprintf(w, "%.6f,%.6f,%.6f,%.6f\n", s.Time, s.X, s.Y, s.Z)
	}
	fmt.Fprintf(w, "##count=%d/%d,drops=%d", res.TotalCount, res.ActualCount, res.Drops)
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write export: %w", err)
	}
	return f.Close()
}

func (c *CSVOutput) Close() error { return nil }
