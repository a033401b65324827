package console

import (
	"fmt"

	"github.com/eltonlaw/klipper/pkg/adxl345"
	"github.com/eltonlaw/klipper/pkg/output"
)

type ConsoleOutput struct{}

func NewConsole() output.Output { return &ConsoleOutput{} }

func (c *ConsoleOutput) Publish(res *adxl345.CaptureResult) error {
	fmt.Printf("capture %s rate=%d count=%d/%d drops=%d time_per_sample=%.9f\n",
		res.SessionID, res.Rate, res.TotalCount, res.ActualCount, res.Drops, res.SampleInterval)
	for _, s := range res.Samples {
		fmt.Printf("%.6f,%.6f,%.6f,%.6f\n", s.Time, s.X, s.Y, s.Z)
	}
	return nil
}

func (c *ConsoleOutput) Close() error { return nil }
