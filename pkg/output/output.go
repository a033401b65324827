// Package output defines the export sinks capture results are handed
// to. The acquisition core produces results as plain values; sinks own
// the persistence format and destination.
package output

import "github.com/eltonlaw/klipper/pkg/adxl345"

type Output interface {
	Publish(*adxl345.CaptureResult) error
	Close() error
}
