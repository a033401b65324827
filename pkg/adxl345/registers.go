// Package adxl345 acquires bulk acceleration samples from an ADXL345
// accelerometer and reconstructs accurately timestamped physical
// measurements from the batched, wrapping-sequence stream the
// transport delivers.
package adxl345

import (
	"github.com/eltonlaw/klipper/pkg/bus"
	"github.com/eltonlaw/klipper/pkg/clock"
)

// ADXL345 register map (datasheet names).
const (
	RegDevID      = 0x00
	RegBWRate     = 0x2C
	RegPowerCtl   = 0x2D
	RegDataX0     = 0x32
	RegDataFormat = 0x31
	RegFIFOCtl    = 0x38
	RegFIFOStatus = 0x39

	// SPI transfer modifier bits.
	RegModRead  = 0x80
	RegModMulti = 0x40

	// DeviceID is the fixed identification byte at RegDevID.
	DeviceID = 0xE5
)

// Configuration values written at stream start: full resolution ±16g
// and FIFO in stream mode.
const (
	dataFormatValue = 0x0B
	fifoCtlValue    = 0x80
)

// QueryRates maps the supported sample rates in Hz to their BW_RATE
// register codes.
var QueryRates = map[int]byte{
	25: 0x8, 50: 0x9, 100: 0xA, 200: 0xB, 400: 0xC,
	800: 0xD, 1600: 0xE, 3200: 0xF,
}

const (
	// Scale converts a raw count to mm/s^2 scaled by 1000:
	// 4mg/LSB times standard gravity. Exact value matters for
	// bit-compatibility with downstream analysis tooling.
	Scale = 0.004 * 9.80665 * 1000

	// BytesPerSample is the encoded size of one 3-axis sample.
	BytesPerSample = 6

	// SamplesPerBatch is the number of samples in one fully packed
	// batch, matching the device's per-interrupt batching rate.
	SamplesPerBatch = 8

	fifoDepth = 32
)

// OpenSPI opens the sensor on a periph.io SPI port, configured with
// the ADXL345's FIFO polling parameters.
func OpenSPI(portName string, tr clock.Translator, now func() float64) (bus.Device, error) {
	return bus.OpenSPI(portName, tr, now, bus.BulkConfig{
		StatusReg:       RegFIFOStatus | RegModRead,
		DataReg:         RegDataX0 | RegModRead | RegModMulti,
		EntriesMask:     0x3F,
		FIFODepth:       fifoDepth,
		BytesPerSample:  BytesPerSample,
		SamplesPerBatch: SamplesPerBatch,
	})
}
