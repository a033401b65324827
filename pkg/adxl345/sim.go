package adxl345

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/eltonlaw/klipper/pkg/bus"
	"github.com/eltonlaw/klipper/pkg/clock"
)

// SimDevice is an in-memory bus.Device that models the sensor's
// register file and bulk streaming: a start acknowledgment with two
// clock readings, 8-sample batches tagged with a wrapping 16-bit
// sequence, a partial final batch, and a synchronous end summary. It
// backs the "simulation" sensor type and the acquisition tests.
type SimDevice struct {
	clk clock.Translator
	now func() float64

	mu      sync.Mutex
	regs    map[byte]byte
	handler bus.Handler
	stop    chan chan *bus.StreamEnd
	wg      sync.WaitGroup
}

func NewSimDevice(tr clock.Translator, now func() float64) *SimDevice {
	return &SimDevice{
		clk:  tr,
		now:  now,
		regs: map[byte]byte{RegDevID: DeviceID},
	}
}

func (d *SimDevice) WriteRegister(addr, value byte, minClock uint64) error {
	d.mu.Lock()
	d.regs[addr] = value
	d.mu.Unlock()
	return nil
}

func (d *SimDevice) ReadRegister(addr byte) (byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.regs[addr&^(RegModRead|RegModMulti)], nil
}

func (d *SimDevice) SetHandler(h bus.Handler) {
	d.mu.Lock()
	d.handler = h
	d.mu.Unlock()
}

func (d *SimDevice) getHandler() bus.Handler {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.handler
}

// rate reports the sample rate configured via the BW_RATE register.
func (d *SimDevice) rate() int {
	d.mu.Lock()
	code := d.regs[RegBWRate]
	d.mu.Unlock()
	for rate, c := range QueryRates {
		if c == code {
			return rate
		}
	}
	return 0
}

func (d *SimDevice) SendQuery(cmd bus.QueryCommand) error {
	rate := d.rate()
	if rate == 0 {
		return fmt.Errorf("simulated device not configured")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		return fmt.Errorf("simulated stream already running")
	}
	stop := make(chan chan *bus.StreamEnd)
	d.stop = stop
	d.wg.Add(1)
	go d.stream(rate, stop)
	return nil
}

func (d *SimDevice) SendQuerySync(ctx context.Context, cmd bus.QueryCommand) (*bus.StreamEnd, error) {
	d.mu.Lock()
	stop := d.stop
	d.mu.Unlock()
	if stop == nil {
		return nil, fmt.Errorf("simulated stream not running")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// d.stop stays registered until the summary arrives, so a stop
	// whose context expires leaves the stream reachable for a retry
	// or for Close.
	reply := make(chan *bus.StreamEnd, 1)
	select {
	case stop <- reply:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case end := <-reply:
		d.mu.Lock()
		if d.stop == stop {
			d.stop = nil
		}
		d.mu.Unlock()
		return end, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (d *SimDevice) clockNow() uint32 {
	return uint32(d.clk.HostTimeToClock(d.now()))
}

// stream produces full batches on the device's batching cadence and a
// partial final batch when stopped mid-interval.
func (d *SimDevice) stream(rate int, stop chan chan *bus.StreamEnd) {
	defer d.wg.Done()

	start1 := d.clockNow()
	start2 := d.clockNow()
	if h := d.getHandler(); h != nil {
		h.HandleStart(bus.StreamStart{Start1Clock: start1, Start2Clock: start2})
	}

	interval := time.Duration(float64(SamplesPerBatch) / float64(rate) * float64(time.Second))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var seq uint16
	var sampleIndex int
	lastBatch := time.Now()
	for {
		select {
		case reply := <-stop:
			end1 := d.clockNow()
			// partial final batch for the fraction of the interval
			// that elapsed since the last full batch
			n := int(time.Since(lastBatch).Seconds() * float64(rate))
			if n > SamplesPerBatch-1 {
				n = SamplesPerBatch - 1
			}
			if n > 0 {
				d.deliver(seq, d.makeBatch(rate, &sampleIndex, n))
				seq++
			}
			end2 := d.clockNow()
			reply <- &bus.StreamEnd{End1Clock: end1, End2Clock: end2, Sequence: seq, LimitCount: 0}
			return
		case <-ticker.C:
			d.deliver(seq, d.makeBatch(rate, &sampleIndex, SamplesPerBatch))
			seq++
			lastBatch = time.Now()
		}
	}
}

// makeBatch packs n synthetic samples: a 5 Hz, 0.5g sine on x and y
// (y inverted) over a 1g gravity bias on z.
func (d *SimDevice) makeBatch(rate int, sampleIndex *int, n int) []byte {
	payload := make([]byte, 0, n*BytesPerSample)
	for i := 0; i < n; i++ {
		t := float64(*sampleIndex) / float64(rate)
		*sampleIndex++
		wave := int16(125 * math.Sin(2*math.Pi*5*t))
		payload = appendAxis(payload, wave)
		payload = appendAxis(payload, -wave)
		payload = appendAxis(payload, 250) // 1g at 4mg/LSB
	}
	return payload
}

func appendAxis(payload []byte, v int16) []byte {
	return append(payload, byte(v), byte(uint16(v)>>8))
}

func (d *SimDevice) deliver(seq uint16, payload []byte) {
	if h := d.getHandler(); h != nil {
		h.HandleBatch(seq, payload)
	}
}

func (d *SimDevice) Close() error {
	d.mu.Lock()
	stop := d.stop
	d.stop = nil
	d.mu.Unlock()
	if stop != nil {
		reply := make(chan *bus.StreamEnd, 1)
		stop <- reply
		<-reply
	}
	d.wg.Wait()
	return nil
}
