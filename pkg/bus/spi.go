package bus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/eltonlaw/klipper/pkg/clock"
)

// SPISpeed is the SPI bus frequency used for the sensor.
var SPISpeed = 5 * physic.MegaHertz

// BulkConfig parameterizes the host-side FIFO polling loop of an
// SPIDevice. Register addresses must already carry their read/multi
// modifier bits.
type BulkConfig struct {
	// StatusReg is the FIFO status register; its low bits report the
	// number of buffered samples.
	StatusReg byte
	// DataReg is the burst-read data register yielding one sample.
	DataReg byte
	// EntriesMask extracts the sample count from the status byte.
	EntriesMask byte
	// FIFODepth is the device FIFO depth in samples; a full FIFO is
	// counted as an overrun.
	FIFODepth       int
	BytesPerSample  int
	SamplesPerBatch int
}

// SPIDevice drives a directly attached sensor over a periph.io SPI
// port. Register access is issued inline; bulk streaming is emulated
// host-side by a polling goroutine that drains the device FIFO and
// delivers fixed-size batches tagged with a wrapping 16-bit sequence,
// the same shape a microcontroller-resident poller would produce.
type SPIDevice struct {
	port spi.PortCloser
	conn spi.Conn
	clk  clock.Translator
	now  func() float64
	bulk BulkConfig

	txMu sync.Mutex // serializes SPI transfers with the poller

	handlerMu sync.Mutex
	handler   Handler

	streamMu sync.Mutex
	stop     chan chan *StreamEnd
	wg       sync.WaitGroup
}

// OpenSPI opens the named SPI port and prepares it for register and
// bulk access. now provides the host time base used to anchor the
// poller's device clock readings.
func OpenSPI(portName string, tr clock.Translator, now func() float64, bulk BulkConfig) (*SPIDevice, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	port, err := spireg.Open(portName)
	if err != nil {
		return nil, fmt.Errorf("open spi: %w", err)
	}
	conn, err := port.Connect(SPISpeed, spi.Mode3, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("connect spi: %w", err)
	}
	return &SPIDevice{port: port, conn: conn, clk: tr, now: now, bulk: bulk}, nil
}

func (d *SPIDevice) SetHandler(h Handler) {
	d.handlerMu.Lock()
	d.handler = h
	d.handlerMu.Unlock()
}

func (d *SPIDevice) getHandler() Handler {
	d.handlerMu.Lock()
	defer d.handlerMu.Unlock()
	return d.handler
}

func (d *SPIDevice) WriteRegister(addr, value byte, minClock uint64) error {
	if minClock > 0 {
		if nowTicks := d.clk.HostTimeToClock(d.now()); nowTicks < minClock {
			time.Sleep(time.Duration(d.clk.ClockToSeconds(minClock-nowTicks) * float64(time.Second)))
		}
	}
	d.txMu.Lock()
	defer d.txMu.Unlock()
	return d.conn.Tx([]byte{addr, value}, nil)
}

func (d *SPIDevice) ReadRegister(addr byte) (byte, error) {
	d.txMu.Lock()
	defer d.txMu.Unlock()
	rx := make([]byte, 2)
	if err := d.conn.Tx([]byte{addr, 0x00}, rx); err != nil {
		return 0, fmt.Errorf("read register %#x: %w", addr, err)
	}
	return rx[1], nil
}

func (d *SPIDevice) SendQuery(cmd QueryCommand) error {
	d.streamMu.Lock()
	defer d.streamMu.Unlock()
	if d.stop != nil {
		return fmt.Errorf("spi bulk query already running")
	}
	if cmd.RestTicks == 0 {
		return fmt.Errorf("spi bulk query needs rest ticks")
	}
	stop := make(chan chan *StreamEnd)
	d.stop = stop
	d.wg.Add(1)
	go d.poll(cmd, stop)
	return nil
}

func (d *SPIDevice) SendQuerySync(ctx context.Context, cmd QueryCommand) (*StreamEnd, error) {
	d.streamMu.Lock()
	stop := d.stop
	d.streamMu.Unlock()
	if stop == nil {
		return nil, fmt.Errorf("spi bulk query not running")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// d.stop stays registered until the summary arrives, so a stop
	// whose context expires leaves the poller reachable for a retry
	// or for Close.
	reply := make(chan *StreamEnd, 1)
	select {
	case stop <- reply:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case end := <-reply:
		d.streamMu.Lock()
		if d.stop == stop {
			d.stop = nil
		}
		d.streamMu.Unlock()
		return end, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (d *SPIDevice) clockNow() uint32 {
	return uint32(d.clk.HostTimeToClock(d.now()))
}

// poll drains the device FIFO on a fixed cadence and delivers batches
// until a stop request arrives, then reports the end summary.
func (d *SPIDevice) poll(cmd QueryCommand, stop chan chan *StreamEnd) {
	defer d.wg.Done()

	// Wait out the requested start clock before the first transfer.
	if nowTicks := uint64(d.clockNow()); cmd.Clock > nowTicks {
		time.Sleep(time.Duration(d.clk.ClockToSeconds(cmd.Clock-nowTicks) * float64(time.Second)))
	}

	start1 := d.clockNow()
	start2 := d.clockNow()
	if h := d.getHandler(); h != nil {
		h.HandleStart(StreamStart{Start1Clock: start1, Start2Clock: start2})
	}

	interval := time.Duration(d.clk.ClockToSeconds(cmd.RestTicks) * float64(time.Second))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	batchBytes := d.bulk.BytesPerSample * d.bulk.SamplesPerBatch
	var seq uint16
	var limitCount uint16
	pending := make([]byte, 0, 2*batchBytes)

	for {
		select {
		case reply := <-stop:
			end1 := d.clockNow()
			if len(pending) > 0 {
				d.deliver(seq, pending)
				seq++
			}
			end2 := d.clockNow()
			reply <- &StreamEnd{End1Clock: end1, End2Clock: end2, Sequence: seq, LimitCount: limitCount}
			return
		case <-ticker.C:
			entries, err := d.fifoEntries()
			if err != nil {
				continue
			}
			if entries >= d.bulk.FIFODepth {
				limitCount++
			}
			for i := 0; i < entries; i++ {
				sample, err := d.readSample()
				if err != nil {
					break
				}
				pending = append(pending, sample...)
			}
			for len(pending) >= batchBytes {
				d.deliver(seq, pending[:batchBytes])
				seq++
				pending = append(pending[:0], pending[batchBytes:]...)
			}
		}
	}
}

func (d *SPIDevice) fifoEntries() (int, error) {
	status, err := d.ReadRegister(d.bulk.StatusReg)
	if err != nil {
		return 0, err
	}
	return int(status & d.bulk.EntriesMask), nil
}

func (d *SPIDevice) readSample() ([]byte, error) {
	d.txMu.Lock()
	defer d.txMu.Unlock()
	tx := make([]byte, d.bulk.BytesPerSample+1)
	tx[0] = d.bulk.DataReg
	rx := make([]byte, len(tx))
	if err := d.conn.Tx(tx, rx); err != nil {
		return nil, err
	}
	return rx[1:], nil
}

func (d *SPIDevice) deliver(seq uint16, payload []byte) {
	h := d.getHandler()
	if h == nil {
		return
	}
	batch := make([]byte, len(payload))
	copy(batch, payload)
	h.HandleBatch(seq, batch)
}

func (d *SPIDevice) Close() error {
	d.streamMu.Lock()
	stop := d.stop
	d.stop = nil
	d.streamMu.Unlock()
	if stop != nil {
		reply := make(chan *StreamEnd, 1)
		stop <- reply
		<-reply
	}
	d.wg.Wait()
	return d.port.Close()
}
