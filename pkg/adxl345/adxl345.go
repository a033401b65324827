package adxl345

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eltonlaw/klipper/pkg/bus"
	"github.com/eltonlaw/klipper/pkg/clock"
)

var (
	ErrDeviceMismatch   = errors.New("unexpected device id")
	ErrInvalidRate      = errors.New("not a valid query rate")
	ErrAlreadyRunning   = errors.New("measurements already running")
	ErrTransportTimeout = errors.New("stop round-trip timed out")
)

// DefaultStopTimeout bounds the wait for the device's synchronous
// end-of-stream acknowledgment.
const DefaultStopTimeout = 5 * time.Second

// CaptureResult is the decoded outcome of one capture session, handed
// to export sinks as a plain record.
type CaptureResult struct {
	SessionID string
	Rate      int
	Epoch     StreamEpoch
	End       StreamEnd
	// SampleInterval is the empirically derived mean time between
	// consecutive samples.
	SampleInterval float64
	// TotalCount is the device-reported sample total; ActualCount is
	// the number decoded from received batches. The difference is the
	// drop count.
	TotalCount  int
	ActualCount int
	Drops       int
	Samples     []DecodedSample
}

// Options configures an acquisition controller. Zero values select
// the defaults.
type Options struct {
	// BufferCap bounds the batches held per session.
	BufferCap int
	// StopTimeout bounds the stop command round-trip.
	StopTimeout time.Duration
	// Now supplies the host time base; it must match the time domain
	// of the clock translator.
	Now func() float64
}

type rawDelivery struct {
	sequence uint16
	payload  []byte
}

// session is the owned state of one capture: ingest buffer, sequence
// context and epoch. Created at Start, consumed at Stop.
type session struct {
	id     string
	rate   int
	buffer *Buffer
	seq    MonotonicSequence

	ingest  chan rawDelivery
	stopped chan struct{}
	wg      sync.WaitGroup

	epochMu sync.Mutex
	epoch   StreamEpoch
}

func newSession(rate, bufferCap int, now float64) *session {
	return &session{
		id:      uuid.NewString(),
		rate:    rate,
		buffer:  NewBuffer(bufferCap),
		ingest:  make(chan rawDelivery, 64),
		stopped: make(chan struct{}),
		// Both anchors start at the current host time and are replaced
		// when the stream-start acknowledgment arrives.
		epoch: StreamEpoch{CoarseStart: now, FineStart: now},
	}
}

// collect is the single writer into the ingest buffer. Sequence
// extension happens here, at ingestion time, so the running context
// reflects every batch seen so far.
func (s *session) collect() {
	defer s.wg.Done()
	for {
		select {
		case d := <-s.ingest:
			s.buffer.Push(RawBatch{Sequence: s.seq.Extend(d.sequence), Payload: d.payload})
		case <-s.stopped:
			for {
				select {
				case d := <-s.ingest:
					s.buffer.Push(RawBatch{Sequence: s.seq.Extend(d.sequence), Payload: d.payload})
				default:
					return
				}
			}
		}
	}
}

func (s *session) setEpoch(e StreamEpoch) {
	s.epochMu.Lock()
	s.epoch = e
	s.epochMu.Unlock()
}

func (s *session) currentEpoch() StreamEpoch {
	s.epochMu.Lock()
	defer s.epochMu.Unlock()
	return s.epoch
}

// ADXL345 orchestrates capture sessions against one sensor instance.
// It is either idle or streaming; transitions are serialized. It also
// implements bus.Handler for the transport's delivery callbacks.
type ADXL345 struct {
	dev  bus.Device
	clk  clock.Translator
	opts Options

	mu sync.Mutex // serializes Start/Stop

	sessMu sync.Mutex // guards sess for the delivery callbacks
	sess   *session

	lastTxTime float64
}

func New(dev bus.Device, clk clock.Translator, opts Options) *ADXL345 {
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = DefaultStopTimeout
	}
	if opts.Now == nil {
		opts.Now = clock.NewHostClock().Now
	}
	return &ADXL345{dev: dev, clk: clk, opts: opts}
}

func (a *ADXL345) current() *session {
	a.sessMu.Lock()
	defer a.sessMu.Unlock()
	return a.sess
}

func (a *ADXL345) setCurrent(s *session) {
	a.sessMu.Lock()
	a.sess = s
	a.sessMu.Unlock()
}

// Running reports whether a capture session is active.
func (a *ADXL345) Running() bool {
	return a.current() != nil
}

// identify verifies chip connectivity with a read-modify transfer of
// the device ID register.
func (a *ADXL345) identify() error {
	id, err := a.dev.ReadRegister(RegDevID | RegModRead)
	if err != nil {
		return fmt.Errorf("identify: %w", err)
	}
	if id != DeviceID {
		return fmt.Errorf("invalid adxl345 id (got %#x vs %#x): %w", id, DeviceID, ErrDeviceMismatch)
	}
	return nil
}

// Start verifies and configures the device, then begins bulk
// streaming at the given rate. Configuration failures leave the
// controller idle; they are never retried automatically since the
// hardware state is unknown after a failed write sequence.
func (a *ADXL345) Start(rate int) error {
	code, ok := QueryRates[rate]
	if !ok {
		return fmt.Errorf("rate %d: %w", rate, ErrInvalidRate)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current() != nil {
		return ErrAlreadyRunning
	}
	if err := a.identify(); err != nil {
		return err
	}
	// Order the first write after the previous command on the device
	// clock; the remaining writes are ordered by the transport.
	var minClock uint64
	if a.lastTxTime > 0 {
		minClock = a.clk.HostTimeToClock(a.lastTxTime)
	}
	if err := a.dev.WriteRegister(RegDataFormat, dataFormatValue, minClock); err != nil {
		return fmt.Errorf("set data format: %w", err)
	}
	if err := a.dev.WriteRegister(RegFIFOCtl, fifoCtlValue, 0); err != nil {
		return fmt.Errorf("set fifo mode: %w", err)
	}
	if err := a.dev.WriteRegister(RegBWRate, code, 0); err != nil {
		return fmt.Errorf("set query rate: %w", err)
	}

	now := a.opts.Now()
	s := newSession(rate, a.opts.BufferCap, now)
	s.wg.Add(1)
	go s.collect()
	a.setCurrent(s)

	reqClock := a.clk.HostTimeToClock(now)
	restTicks := a.clk.SecondsToClock(4.0 / float64(rate))
	a.lastTxTime = now
	if err := a.dev.SendQuery(bus.QueryCommand{Clock: reqClock, RestTicks: restTicks, MinClock: reqClock}); err != nil {
		a.setCurrent(nil)
		close(s.stopped)
		s.wg.Wait()
		return fmt.Errorf("start stream: %w", err)
	}
	return nil
}

// Stop halts streaming, drains the session and returns the decoded
// capture. Stopping an idle controller is a no-op reported with a
// nil result.
func (a *ADXL345) Stop() (*CaptureResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.current()
	if s == nil {
		log.Printf("adxl345: measurements already stopped")
		return nil, nil
	}

	// Suppress the device's stream first; only the acknowledged stop
	// guarantees no further batches are produced for this session.
	now := a.opts.Now()
	ctx, cancel := context.WithTimeout(context.Background(), a.opts.StopTimeout)
	defer cancel()
	end, err := a.dev.SendQuerySync(ctx, bus.QueryCommand{MinClock: a.clk.HostTimeToClock(now)})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			// Controller state is indeterminate: the session stays
			// live so the caller can re-issue Stop or reset.
			return nil, fmt.Errorf("stop stream: %w", ErrTransportTimeout)
		}
		return nil, fmt.Errorf("stop stream: %w", err)
	}
	a.lastTxTime = now

	a.setCurrent(nil)
	close(s.stopped)
	s.wg.Wait()

	batches := s.buffer.Drain()
	summary := StreamEnd{
		End1Time:   a.clk.ClockToHostTime(end.End1Clock),
		End2Time:   a.clk.ClockToHostTime(end.End2Clock),
		Sequence:   s.seq.Extend(end.Sequence),
		LimitCount: end.LimitCount,
	}
	samplesInLast := 0
	if n := len(batches); n > 0 {
		samplesInLast = SampleCount(batches[n-1].Payload)
	}
	epoch := s.currentEpoch()
	corr, err := Correlate(epoch, summary, samplesInLast)
	if err != nil {
		return nil, err
	}

	samples := make([]DecodedSample, 0, corr.TotalCount)
	for _, b := range batches {
		for j, counts := range DecodeCounts(b.Payload) {
			samples = append(samples, DecodedSample{
				Time: corr.SampleTime(b.Sequence, j),
				X:    float64(counts[0]) * Scale,
				Y:    float64(counts[1]) * Scale,
				Z:    float64(counts[2]) * Scale,
			})
		}
	}
	return &CaptureResult{
		SessionID:      s.id,
		Rate:           s.rate,
		Epoch:          epoch,
		End:            summary,
		SampleInterval: corr.SampleInterval,
		TotalCount:     corr.TotalCount,
		ActualCount:    len(samples),
		Drops:          corr.TotalCount - len(samples),
		Samples:        samples,
	}, nil
}

// HandleStart records the stream epoch from the start acknowledgment's
// two device clock readings.
func (a *ADXL345) HandleStart(start bus.StreamStart) {
	s := a.current()
	if s == nil {
		return
	}
	s.setEpoch(StreamEpoch{
		CoarseStart: a.clk.ClockToHostTime(start.Start1Clock),
		FineStart:   a.clk.ClockToHostTime(start.Start2Clock),
	})
}

// HandleBatch forwards one delivered batch into the active session.
// Batches arriving with no session active, or after its stop was
// acknowledged, belong to no session and are dropped.
func (a *ADXL345) HandleBatch(sequence uint16, payload []byte) {
	s := a.current()
	if s == nil {
		return
	}
	select {
	case s.ingest <- rawDelivery{sequence: sequence, payload: payload}:
	case <-s.stopped:
	}
}
