// Package bus provides the transport collaborators the acquisition
// engine talks to: ordered register access to the sensor, the command
// queue used to trigger and halt bulk streaming, and registration of
// the asynchronous delivery callbacks.
package bus

import "context"

// QueryCommand parameterizes a bulk streaming command. A non-zero
// RestTicks starts streaming with the given inter-poll interval; the
// synchronous variant with zero ticks halts it.
type QueryCommand struct {
	// Clock is the device clock at which streaming should begin.
	Clock uint64
	// RestTicks is the device clock interval between batch polls.
	RestTicks uint64
	// MinClock orders the command after previously issued commands.
	MinClock uint64
}

// StreamStart carries the two device clock readings reported when the
// device acknowledges the start of a stream. Start1 is sampled at the
// coarse start boundary, Start2 at the fine boundary; no ordering
// between the two is guaranteed.
type StreamStart struct {
	Start1Clock uint32
	Start2Clock uint32
}

// StreamEnd is the synchronous response to a stop command.
type StreamEnd struct {
	End1Clock uint32
	End2Clock uint32
	// Sequence is the wrapping 16-bit sequence number of the next
	// batch the device would have sent.
	Sequence uint16
	// LimitCount is the device-side count of samples discarded to
	// FIFO overruns.
	LimitCount uint16
}

// RegisterBus issues ordered register reads and writes to the sensor.
type RegisterBus interface {
	// WriteRegister writes value to the register at addr. A non-zero
	// minClock delays the write until the device clock reaches it, so
	// writes are never reordered ahead of earlier commands. Writes are
	// fire-and-forget beyond transport-level delivery.
	WriteRegister(addr, value byte, minClock uint64) error
	// ReadRegister performs a read transfer for the given (already
	// modifier-adjusted) register address and returns the response
	// byte.
	ReadRegister(addr byte) (byte, error)
}

// CommandQueue triggers and halts bulk streaming.
type CommandQueue interface {
	// SendQuery issues the asynchronous start-stream command.
	SendQuery(cmd QueryCommand) error
	// SendQuerySync issues the stop-stream command and waits for the
	// device's end-of-stream summary. The context bounds the wait.
	SendQuerySync(ctx context.Context, cmd QueryCommand) (*StreamEnd, error)
}

// Handler receives asynchronous device messages: one call per stream
// start acknowledgment and one per delivered data batch. Calls arrive
// on the transport's delivery goroutine.
type Handler interface {
	HandleStart(start StreamStart)
	HandleBatch(sequence uint16, payload []byte)
}

// Device is a complete sensor transport: register access, the command
// queue and delivery callback registration.
type Device interface {
	RegisterBus
	CommandQueue
	// SetHandler registers the delivery callbacks. It must be called
	// before the first SendQuery.
	SetHandler(h Handler)
	Close() error
}
