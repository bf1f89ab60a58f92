package passthru

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

/*
correlator assigns short request ids and matches device responses back
to the calling goroutine. It implements the keyed-rendezvous-table
design spec section 4.C explicitly allows as an alternative to a single
shared delivery channel — grounded on the teacher's
`pending map[uint16]bool` + per-client `rx chan pdu` pair in modbus.go
and rtu.go, adapted from "one channel per remote unit" to "one channel
per in-flight request" since J2534 callers block independently rather
than one goroutine per unit.
*/
type correlator struct {
	mu      sync.Mutex
	pending map[byte]chan frame
	nextID  uint32 // atomic counter; updated with atomic.AddUint32, not under mu
	log     *zap.Logger
}

func newCorrelator(log *zap.Logger) *correlator {
	if log == nil {
		log = zap.NewNop()
	}
	return &correlator{
		pending: make(map[byte]chan frame),
		log:     log,
	}
}

// allocate returns the next correlation id in 1..=255, wrapping and
// skipping 0 as spec section 3 requires.
func (c *correlator) allocate() byte {
	v := atomic.AddUint32(&c.nextID, 1) % 256
	if v == 0 {
		v = atomic.AddUint32(&c.nextID, 1) % 256
	}
	return byte(v)
}

// register creates the rendezvous slot for id before the frame is
// handed to the transport, so a response racing the caller's own
// registration can never be missed.
func (c *correlator) register(id byte) chan frame {
	ch := make(chan frame, 1)
	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()
	return ch
}

func (c *correlator) abandon(id byte) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// await blocks until either ch receives the matching response or
// deadline elapses, returning Timeout in the latter case. The pending
// entry is always cleaned up before returning.
func (c *correlator) await(id byte, ch chan frame, deadline time.Duration) (frame, error) {
	timer := time.NewTimer(deadline)
	defer timer.Stop()
	select {
	case f := <-ch:
		return f, nil
	case <-timer.C:
		c.abandon(id)
		return frame{}, errTimeoutF("no response to request 0x%02x within %v", id, deadline)
	}
}

// deliver is called by the transport worker when it decodes a frame
// that is neither LogMsg nor ReceiveChannelData. It never blocks: a
// response for an id nobody is waiting on (an abandoned call, or a
// device bug) is logged and dropped, exactly as spec section 4.C
// requires ("the worker never blocks on any single caller").
func (c *correlator) deliver(f frame) {
	if f.id == 0 {
		return
	}
	c.mu.Lock()
	ch, ok := c.pending[f.id]
	if ok {
		delete(c.pending, f.id)
	}
	c.mu.Unlock()
	if !ok {
		c.log.Debug("dropped unmatched response frame", zap.Uint8("id", f.id), zap.Stringer("kind", f.kind))
		return
	}
	select {
	case ch <- f:
	default:
		// Channel is buffered 1 and only ever written once; this arm is
		// unreachable in practice but guards against a future misuse
		// that double-delivers the same id.
	}
}
