package passthru

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

/*
transport is the serial transport worker, component B. It is the only
entity that ever reads from or writes to the serial port: a single
goroutine (run) owns the port exclusively, draining an outbound queue
and demultiplexing inbound frames by kind, following the single-
reader/single-writer goroutine shape of the teacher's rtu.wireReader /
rtu.wireWriter pair, collapsed into one loop because spec section 4.B
requires write-then-read-then-dispatch to happen in a fixed order each
iteration rather than as independent goroutines.
*/

const (
	readChunk          = 4 * frameSize // rolling buffer of at least four frame-sizes (16 KiB)
	idlePoll           = 10 * time.Microsecond
	outboundQueueDepth = 256
)

// receiveSink receives inbound channel-data frames, decoupling the
// transport from the channel registry's concrete type.
type receiveSink interface {
	onReceive(channelID byte, rxFlags uint32, payload []byte)
}

type transport struct {
	port   serialPort
	corr   *correlator
	sink   receiveSink
	logDev deviceLogSink
	log    *zap.Logger

	outbound chan []byte
	stopping int32
	wg       sync.WaitGroup
}

// openTransport opens the serial port with the fixed parameters spec
// section 6 mandates and starts the worker goroutine. Per spec section
// 4.B, failing to write the initial "status=running" frame marks the
// transport dead before any caller sees it.
func openTransport(path string, corr *correlator, sink receiveSink, logDev deviceLogSink, log *zap.Logger) (*transport, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if logDev == nil {
		logDev = nopLogSink{}
	}
	port, err := openSerialPort(path)
	if err != nil {
		return nil, errFailedF("opening serial port %s: %v", path, err)
	}
	t := &transport{
		port:     port,
		corr:     corr,
		sink:     sink,
		logDev:   logDev,
		log:      log,
		outbound: make(chan []byte, outboundQueueDepth),
	}
	running, err := encodeFrame(0, kindStatusMsg, []byte{0x01})
	if err != nil {
		port.Close()
		return nil, errFailedF("encoding startup status frame: %v", err)
	}
	if _, err := port.Write(running); err != nil {
		port.Close()
		return nil, errFailedF("writing startup status frame to %s: %v", path, err)
	}
	t.wg.Add(1)
	go t.run()
	return t, nil
}

// sendAndAwait assigns a correlation id, enqueues the frame, and blocks
// the caller until the device responds or deadline elapses.
func (t *transport) sendAndAwait(k kind, payload []byte, deadline time.Duration) (frame, error) {
	id := t.corr.allocate()
	ch := t.corr.register(id)
	buf, err := encodeFrame(id, k, payload)
	if err != nil {
		t.corr.abandon(id)
		return frame{}, errFailedF("encoding %v request: %v", k, err)
	}
	t.outbound <- buf
	return t.corr.await(id, ch, deadline)
}

// sendFireAndForget stamps id 0 and enqueues without waiting for a
// response.
func (t *transport) sendFireAndForget(k kind, payload []byte) error {
	buf, err := encodeFrame(0, k, payload)
	if err != nil {
		return errFailedF("encoding %v request: %v", k, err)
	}
	t.outbound <- buf
	return nil
}

// stop signals the worker to exit, waits for it to join, then closes
// the port. It is safe to call more than once.
func (t *transport) stop() {
	if !atomic.CompareAndSwapInt32(&t.stopping, 0, 1) {
		t.wg.Wait()
		return
	}
	t.wg.Wait()
	t.port.Close()
}

func (t *transport) run() {
	defer t.wg.Done()
	acc := make([]byte, 0, readChunk)
	readBuf := make([]byte, readChunk)
	for {
		progressed := t.drainOutbound()

		if atomic.LoadInt32(&t.stopping) != 0 {
			t.sendStopFrame()
			return
		}

		n, err := t.port.Read(readBuf)
		if err != nil {
			t.log.Debug("serial read error", zap.Error(err))
		}
		if n > 0 {
			acc = append(acc, readBuf[:n]...)
			progressed = true
		}

		for len(acc) >= frameSize {
			f, ferr := decodeFrame(acc[:frameSize])
			acc = acc[frameSize:]
			if ferr != nil {
				t.log.Warn("dropping malformed frame", zap.Error(ferr))
				continue
			}
			t.dispatch(f)
		}

		if !progressed {
			time.Sleep(idlePoll)
		}
	}
}

// drainOutbound writes every frame currently queued, without blocking
// for more. It reports whether it wrote anything so the caller can
// decide whether the loop made progress this iteration.
func (t *transport) drainOutbound() bool {
	progressed := false
	for {
		select {
		case buf := <-t.outbound:
			if _, err := t.port.Write(buf); err != nil {
				t.log.Warn("serial write error", zap.Error(err))
			}
			progressed = true
		default:
			return progressed
		}
	}
}

func (t *transport) sendStopFrame() {
	stopping, err := encodeFrame(0, kindStatusMsg, []byte{0x00})
	if err != nil {
		return
	}
	if _, err := t.port.Write(stopping); err != nil {
		t.log.Warn("failed to write shutdown status frame", zap.Error(err))
	}
}

// dispatch routes a decoded frame by kind, per spec section 4.B.
func (t *transport) dispatch(f frame) {
	switch f.kind {
	case kindLogMsg:
		t.logDev.LogDeviceMessage(string(f.payload))
	case kindReceiveChannelData:
		t.dispatchChannelData(f.payload)
	case kindUnknown:
		t.log.Warn("received frame of unknown kind, ignoring")
	default:
		t.corr.deliver(f)
	}
}

func (t *transport) dispatchChannelData(payload []byte) {
	if len(payload) < 8 {
		t.log.Warn("ReceiveChannelData frame too short", zap.Int("len", len(payload)))
		return
	}
	r := newPayloadReader(payload)
	channelID, _ := r.dword()
	rxFlags, _ := r.dword()
	t.sink.onReceive(byte(channelID), rxFlags, r.remaining())
}
