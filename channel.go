package passthru

import "sync"

// maxFilters is the J2534-standard filter table size per channel.
const maxFilters = 10

// maxRxQueue is the bounded receive queue capacity per channel, per
// spec section 3.
const maxRxQueue = 100

// filterEntry is one slot of a channel's filter table.
type filterEntry struct {
	inUse   bool
	ftype   FilterType
	mask    []byte
	pattern []byte
	flow    []byte
}

// channel is the per-slot state the registry owns for one open protocol
// session. Its own operations never touch the wire: they only update the
// local filter table and receive queue, while the registry builds the
// frames and sends them through its commandSender, keeping the registry
// the single owner of the "who talks to whom" logic described in spec
// section 4.D.
type channel struct {
	id           byte
	protocol     Protocol
	baudRate     uint32
	connectFlags uint32

	mu      sync.Mutex
	filters [maxFilters]filterEntry
	rx      []Msg // bounded FIFO, oldest at index 0
	rxDrops uint64
}

func newChannel(id byte, protocol Protocol, baud, flags uint32) *channel {
	return &channel{
		id:           id,
		protocol:     protocol,
		baudRate:     baud,
		connectFlags: flags,
	}
}

// lowestFreeFilter returns the lowest unused filter index, or -1 if the
// table is full.
func (c *channel) lowestFreeFilter() int {
	for i := range c.filters {
		if !c.filters[i].inUse {
			return i
		}
	}
	return -1
}

func (c *channel) setFilter(idx int, ftype FilterType, mask, pattern, flow []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filters[idx] = filterEntry{inUse: true, ftype: ftype, mask: mask, pattern: pattern, flow: flow}
}

func (c *channel) clearFilter(idx int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filters[idx] = filterEntry{}
}

func (c *channel) filterInUse(idx int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if idx < 0 || idx >= maxFilters {
		return false
	}
	return c.filters[idx].inUse
}

// enqueueRx appends msg to the receive queue, dropping the newest
// arrival when the queue is already at maxRxQueue, per spec section 3's
// invariant rx_queue.len() <= 100 and section 4.D's on_receive
// semantics. It reports whether the message was dropped.
func (c *channel) enqueueRx(msg Msg) (dropped bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.rx) >= maxRxQueue {
		c.rxDrops++
		return true
	}
	c.rx = append(c.rx, msg)
	return false
}

// popRx removes and returns the oldest buffered message, if any.
func (c *channel) popRx() (Msg, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.rx) == 0 {
		return Msg{}, false
	}
	m := c.rx[0]
	c.rx = c.rx[1:]
	return m, true
}

// clearRx empties the receive queue without a device round-trip, for
// the ClearRxBuffer IOCTL.
func (c *channel) clearRx() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rx = nil
}

// rxLen reports the current queue depth, used by tests and diagnostics.
func (c *channel) rxLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.rx)
}

// dropCount reports how many inbound messages have been dropped for
// overflow since the channel was created; clearRx does not reset it.
func (c *channel) dropCount() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rxDrops
}
