package passthru

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Deadlines for synchronous device round-trips: 250 ms for close,
// set-filter, ReadBatt and GetFwVersion; 100 ms for everything else,
// including OpenChannel.
const (
	deadlineOpenChannel    = 100 * time.Millisecond
	deadlineCloseChannel   = 250 * time.Millisecond
	deadlineSetFilter      = 250 * time.Millisecond
	deadlineRemoveFilter   = 100 * time.Millisecond
	deadlineTransmit       = 100 * time.Millisecond
	deadlineReadBatt       = 250 * time.Millisecond
	deadlineGetFwVersion   = 250 * time.Millisecond
)

// commandSender is the transport's surface the registry needs; kept as
// an interface so registry tests can swap in a mock device (spec
// section 8's S1-S6 scenarios all hinge on this seam).
type commandSender interface {
	sendAndAwait(k kind, payload []byte, deadline time.Duration) (frame, error)
	sendFireAndForget(k kind, payload []byte) error
}

// registry is the channel registry, component D: a fixed table of four
// slots indexed by BusFamily, each either empty or holding one channel.
// Grounded on the teacher's clients map[byte]*client in modbus.go, but
// the slot set is fixed-size and keyed by BusFamily rather than growing
// per remote unit.
type registry struct {
	mu   sync.RWMutex
	slot [familyCount]*channel

	sender commandSender
	log    *zap.Logger
}

func newRegistry(log *zap.Logger) *registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &registry{log: log}
}

// bindSender wires the transport in after both have been constructed,
// breaking the construction cycle (the transport needs the registry as
// a receiveSink, the registry needs the transport as a commandSender).
func (r *registry) bindSender(s commandSender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sender = s
}

// create opens a new channel for protocol, per spec section 4.D.
func (r *registry) create(protocol Protocol, baud, flags uint32) (byte, error) {
	fam := familyOf(protocol)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.slot[fam] != nil {
		return 0, newErr(ChannelInUse, "a channel for bus family %v is already open", fam)
	}
	payload := new(payloadBuilder).dword(uint32(fam)).dword(uint32(protocol)).dword(baud).dword(flags).build()
	resp, err := r.sender.sendAndAwait(kindOpenChannel, payload, deadlineOpenChannel)
	if err != nil {
		return 0, err
	}
	if code, msg := statusOf(resp.payload); code != Success {
		return 0, newErr(code, "device refused to open channel: %s", msg)
	}
	r.slot[fam] = newChannel(byte(fam), protocol, baud, flags)
	return byte(fam), nil
}

// destroy closes the channel at id. The slot is removed before the
// device round-trip, per spec section 4.D: "if the device refuses, the
// slot remains empty (the channel is considered lost)."
func (r *registry) destroy(id byte) error {
	r.mu.Lock()
	ch := r.getLocked(id)
	if ch == nil {
		r.mu.Unlock()
		return newErr(InvalidChannelID, "no channel open with id %d", id)
	}
	r.slot[id] = nil
	sender := r.sender
	r.mu.Unlock()

	payload := new(payloadBuilder).dword(uint32(id)).build()
	resp, err := sender.sendAndAwait(kindCloseChannel, payload, deadlineCloseChannel)
	if err != nil {
		return err
	}
	if code, msg := statusOf(resp.payload); code != Success {
		return newErr(code, "device refused to close channel: %s", msg)
	}
	return nil
}

// destroyAll tears down every occupied slot unconditionally, for device
// handle teardown (spec section 4.D).
func (r *registry) destroyAll() {
	r.mu.Lock()
	ids := make([]byte, 0, familyCount)
	for i, ch := range r.slot {
		if ch != nil {
			ids = append(ids, byte(i))
		}
	}
	r.mu.Unlock()
	for _, id := range ids {
		if err := r.destroy(id); err != nil {
			r.log.Warn("error closing channel during teardown", zap.Uint8("channel", id), zap.Error(err))
		}
	}
}

// get returns the channel at id, or nil if the slot is empty or id is
// out of range.
func (r *registry) get(id byte) *channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.getLocked(id)
}

func (r *registry) getLocked(id byte) *channel {
	if int(id) >= len(r.slot) {
		return nil
	}
	return r.slot[id]
}

// addFilter installs a filter on the channel at id, per spec section 4.D.
func (r *registry) addFilter(id byte, ftype FilterType, mask, pattern, flow []byte) (int, error) {
	ch := r.get(id)
	if ch == nil {
		return 0, newErr(InvalidChannelID, "no channel open with id %d", id)
	}
	idx := ch.lowestFreeFilter()
	if idx < 0 {
		return 0, newErr(ExceededLimit, "channel %d already has %d filters", id, maxFilters)
	}
	payload := new(payloadBuilder).
		dword(uint32(id)).
		dword(uint32(idx)).
		dword(uint32(ftype)).
		dword(uint32(len(mask))).
		dword(uint32(len(pattern))).
		dword(uint32(len(flow))).
		bytes(mask...).bytes(pattern...).bytes(flow...).
		build()
	r.mu.RLock()
	sender := r.sender
	r.mu.RUnlock()
	resp, err := sender.sendAndAwait(kindSetChannelFilter, payload, deadlineSetFilter)
	if err != nil {
		return 0, err
	}
	if code, msg := statusOf(resp.payload); code != Success {
		return 0, newErr(code, "device refused filter: %s", msg)
	}
	ch.setFilter(idx, ftype, mask, pattern, flow)
	return idx, nil
}

// removeFilter uninstalls filterIndex from the channel at id.
func (r *registry) removeFilter(id byte, filterIndex int) error {
	ch := r.get(id)
	if ch == nil {
		return newErr(InvalidChannelID, "no channel open with id %d", id)
	}
	if !ch.filterInUse(filterIndex) {
		return newErr(InvalidMsgID, "filter %d is not in use on channel %d", filterIndex, id)
	}
	payload := new(payloadBuilder).dword(uint32(id)).dword(uint32(filterIndex)).build()
	r.mu.RLock()
	sender := r.sender
	r.mu.RUnlock()
	resp, err := sender.sendAndAwait(kindRemoveChannelFilter, payload, deadlineRemoveFilter)
	if err != nil {
		return err
	}
	if code, msg := statusOf(resp.payload); code != Success {
		return newErr(code, "device refused filter removal: %s", msg)
	}
	ch.clearFilter(filterIndex)
	return nil
}

// transmit sends msg out on the channel at id, per spec section 4.D.
func (r *registry) transmit(id byte, msg Msg, requireResponse bool) error {
	ch := r.get(id)
	if ch == nil {
		return newErr(InvalidChannelID, "no channel open with id %d", id)
	}
	if msg.ProtocolID != ch.protocol {
		return newErr(MsgProtocolID, "message protocol %v does not match channel protocol %v", msg.ProtocolID, ch.protocol)
	}
	payload := new(payloadBuilder).dword(uint32(id)).dword(msg.TxFlags).bytes(msg.Data...).build()
	r.mu.RLock()
	sender := r.sender
	r.mu.RUnlock()
	if !requireResponse {
		return sender.sendFireAndForget(kindTransmitChannelData, payload)
	}
	resp, err := sender.sendAndAwait(kindTransmitChannelData, payload, deadlineTransmit)
	if err != nil {
		return err
	}
	if code, msg := statusOf(resp.payload); code != Success {
		return newErr(code, "device rejected transmit: %s", msg)
	}
	return nil
}

// popRx removes and returns the oldest buffered message on channel id.
func (r *registry) popRx(id byte) (Msg, bool, error) {
	ch := r.get(id)
	if ch == nil {
		return Msg{}, false, newErr(InvalidChannelID, "no channel open with id %d", id)
	}
	m, ok := ch.popRx()
	return m, ok, nil
}

// onReceive implements receiveSink: it enqueues an inbound frame onto
// the right channel's receive queue, or drops it silently if the
// channel is gone (a race with Disconnect), per spec section 4.D.
func (r *registry) onReceive(channelID byte, rxFlags uint32, payload []byte) {
	ch := r.get(channelID)
	if ch == nil {
		return
	}
	msg := newRxMsg(ch.protocol, rxFlags, append([]byte(nil), payload...))
	if dropped := ch.enqueueRx(msg); dropped {
		r.log.Warn("receive queue full, dropping inbound message", zap.Uint8("channel", channelID))
	}
}

// statusOf unpacks the leading status byte every response payload
// carries, per spec section 6: "Response payload starts with a single
// status byte: 0x00 = success; any other value is a J2534 error code.
// On failure the remaining payload is UTF-8 error text."
func statusOf(payload []byte) (Code, string) {
	if len(payload) == 0 {
		return Failed, "empty response payload"
	}
	code := Code(payload[0])
	if code == Success {
		return Success, ""
	}
	return code, string(payload[1:])
}
