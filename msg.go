package passthru

import "time"

// maxMsgData is the J2534-standard PASSTHRU_MSG data capacity.
const maxMsgData = 4128

// Msg is the on-ABI message record used for both transmit and receive.
// Its layout is fixed by the J2534 specification; Data is carried as a
// slice here rather than the fixed [4128]byte array the C struct uses —
// the cgo adapter in cmd/passthrudll is responsible for copying to and
// from the caller's fixed-size buffer.
type Msg struct {
	ProtocolID    Protocol
	RxStatus      uint32
	TxFlags       uint32
	TimestampUs   uint32
	Data          []byte
	ExtraDataLen  uint32
}

// newRxMsg builds a receive-side Msg stamped with the current time, per
// spec section 3: "timestamp_us is set by the driver from a monotonic
// clock at the moment the frame arrives, expressed in microseconds since
// the system epoch truncated to 32 bits."
func newRxMsg(protocol Protocol, rxFlags uint32, data []byte) Msg {
	return Msg{
		ProtocolID:  protocol,
		RxStatus:    rxFlags,
		Data:        data,
		TimestampUs: nowMicros(),
	}
}

// nowMicros returns the current wall-clock time in microseconds,
// truncated to 32 bits. Per spec section 9, this wraps roughly every 71
// minutes; consumers are expected to tolerate the wrap.
func nowMicros() uint32 {
	return uint32(time.Now().UnixMicro())
}
