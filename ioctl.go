package passthru

import "go.uber.org/zap"

/*
IOCTL sub-operations, component E. The numeric ids below match
J2534Common::IoctlID and J2534Common::IoctlParam in the original
firmware driver exactly, since spec section 6 leaves the exact set
unspecified beyond "GetConfig/SetConfig carry a list of {parameter,
value} pairs" and the only way to avoid guessing at the wire format is
to follow the original.
*/

type ioctlID uint32

const (
	ioctlGetConfig                       ioctlID = 0x01
	ioctlSetConfig                       ioctlID = 0x02
	ioctlReadVbatt                       ioctlID = 0x03
	ioctlFiveBaudInit                    ioctlID = 0x05
	ioctlFastInit                        ioctlID = 0x06
	ioctlClearTxBuffer                   ioctlID = 0x07
	ioctlClearRxBuffer                   ioctlID = 0x08
	ioctlClearPeriodicMsgs               ioctlID = 0x09
	ioctlClearMsgFilters                 ioctlID = 0x0A
	ioctlClearFunctMsgLookupTable        ioctlID = 0x0B
	ioctlAddToFunctMsgLookupTable        ioctlID = 0x0C
	ioctlDeleteFromFunctMsgLookupTable   ioctlID = 0x0D
	ioctlReadProgVoltage                 ioctlID = 0x0E
)

// ioctlParam enumerates the {parameter,value} pair keys GetConfig and
// SetConfig exchange. Ids outside this set (reserved/tool-specific
// values) are logged and skipped by getConfig and setConfig rather than
// rejected; ids 0x20 to 0x25 are part of the set and are forwarded.
type ioctlParam uint32

const (
	paramDataRate        ioctlParam = 0x01
	paramLoopback        ioctlParam = 0x03
	paramNodeAddress     ioctlParam = 0x04
	paramNetworkLine     ioctlParam = 0x05
	paramP1Min           ioctlParam = 0x06
	paramP1Max           ioctlParam = 0x07
	paramP2Min           ioctlParam = 0x08
	paramP2Max           ioctlParam = 0x09
	paramP3Min           ioctlParam = 0x0A
	paramP3Max           ioctlParam = 0x0B
	paramP4Min           ioctlParam = 0x0C
	paramP4Max           ioctlParam = 0x0D
	paramW1              ioctlParam = 0x0E
	paramW2              ioctlParam = 0x0F
	paramW3              ioctlParam = 0x10
	paramW4              ioctlParam = 0x11
	paramW5              ioctlParam = 0x12
	paramTidle           ioctlParam = 0x13
	paramTinl            ioctlParam = 0x14
	paramTwup            ioctlParam = 0x15
	paramParity          ioctlParam = 0x16
	paramBitSamplePoint  ioctlParam = 0x17
	paramSynchJumpWidth  ioctlParam = 0x18
	paramW0              ioctlParam = 0x19
	paramT1Max           ioctlParam = 0x1A
	paramT2Max           ioctlParam = 0x1B
	paramT4Max           ioctlParam = 0x1C
	paramT5Max           ioctlParam = 0x1D
	paramISO15765BS      ioctlParam = 0x1E
	paramISO15765STmin   ioctlParam = 0x1F
	paramDataBits        ioctlParam = 0x20
	paramFiveBaudMod     ioctlParam = 0x21
	paramBSTx            ioctlParam = 0x22
	paramSTminTx         ioctlParam = 0x23
	paramT3Max           ioctlParam = 0x24
	paramISO15765WFTMax  ioctlParam = 0x25
)

func isKnownParam(p ioctlParam) bool {
	switch p {
	case paramDataRate, paramLoopback, paramNodeAddress, paramNetworkLine,
		paramP1Min, paramP1Max, paramP2Min, paramP2Max, paramP3Min, paramP3Max,
		paramP4Min, paramP4Max, paramW0, paramW1, paramW2, paramW3, paramW4, paramW5,
		paramTidle, paramTinl, paramTwup, paramParity, paramBitSamplePoint,
		paramSynchJumpWidth, paramT1Max, paramT2Max, paramT3Max, paramT4Max, paramT5Max,
		paramISO15765BS, paramISO15765STmin, paramDataBits, paramFiveBaudMod,
		paramBSTx, paramSTminTx, paramISO15765WFTMax:
		return true
	default:
		return false
	}
}

// configPair is one {parameter, value} entry of a GetConfig/SetConfig
// list, per spec section 6.
type configPair struct {
	Parameter uint32
	Value     uint32
}

// ioctlHandler carries out the device-facing IOCTL sub-operations that
// need the registry, the sender, and the logger together. It is reached
// only through the Device wrappers in device.go, which the ABI layer in
// cmd/passthrudll and the ptcli command call.
type ioctlHandler struct {
	reg    *registry
	sender commandSender
	log    *zap.Logger
}

func newIoctlHandler(reg *registry, sender commandSender, log *zap.Logger) *ioctlHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ioctlHandler{reg: reg, sender: sender, log: log}
}

// readVbatt performs the ReadBatt round-trip and returns millivolts, per
// spec section 4.D/6. The original firmware's get_battery used a 250 ms
// deadline; the spec's 100/250 ms split doesn't name ReadBatt
// explicitly, so that value is carried over here rather than guessed.
func (h *ioctlHandler) readVbatt() (uint32, error) {
	resp, err := h.sender.sendAndAwait(kindReadBatt, nil, deadlineReadBatt)
	if err != nil {
		return 0, err
	}
	if code, msg := statusOf(resp.payload); code != Success {
		return 0, newErr(code, "device refused ReadBatt: %s", msg)
	}
	r := newPayloadReader(resp.payload[1:])
	mv, err := r.dword()
	if err != nil {
		return 0, errFailedF("decoding ReadBatt response: %v", err)
	}
	return mv, nil
}

// clearTxBuffer and clearRxBuffer are local-only operations: they never
// round-trip to the device, per spec section 4.D.
func (h *ioctlHandler) clearRxBuffer(channelID byte) error {
	ch := h.reg.get(channelID)
	if ch == nil {
		return newErr(InvalidChannelID, "no channel open with id %d", channelID)
	}
	ch.clearRx()
	return nil
}

func (h *ioctlHandler) clearTxBuffer(channelID byte) error {
	if h.reg.get(channelID) == nil {
		return newErr(InvalidChannelID, "no channel open with id %d", channelID)
	}
	// The outbound queue is the transport's, not the channel's; there is
	// nothing channel-specific to discard, so this is a structural no-op
	// that exists only to accept the IOCTL without error.
	return nil
}

// getConfig reads back device-held configuration values, per spec
// section 6. Unrecognized parameter ids are skipped with a warning
// rather than rejected, matching setConfig's tolerance.
func (h *ioctlHandler) getConfig(channelID byte, params []uint32) ([]configPair, error) {
	if h.reg.get(channelID) == nil {
		return nil, newErr(InvalidChannelID, "no channel open with id %d", channelID)
	}
	accepted := make([]uint32, 0, len(params))
	for _, p := range params {
		if !isKnownParam(ioctlParam(p)) {
			h.log.Warn("skipping reserved/unknown GetConfig parameter", zap.Uint32("parameter", p))
			continue
		}
		accepted = append(accepted, p)
	}
	b := new(payloadBuilder).dword(uint32(channelID)).dword(uint32(len(accepted)))
	for _, p := range accepted {
		b.dword(p)
	}
	resp, err := h.sender.sendAndAwait(kindIoctlGet, b.build(), deadlineTransmit)
	if err != nil {
		return nil, err
	}
	if code, msg := statusOf(resp.payload); code != Success {
		return nil, newErr(code, "device refused GetConfig: %s", msg)
	}
	r := newPayloadReader(resp.payload[1:])
	count, err := r.dword()
	if err != nil {
		return nil, errFailedF("decoding GetConfig response: %v", err)
	}
	out := make([]configPair, 0, count)
	for i := uint32(0); i < count; i++ {
		param, err1 := r.dword()
		value, err2 := r.dword()
		if err1 != nil || err2 != nil {
			return nil, errFailedF("truncated GetConfig response at entry %d", i)
		}
		out = append(out, configPair{Parameter: param, Value: value})
	}
	return out, nil
}

// setConfig pushes configuration values to the device. Parameter ids
// that isKnownParam does not recognize are logged and skipped rather
// than rejected.
func (h *ioctlHandler) setConfig(channelID byte, pairs []configPair) error {
	if h.reg.get(channelID) == nil {
		return newErr(InvalidChannelID, "no channel open with id %d", channelID)
	}
	accepted := make([]configPair, 0, len(pairs))
	for _, p := range pairs {
		if !isKnownParam(ioctlParam(p.Parameter)) {
			h.log.Warn("skipping reserved/unknown SetConfig parameter", zap.Uint32("parameter", p.Parameter))
			continue
		}
		accepted = append(accepted, p)
	}
	b := new(payloadBuilder).dword(uint32(channelID)).dword(uint32(len(accepted)))
	for _, p := range accepted {
		b.dword(p.Parameter).dword(p.Value)
	}
	resp, err := h.sender.sendAndAwait(kindIoctlSet, b.build(), deadlineTransmit)
	if err != nil {
		return err
	}
	if code, msg := statusOf(resp.payload); code != Success {
		return newErr(code, "device refused SetConfig: %s", msg)
	}
	return nil
}

// acknowledgedStub covers the IOCTLs the original firmware accepts but
// never actually performs on this hardware (ReadProgVoltage,
// FiveBaudInit, FastInit, the periodic-message and lookup-table
// clears). Per spec section 4.D these return success with a warning
// logged rather than NotSupported, so that scan tools which
// unconditionally issue them during session setup don't abort.
func (h *ioctlHandler) acknowledgedStub(id ioctlID) error {
	h.log.Warn("IOCTL acknowledged but not implemented on this hardware", zap.Uint32("ioctl", uint32(id)))
	return nil
}
