package passthru

// Protocol enumerates the bus protocols the device can speak. Values
// match the J2534 standard (and J2534Common::Protocol in the original
// firmware driver) exactly.
type Protocol uint32

const (
	ProtocolJ1850VPW    Protocol = 0x01
	ProtocolJ1850PWM    Protocol = 0x02
	ProtocolISO9141     Protocol = 0x03
	ProtocolISO14230    Protocol = 0x04
	ProtocolCAN         Protocol = 0x05
	ProtocolISO15765    Protocol = 0x06
	ProtocolSCIAEngine  Protocol = 0x07
	ProtocolSCIATrans   Protocol = 0x08
	ProtocolSCIBEngine  Protocol = 0x09
	ProtocolSCIBTrans   Protocol = 0x0A
)

func (p Protocol) String() string {
	switch p {
	case ProtocolJ1850VPW:
		return "J1850VPW"
	case ProtocolJ1850PWM:
		return "J1850PWM"
	case ProtocolISO9141:
		return "ISO9141"
	case ProtocolISO14230:
		return "ISO14230"
	case ProtocolCAN:
		return "CAN"
	case ProtocolISO15765:
		return "ISO15765"
	case ProtocolSCIAEngine:
		return "SCI_A_ENGINE"
	case ProtocolSCIATrans:
		return "SCI_A_TRANS"
	case ProtocolSCIBEngine:
		return "SCI_B_ENGINE"
	case ProtocolSCIBTrans:
		return "SCI_B_TRANS"
	default:
		return "Unknown"
	}
}

// parseProtocol validates a raw protocol id from the ABI boundary.
func parseProtocol(raw uint32) (Protocol, bool) {
	p := Protocol(raw)
	switch p {
	case ProtocolJ1850VPW, ProtocolJ1850PWM, ProtocolISO9141, ProtocolISO14230,
		ProtocolCAN, ProtocolISO15765, ProtocolSCIAEngine, ProtocolSCIATrans,
		ProtocolSCIBEngine, ProtocolSCIBTrans:
		return p, true
	default:
		return 0, false
	}
}

// busFamily is the physical bus grouping a Protocol belongs to; the
// channel registry holds exactly one slot per family.
type busFamily int

const (
	familyCAN busFamily = iota
	familyKLine
	familyJ1850
	familySCI
	familyCount
)

func (f busFamily) String() string {
	switch f {
	case familyCAN:
		return "CAN"
	case familyKLine:
		return "K-Line"
	case familyJ1850:
		return "J1850"
	case familySCI:
		return "SCI"
	default:
		return "Unknown"
	}
}

// familyOf maps a concrete Protocol to its BusFamily slot, per spec
// section 3.
func familyOf(p Protocol) busFamily {
	switch p {
	case ProtocolCAN, ProtocolISO15765:
		return familyCAN
	case ProtocolISO9141, ProtocolISO14230:
		return familyKLine
	case ProtocolJ1850VPW, ProtocolJ1850PWM:
		return familyJ1850
	case ProtocolSCIAEngine, ProtocolSCIATrans, ProtocolSCIBEngine, ProtocolSCIBTrans:
		return familySCI
	default:
		return familyCount // never reached, caller validates protocol first
	}
}

// FilterType enumerates the kinds of message filters a channel can hold.
type FilterType uint32

const (
	FilterPass         FilterType = 0x01
	FilterBlock        FilterType = 0x02
	FilterFlowControl  FilterType = 0x03
)

func parseFilterType(raw uint32) (FilterType, bool) {
	t := FilterType(raw)
	switch t {
	case FilterPass, FilterBlock, FilterFlowControl:
		return t, true
	default:
		return 0, false
	}
}
