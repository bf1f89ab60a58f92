package passthru

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFamilyOfGroupsProtocolsCorrectly(t *testing.T) {
	cases := map[Protocol]busFamily{
		ProtocolCAN:        familyCAN,
		ProtocolISO15765:   familyCAN,
		ProtocolISO9141:    familyKLine,
		ProtocolISO14230:   familyKLine,
		ProtocolJ1850VPW:   familyJ1850,
		ProtocolJ1850PWM:   familyJ1850,
		ProtocolSCIAEngine: familySCI,
		ProtocolSCIATrans:  familySCI,
		ProtocolSCIBEngine: familySCI,
		ProtocolSCIBTrans:  familySCI,
	}
	for proto, want := range cases {
		assert.Equal(t, want, familyOf(proto), "protocol %v", proto)
	}
}

func TestParseProtocolRejectsUnknownValues(t *testing.T) {
	_, ok := parseProtocol(0xFF)
	assert.False(t, ok)

	p, ok := parseProtocol(uint32(ProtocolCAN))
	assert.True(t, ok)
	assert.Equal(t, ProtocolCAN, p)
}

func TestParseFilterTypeRejectsUnknownValues(t *testing.T) {
	_, ok := parseFilterType(0)
	assert.False(t, ok)

	ft, ok := parseFilterType(uint32(FilterFlowControl))
	assert.True(t, ok)
	assert.Equal(t, FilterFlowControl, ft)
}
