package passthru

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChannelFilterTableFillsAndReports(t *testing.T) {
	ch := newChannel(0, ProtocolCAN, 500000, 0)
	for i := 0; i < maxFilters; i++ {
		idx := ch.lowestFreeFilter()
		assert.Equal(t, i, idx)
		ch.setFilter(idx, FilterPass, nil, nil, nil)
	}
	assert.Equal(t, -1, ch.lowestFreeFilter())

	ch.clearFilter(3)
	assert.Equal(t, 3, ch.lowestFreeFilter())
	assert.False(t, ch.filterInUse(3))
	assert.True(t, ch.filterInUse(4))
}

func TestChannelRxQueueDropsAtCapacity(t *testing.T) {
	ch := newChannel(0, ProtocolCAN, 500000, 0)
	for i := 0; i < maxRxQueue; i++ {
		dropped := ch.enqueueRx(Msg{ProtocolID: ProtocolCAN})
		assert.False(t, dropped)
	}
	dropped := ch.enqueueRx(Msg{ProtocolID: ProtocolCAN})
	assert.True(t, dropped)
	assert.Equal(t, uint64(1), ch.dropCount())
	assert.Equal(t, maxRxQueue, ch.rxLen())
}

func TestChannelPopRxIsFIFO(t *testing.T) {
	ch := newChannel(0, ProtocolCAN, 500000, 0)
	ch.enqueueRx(Msg{TxFlags: 1})
	ch.enqueueRx(Msg{TxFlags: 2})

	m, ok := ch.popRx()
	assert.True(t, ok)
	assert.Equal(t, uint32(1), m.TxFlags)

	m, ok = ch.popRx()
	assert.True(t, ok)
	assert.Equal(t, uint32(2), m.TxFlags)

	_, ok = ch.popRx()
	assert.False(t, ok)
}

func TestChannelClearRx(t *testing.T) {
	ch := newChannel(0, ProtocolCAN, 500000, 0)
	ch.enqueueRx(Msg{})
	ch.clearRx()
	assert.Equal(t, 0, ch.rxLen())
}
