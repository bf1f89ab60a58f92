package passthru

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorrelatorAllocateNeverReturnsZero(t *testing.T) {
	c := newCorrelator(nil)
	for i := 0; i < 512; i++ {
		assert.NotEqual(t, byte(0), c.allocate())
	}
}

func TestCorrelatorDeliverWakesWaiter(t *testing.T) {
	c := newCorrelator(nil)
	id := c.allocate()
	ch := c.register(id)

	go c.deliver(frame{id: id, kind: kindOpenChannel, payload: []byte{0x00}})

	f, err := c.await(id, ch, time.Second)
	require.NoError(t, err)
	assert.Equal(t, id, f.id)
}

func TestCorrelatorAwaitTimesOut(t *testing.T) {
	c := newCorrelator(nil)
	id := c.allocate()
	ch := c.register(id)

	_, err := c.await(id, ch, 10*time.Millisecond)
	require.Error(t, err)
	assert.Equal(t, Timeout, codeOf(err))
}

func TestCorrelatorDeliverIgnoresUnmatchedID(t *testing.T) {
	c := newCorrelator(nil)
	// No register() call for id 9: deliver must not panic or block.
	c.deliver(frame{id: 9, kind: kindOpenChannel})
}

func TestCorrelatorDeliverIgnoresZeroID(t *testing.T) {
	c := newCorrelator(nil)
	c.deliver(frame{id: 0, kind: kindOpenChannel})
}
