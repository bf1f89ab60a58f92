package passthru

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSender is a commandSender that always answers success, recording
// every frame it was asked to send so tests can assert on wire shape.
type mockSender struct {
	mu  sync.Mutex
	got []frame

	// respond overrides the canned success reply per kind, for tests
	// that need a specific failure or payload.
	respond map[kind]func(payload []byte) frame
}

func newMockSender() *mockSender {
	return &mockSender{respond: make(map[kind]func(payload []byte) frame)}
}

func (m *mockSender) sendAndAwait(k kind, payload []byte, deadline time.Duration) (frame, error) {
	m.mu.Lock()
	m.got = append(m.got, frame{kind: k, payload: payload})
	m.mu.Unlock()
	if fn, ok := m.respond[k]; ok {
		return fn(payload), nil
	}
	return frame{kind: k, payload: []byte{byte(Success)}}, nil
}

func (m *mockSender) sendFireAndForget(k kind, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.got = append(m.got, frame{kind: k, payload: payload})
	return nil
}

func newTestRegistry() (*registry, *mockSender) {
	r := newRegistry(nil)
	s := newMockSender()
	r.bindSender(s)
	return r, s
}

func TestRegistryCreateAndDestroy(t *testing.T) {
	r, _ := newTestRegistry()
	id, err := r.create(ProtocolISO15765, 500000, 0)
	require.NoError(t, err)
	assert.Equal(t, byte(familyCAN), id)
	assert.NotNil(t, r.get(id))

	require.NoError(t, r.destroy(id))
	assert.Nil(t, r.get(id))
}

func TestRegistryCreateFailsWhenFamilyInUse(t *testing.T) {
	r, _ := newTestRegistry()
	_, err := r.create(ProtocolCAN, 500000, 0)
	require.NoError(t, err)

	_, err = r.create(ProtocolISO15765, 500000, 0) // same family: CAN
	require.Error(t, err)
	assert.Equal(t, ChannelInUse, codeOf(err))
}

func TestRegistryCreatePropagatesDeviceFailure(t *testing.T) {
	r, s := newTestRegistry()
	s.respond[kindOpenChannel] = func(payload []byte) frame {
		return frame{kind: kindOpenChannel, payload: append([]byte{byte(InvalidBaudrate)}, "bad baud"...)}
	}
	_, err := r.create(ProtocolCAN, 1, 0)
	require.Error(t, err)
	assert.Equal(t, InvalidBaudrate, codeOf(err))
	assert.Nil(t, r.get(byte(familyCAN)))
}

func TestRegistryDestroyRemovesSlotBeforeDeviceRoundTrip(t *testing.T) {
	r, s := newTestRegistry()
	id, err := r.create(ProtocolCAN, 500000, 0)
	require.NoError(t, err)

	s.respond[kindCloseChannel] = func(payload []byte) frame {
		return frame{kind: kindCloseChannel, payload: append([]byte{byte(Failed)}, "nope"...)}
	}
	err = r.destroy(id)
	require.Error(t, err)
	// Per spec: even on device refusal, the slot stays empty.
	assert.Nil(t, r.get(id))
}

func TestRegistryFilterAddUpToLimitThenExceeded(t *testing.T) {
	r, _ := newTestRegistry()
	id, err := r.create(ProtocolCAN, 500000, 0)
	require.NoError(t, err)

	for i := 0; i < maxFilters; i++ {
		idx, err := r.addFilter(id, FilterPass, []byte{0xFF}, []byte{0x01}, nil)
		require.NoError(t, err)
		assert.Equal(t, i, idx)
	}
	_, err = r.addFilter(id, FilterPass, []byte{0xFF}, []byte{0x01}, nil)
	require.Error(t, err)
	assert.Equal(t, ExceededLimit, codeOf(err))
}

func TestRegistryTransmitRejectsWrongProtocol(t *testing.T) {
	r, _ := newTestRegistry()
	id, err := r.create(ProtocolCAN, 500000, 0)
	require.NoError(t, err)

	err = r.transmit(id, Msg{ProtocolID: ProtocolJ1850VPW, Data: []byte{0x01}}, true)
	require.Error(t, err)
	assert.Equal(t, MsgProtocolID, codeOf(err))
}

func TestRegistryTransmitFireAndForgetSkipsAwait(t *testing.T) {
	r, s := newTestRegistry()
	id, err := r.create(ProtocolCAN, 500000, 0)
	require.NoError(t, err)

	err = r.transmit(id, Msg{ProtocolID: ProtocolCAN, TxFlags: 0, Data: []byte{0x02, 0x01, 0x00}}, false)
	require.NoError(t, err)

	found := false
	for _, f := range s.got {
		if f.kind == kindTransmitChannelData {
			assert.Equal(t, []byte{0x02, 0x01, 0x00}, f.payload[8:])
			found = true
		}
	}
	assert.True(t, found)
}

func TestRegistryOnReceiveEnqueuesAndDropsWhenChannelMissing(t *testing.T) {
	r, _ := newTestRegistry()
	id, err := r.create(ProtocolCAN, 500000, 0)
	require.NoError(t, err)

	r.onReceive(id, 0, []byte{0x01, 0x02})
	m, ok, err := r.popRx(id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte{0x01, 0x02}, m.Data)

	// Receiving for a channel that was never opened must not panic.
	r.onReceive(byte(familyJ1850), 0, []byte{0xAA})
}

func TestStatusOfDecodesSuccessAndFailure(t *testing.T) {
	code, msg := statusOf([]byte{0x00})
	assert.Equal(t, Success, code)
	assert.Empty(t, msg)

	code, msg = statusOf(append([]byte{byte(Timeout)}, "slow device"...))
	assert.Equal(t, Timeout, code)
	assert.Equal(t, "slow device", msg)

	code, _ = statusOf(nil)
	assert.Equal(t, Failed, code)
}
