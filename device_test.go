package passthru

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenFailsWhenDiscoveryErrors(t *testing.T) {
	orig := discoverPort
	discoverPort = func() (string, error) { return "", errors.New("no port configured") }
	defer func() { discoverPort = orig }()

	_, err := Open(nil, nil)
	require.Error(t, err)
	assert.Equal(t, Failed, codeOf(err))
}

func TestOpenFailsWhenDeviceAlreadyOpen(t *testing.T) {
	deviceMu.Lock()
	deviceCur = &Device{}
	deviceMu.Unlock()
	defer func() {
		deviceMu.Lock()
		deviceCur = nil
		deviceMu.Unlock()
	}()

	_, err := Open(nil, nil)
	require.Error(t, err)
	assert.Equal(t, DeviceInUse, codeOf(err))
}

func TestCloseIsIdempotentAgainstMissingDevice(t *testing.T) {
	assert.NoError(t, Close(deviceID))
	assert.NoError(t, Close(0xDEAD))
}

func TestHandleReportsDeviceNotConnected(t *testing.T) {
	deviceMu.Lock()
	deviceCur = nil
	deviceMu.Unlock()

	_, err := Handle(deviceID)
	require.Error(t, err)
	assert.Equal(t, DeviceNotConnected, codeOf(err))
}

func TestHandleRejectsWrongID(t *testing.T) {
	deviceMu.Lock()
	deviceCur = &Device{}
	deviceMu.Unlock()
	defer func() {
		deviceMu.Lock()
		deviceCur = nil
		deviceMu.Unlock()
	}()

	_, err := Handle(0x9999)
	require.Error(t, err)
	assert.Equal(t, InvalidDeviceID, codeOf(err))
}

func TestLastErrorRoundTrip(t *testing.T) {
	setLastError(newErr(Timeout, "slow"))
	assert.Equal(t, "slow", GetLastError())
	setLastError(nil)
	assert.Equal(t, "", GetLastError())
}

func TestReadMsgsZeroTimeoutReturnsBufferEmptyImmediately(t *testing.T) {
	r, _ := newTestRegistry()
	id, err := r.create(ProtocolCAN, 500000, 0)
	require.NoError(t, err)
	d := &Device{registry: r}

	start := time.Now()
	got, err := d.ReadMsgs(id, 4, 0)
	require.Error(t, err)
	assert.Equal(t, BufferEmpty, codeOf(err))
	assert.Empty(t, got)
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestReadMsgsZeroTimeoutReturnsWhatIsAlreadyQueued(t *testing.T) {
	r, _ := newTestRegistry()
	id, err := r.create(ProtocolCAN, 500000, 0)
	require.NoError(t, err)
	ch := r.get(id)
	ch.enqueueRx(newRxMsg(ProtocolCAN, 0, []byte{1}))
	ch.enqueueRx(newRxMsg(ProtocolCAN, 0, []byte{2}))
	d := &Device{registry: r}

	got, err := d.ReadMsgs(id, 4, 0)
	require.Error(t, err)
	assert.Equal(t, BufferEmpty, codeOf(err))
	require.Len(t, got, 2)
	assert.Equal(t, []byte{1}, got[0].Data)
	assert.Equal(t, []byte{2}, got[1].Data)
}

func TestReadMsgsPositiveTimeoutPollsUntilMessagesArrive(t *testing.T) {
	r, _ := newTestRegistry()
	id, err := r.create(ProtocolCAN, 500000, 0)
	require.NoError(t, err)
	ch := r.get(id)
	d := &Device{registry: r}

	go func() {
		time.Sleep(15 * time.Millisecond)
		ch.enqueueRx(newRxMsg(ProtocolCAN, 0, []byte{0xAA}))
	}()

	got, err := d.ReadMsgs(id, 1, 200)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []byte{0xAA}, got[0].Data)
}

func TestReadMsgsPositiveTimeoutExpiresWithTimeoutError(t *testing.T) {
	r, _ := newTestRegistry()
	id, err := r.create(ProtocolCAN, 500000, 0)
	require.NoError(t, err)
	d := &Device{registry: r}

	start := time.Now()
	got, err := d.ReadMsgs(id, 1, 30)
	elapsed := time.Since(start)
	require.Error(t, err)
	assert.Equal(t, Timeout, codeOf(err))
	assert.Empty(t, got)
	assert.GreaterOrEqual(t, elapsed, 30*time.Millisecond)
}
