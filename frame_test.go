package passthru

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeFrameRoundTrip(t *testing.T) {
	payload := []byte{0x01, 0x02, 0x03, 0x04}
	buf, err := encodeFrame(7, kindTransmitChannelData, payload)
	require.NoError(t, err)
	assert.Len(t, buf, frameSize)

	f, err := decodeFrame(buf)
	require.NoError(t, err)
	assert.Equal(t, byte(7), f.id)
	assert.Equal(t, kindTransmitChannelData, f.kind)
	assert.Equal(t, payload, f.payload)
}

func TestEncodeFrameRejectsOversizePayload(t *testing.T) {
	_, err := encodeFrame(1, kindTransmitChannelData, make([]byte, maxPayload+1))
	assert.Error(t, err)
}

func TestDecodeFrameRejectsTruncatedBuffer(t *testing.T) {
	_, err := decodeFrame([]byte{0x02, 0x00, 0x01})
	assert.Error(t, err)
}

func TestDecodeFrameRejectsBadLength(t *testing.T) {
	buf := make([]byte, frameSize)
	setWordLE(buf, 0, 1) // lenPlus2 < 2 is invalid
	_, err := decodeFrame(buf)
	assert.Error(t, err)
}

func TestDecodeFrameMapsUnrecognizedKindToUnknown(t *testing.T) {
	buf, err := encodeFrame(3, kindTransmitChannelData, nil)
	require.NoError(t, err)
	buf[3] = 0x7F // not a kind the wire protocol defines

	f, err := decodeFrame(buf)
	require.NoError(t, err)
	assert.Equal(t, kindUnknown, f.kind)
}

func TestParseKindPassesThroughKnownValues(t *testing.T) {
	assert.Equal(t, kindStatusMsg, parseKind(byte(kindStatusMsg)))
	assert.Equal(t, kindUnknown, parseKind(0xFF))
}

func TestPayloadBuilderAndReaderRoundTrip(t *testing.T) {
	payload := new(payloadBuilder).dword(42).dword(500000).bytes(0xDE, 0xAD, 0xBE, 0xEF).build()
	r := newPayloadReader(payload)
	a, err := r.dword()
	require.NoError(t, err)
	b, err := r.dword()
	require.NoError(t, err)
	assert.Equal(t, uint32(42), a)
	assert.Equal(t, uint32(500000), b)
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, r.remaining())
}

func TestPayloadReaderErrorsOnShortRead(t *testing.T) {
	r := newPayloadReader([]byte{0x01, 0x02})
	_, err := r.dword()
	assert.Error(t, err)
}
