package protocol

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadEnvelopeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteEnvelope(&buf, TypeQuery, "q-1", []byte(`{"term":{}}`)))

	msgType, queryID, payload, err := ReadEnvelope(&buf)
	require.NoError(t, err)
	assert.Equal(t, TypeQuery, msgType)
	assert.Equal(t, "q-1", queryID)
	assert.Equal(t, []byte(`{"term":{}}`), payload)
}

func TestReadEnvelopeMultipleFrames(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteEnvelope(&buf, TypeQuery, "a", []byte("1")))
	require.NoError(t, WriteEnvelope(&buf, TypeResponse, "b", []byte("2")))

	_, qid1, p1, err := ReadEnvelope(&buf)
	require.NoError(t, err)
	assert.Equal(t, "a", qid1)
	assert.Equal(t, []byte("1"), p1)

	_, qid2, p2, err := ReadEnvelope(&buf)
	require.NoError(t, err)
	assert.Equal(t, "b", qid2)
	assert.Equal(t, []byte("2"), p2)
}

func TestReadEnvelopeEmptyPayload(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteEnvelope(&buf, TypeError, "", nil))

	msgType, queryID, payload, err := ReadEnvelope(&buf)
	require.NoError(t, err)
	assert.Equal(t, TypeError, msgType)
	assert.Empty(t, queryID)
	assert.Empty(t, payload)
}

func TestReadEnvelopeEOF(t *testing.T) {
	_, _, _, err := ReadEnvelope(strings.NewReader(""))
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadEnvelopeRejectsOversizedFrame(t *testing.T) {
	var lenBuf [4]byte
	// type byte + an oversized length prefix, no body needed: the
	// length check fires before any read of the body is attempted.
	buf := append([]byte{TypeQuery}, lenBuf[:]...)
	buf[1] = 0xFF // length = 0xFFFFFFFF once combined below
	buf[2] = 0xFF
	buf[3] = 0xFF
	buf[4] = 0xFF

	_, _, _, err := ReadEnvelope(bytes.NewReader(buf))
	assert.Error(t, err)
}
