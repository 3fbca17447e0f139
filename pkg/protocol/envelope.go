package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Frame types, per spec.md §6.
const (
	TypeQuery    byte = 1
	TypeResponse byte = 2
	TypeError    byte = 3
)

// maxFrameLen bounds a single query_id or payload length, guarding
// against a corrupt or hostile length prefix turning into an
// unbounded allocation.
const maxFrameLen = 64 << 20 // 64 MiB

// WriteEnvelope writes one frame: a type byte, a length-prefixed
// query_id, and a length-prefixed payload.
func WriteEnvelope(w io.Writer, msgType byte, queryID string, payload []byte) error {
	if _, err := w.Write([]byte{msgType}); err != nil {
		return fmt.Errorf("protocol: write type byte: %w", err)
	}
	if err := writeLenPrefixed(w, []byte(queryID)); err != nil {
		return fmt.Errorf("protocol: write query_id: %w", err)
	}
	if err := writeLenPrefixed(w, payload); err != nil {
		return fmt.Errorf("protocol: write payload: %w", err)
	}
	return nil
}

func writeLenPrefixed(w io.Writer, b []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(b)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// ReadEnvelope reads one frame written by WriteEnvelope. An unknown
// msgType is not itself an error here; spec.md §6 makes "unknown type
// ⇒ connection reset" the caller's (pkg/server's) responsibility.
func ReadEnvelope(r io.Reader) (msgType byte, queryID string, payload []byte, err error) {
	var typeBuf [1]byte
	if _, err = io.ReadFull(r, typeBuf[:]); err != nil {
		return 0, "", nil, err
	}
	msgType = typeBuf[0]

	qidBytes, err := readLenPrefixed(r)
	if err != nil {
		return 0, "", nil, fmt.Errorf("protocol: read query_id: %w", err)
	}
	queryID = string(qidBytes)

	payload, err = readLenPrefixed(r)
	if err != nil {
		return 0, "", nil, fmt.Errorf("protocol: read payload: %w", err)
	}
	return msgType, queryID, payload, nil
}

func readLenPrefixed(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > maxFrameLen {
		return nil, fmt.Errorf("protocol: frame length %d exceeds max %d", n, maxFrameLen)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
