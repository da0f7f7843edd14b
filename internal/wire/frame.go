package wire

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// maxFrameSize guards against a corrupt or hostile length prefix causing
// an unbounded allocation.
const maxFrameSize = 16 << 20 // 16 MiB

// WriteRequest frames and writes req to w.
func WriteRequest(w io.Writer, req Request) error {
	return writeFrame(w, req)
}

// ReadRequest reads and decodes one framed Request from r.
func ReadRequest(r io.Reader) (Request, error) {
	var req Request
	err := readFrame(r, &req)
	return req, err
}

// WriteReply frames and writes rep to w.
func WriteReply(w io.Writer, rep Reply) error {
	return writeFrame(w, rep)
}

// ReadReply reads and decodes one framed Reply from r.
func ReadReply(r io.Reader) (Reply, error) {
	var rep Reply
	err := readFrame(r, &rep)
	return rep, err
}

func writeFrame(w io.Writer, v any) error {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("wire: encoding frame: %w", err)
	}

	var lenPrefix [4]byte
	binary.BigEndian.PutUint32(lenPrefix[:], uint32(len(data)))

	if _, err := w.Write(lenPrefix[:]); err != nil {
		return fmt.Errorf("wire: writing frame length: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("wire: writing frame body: %w", err)
	}
	return nil
}

func readFrame(r io.Reader, v any) error {
	var lenPrefix [4]byte
	if _, err := io.ReadFull(r, lenPrefix[:]); err != nil {
		return err
	}
	n := binary.BigEndian.Uint32(lenPrefix[:])
	if n > maxFrameSize {
		return fmt.Errorf("wire: frame of %d bytes exceeds maximum of %d", n, maxFrameSize)
	}

	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return fmt.Errorf("wire: reading frame body: %w", err)
	}

	if err := msgpack.Unmarshal(data, v); err != nil {
		return fmt.Errorf("wire: decoding frame: %w", err)
	}
	return nil
}
