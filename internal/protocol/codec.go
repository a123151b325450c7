// Package protocol frames the handshake a sender writes before the file
// bytes: magic, version, big-endian payload length, protobuf payload.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var (
	ErrBadMagic           = errors.New("bad frame magic")
	ErrUnsupportedVersion = errors.New("unsupported protocol version")
	ErrFrameTooLarge      = errors.New("frame too large")
	ErrMalformedFrame     = errors.New("malformed frame")
)

type Codec struct{}

func NewCodec() *Codec {
	return &Codec{}
}

func (c *Codec) Encode(m Metadata) ([]byte, error) {
	payload := m.marshal()
	if len(payload) > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(payload))
	}

	frame := make([]byte, HeaderSize, HeaderSize+len(payload))
	copy(frame, Magic)
	frame[len(Magic)] = Version
	binary.BigEndian.PutUint32(frame[len(Magic)+1:], uint32(len(payload)))

	return append(frame, payload...), nil
}

// Decode reads exactly one frame from r and nothing more.
func (c *Codec) Decode(r io.Reader) (Metadata, error) {
	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return Metadata{}, fmt.Errorf("reading frame header: %w", err)
	}

	if string(header[:len(Magic)]) != Magic {
		return Metadata{}, fmt.Errorf("%w: %q", ErrBadMagic, header[:len(Magic)])
	}
	if v := header[len(Magic)]; v != Version {
		return Metadata{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}

	size := binary.BigEndian.Uint32(header[len(Magic)+1:])
	if size > MaxFrameSize {
		return Metadata{}, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, size)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Metadata{}, fmt.Errorf("reading frame payload: %w", err)
	}

	var m Metadata
	if err := m.unmarshal(payload); err != nil {
		return Metadata{}, err
	}
	return m, nil
}
