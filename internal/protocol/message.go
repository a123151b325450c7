package protocol

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Metadata is sent once by the sender before the file contents. Exactly
// FileSize bytes follow it on the wire.
type Metadata struct {
	FileName string
	FileSize uint64
}

func (m Metadata) marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldFileName, protowire.BytesType)
	b = protowire.AppendString(b, m.FileName)
	b = protowire.AppendTag(b, fieldFileSize, protowire.VarintType)
	b = protowire.AppendVarint(b, m.FileSize)
	return b
}

func (m *Metadata) unmarshal(b []byte) error {
	var seenName, seenSize bool

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: tag: %w", ErrMalformedFrame, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldFileName && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return fmt.Errorf("%w: file name: %w", ErrMalformedFrame, protowire.ParseError(n))
			}
			m.FileName = v
			seenName = true
			b = b[n:]
		case num == fieldFileSize && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("%w: file size: %w", ErrMalformedFrame, protowire.ParseError(n))
			}
			m.FileSize = v
			seenSize = true
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("%w: field %d: %w", ErrMalformedFrame, num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}

	if !seenName || !seenSize {
		return fmt.Errorf("%w: missing file name or size", ErrMalformedFrame)
	}
	return nil
}
