package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"strings"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
)

func TestCodecMetadata(t *testing.T) {
	codec := NewCodec()

	frame, err := codec.Encode(Metadata{FileName: "report.pdf", FileSize: 10 << 20})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	r := bytes.NewReader(append(frame, "trailing file bytes"...))
	decoded, err := codec.Decode(r)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if decoded.FileName != "report.pdf" {
		t.Errorf("Expected 'report.pdf', got '%s'", decoded.FileName)
	}
	if decoded.FileSize != 10<<20 {
		t.Errorf("Expected size %d, got %d", 10<<20, decoded.FileSize)
	}

	rest, _ := io.ReadAll(r)
	if string(rest) != "trailing file bytes" {
		t.Errorf("Decode consumed past the frame, left %q", rest)
	}
}

func TestCodecEmptyFile(t *testing.T) {
	codec := NewCodec()

	frame, err := codec.Encode(Metadata{FileName: "empty", FileSize: 0})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, err := codec.Decode(bytes.NewReader(frame))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.FileSize != 0 || decoded.FileName != "empty" {
		t.Errorf("unexpected metadata %+v", decoded)
	}
}

func TestCodecSkipsUnknownFields(t *testing.T) {
	payload := Metadata{FileName: "a.txt", FileSize: 3}.marshal()
	payload = protowire.AppendTag(payload, 9, protowire.BytesType)
	payload = protowire.AppendString(payload, "future")

	decoded, err := NewCodec().Decode(bytes.NewReader(frameOf(payload)))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.FileName != "a.txt" || decoded.FileSize != 3 {
		t.Errorf("unexpected metadata %+v", decoded)
	}
}

func TestCodecRejects(t *testing.T) {
	valid, _ := NewCodec().Encode(Metadata{FileName: "x", FileSize: 1})

	badMagic := append([]byte(nil), valid...)
	copy(badMagic, "HTTP")

	badVersion := append([]byte(nil), valid...)
	badVersion[len(Magic)] = 9

	tooLarge := append([]byte(nil), valid[:HeaderSize]...)
	binary.BigEndian.PutUint32(tooLarge[len(Magic)+1:], MaxFrameSize+1)

	tests := []struct {
		name  string
		frame []byte
		want  error
	}{
		{"bad magic", badMagic, ErrBadMagic},
		{"bad version", badVersion, ErrUnsupportedVersion},
		{"too large", tooLarge, ErrFrameTooLarge},
		{"missing size", frameOf(protowire.AppendString(protowire.AppendTag(nil, 1, protowire.BytesType), "x")), ErrMalformedFrame},
		{"garbage payload", frameOf([]byte{0xff, 0xff, 0xff}), ErrMalformedFrame},
	}

	for _, tt := range tests {
		_, err := NewCodec().Decode(bytes.NewReader(tt.frame))
		if !errors.Is(err, tt.want) {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, err)
		}
	}
}

func TestCodecTruncated(t *testing.T) {
	frame, _ := NewCodec().Encode(Metadata{FileName: strings.Repeat("n", 40), FileSize: 1})

	_, err := NewCodec().Decode(bytes.NewReader(frame[:len(frame)-5]))
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected io.ErrUnexpectedEOF, got %v", err)
	}
}

func frameOf(payload []byte) []byte {
	frame := make([]byte, HeaderSize)
	copy(frame, Magic)
	frame[len(Magic)] = Version
	binary.BigEndian.PutUint32(frame[len(Magic)+1:], uint32(len(payload)))
	return append(frame, payload...)
}
