package protocol

import "google.golang.org/protobuf/encoding/protowire"

const (
	Version      byte = 1
	HeaderSize        = len(Magic) + 1 + 4
	MaxFrameSize      = 64 * 1024
)

// Magic opens every handshake frame.
const Magic = "PDRP"

const (
	fieldFileName protowire.Number = 1
	fieldFileSize protowire.Number = 2
)
