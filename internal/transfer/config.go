package transfer

import (
	"net/netip"
	"os"
	"time"

	"github.com/rudransh-shrivastava/peer-drop/internal/files"
	"github.com/rudransh-shrivastava/peer-drop/internal/logger"
	"github.com/rudransh-shrivastava/peer-drop/internal/transport"
	"github.com/sirupsen/logrus"
)

const (
	DefaultBufferSize = 32 * 1024
	minBufferSize     = 8 * 1024
	maxBufferSize     = 64 * 1024
)

// FileProvider creates the destination for an incoming file. The returned
// file must be new and empty.
type FileProvider interface {
	NewFile(name string) (*os.File, error)
}

type SenderConfig struct {
	// IP to listen on. The zero value picks the local network address.
	IP netip.Addr
	// Port to listen on. Zero lets the OS pick one; it is then reused for
	// every later file of the same Sender.
	Port uint16
	// AcceptTimeout bounds the wait for a receiver. Zero waits forever.
	AcceptTimeout time.Duration
	BufferSize    int
	Transport     transport.Config
	Listener      Listener
	Logger        *logrus.Logger
}

type ReceiverConfig struct {
	// Dir receives files when Files is nil.
	Dir        string
	Files      FileProvider
	BufferSize int
	Transport  transport.Config
	Listener   Listener
	Logger     *logrus.Logger
}

func DefaultSenderConfig() SenderConfig {
	return SenderConfig{
		BufferSize: DefaultBufferSize,
		Transport:  transport.DefaultConfig(),
	}
}

func DefaultReceiverConfig() ReceiverConfig {
	return ReceiverConfig{
		Dir:        ".",
		BufferSize: DefaultBufferSize,
		Transport:  transport.DefaultConfig(),
	}
}

func (c SenderConfig) withDefaults() SenderConfig {
	c.BufferSize = clampBuffer(c.BufferSize)
	c.Transport = c.Transport.WithDefaults()
	if c.Listener == nil {
		c.Listener = NopListener{}
	}
	if c.Logger == nil {
		c.Logger = logger.NewLogger()
	}
	return c
}

func (c ReceiverConfig) withDefaults() ReceiverConfig {
	c.BufferSize = clampBuffer(c.BufferSize)
	c.Transport = c.Transport.WithDefaults()
	if c.Files == nil {
		c.Files = files.DirProvider{Dir: c.Dir}
	}
	if c.Listener == nil {
		c.Listener = NopListener{}
	}
	if c.Logger == nil {
		c.Logger = logger.NewLogger()
	}
	return c
}

func clampBuffer(n int) int {
	switch {
	case n == 0:
		return DefaultBufferSize
	case n < minBufferSize:
		return minBufferSize
	case n > maxBufferSize:
		return maxBufferSize
	}
	return n
}
