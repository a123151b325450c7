package transport

import (
	"context"
	"net"
	"time"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultKeepAlive      = 10 * time.Second
	defaultSocketBuffer   = 4 * 1024 * 1024
)

// Dialer is satisfied by *net.Dialer.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

type Config struct {
	// ConnectTimeout bounds Connect. Zero means no bound beyond the context.
	ConnectTimeout time.Duration
	KeepAlive      time.Duration
	SocketBuffer   int
	Dialer         Dialer
}

func DefaultConfig() Config {
	return Config{
		ConnectTimeout: defaultConnectTimeout,
		KeepAlive:      defaultKeepAlive,
		SocketBuffer:   defaultSocketBuffer,
	}
}

// WithDefaults fills zero fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = d.ConnectTimeout
	}
	if c.KeepAlive == 0 {
		c.KeepAlive = d.KeepAlive
	}
	if c.SocketBuffer == 0 {
		c.SocketBuffer = d.SocketBuffer
	}
	return c
}

func (c Config) dialer() Dialer {
	if c.Dialer != nil {
		return c.Dialer
	}
	return &net.Dialer{KeepAlive: c.KeepAlive}
}

func tuneSock(conn net.Conn, cfg Config) {
	tcp, ok := conn.(*net.TCPConn)
	if !ok {
		return
	}
	_ = tcp.SetNoDelay(true)
	if cfg.KeepAlive > 0 {
		_ = tcp.SetKeepAlive(true)
		_ = tcp.SetKeepAlivePeriod(cfg.KeepAlive)
	}
	if cfg.SocketBuffer > 0 {
		_ = tcp.SetReadBuffer(cfg.SocketBuffer)
		_ = tcp.SetWriteBuffer(cfg.SocketBuffer)
	}
}
