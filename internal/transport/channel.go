// Package transport carries a single file transfer over one TCP connection.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

var (
	ErrConnectionTimeout = errors.New("connection timed out")
	ErrConnectionRefused = errors.New("connection refused")
	ErrChannelClosed     = errors.New("channel closed")
	ErrIOFailure         = errors.New("i/o failure")
)

// Channel is an established, bidirectional byte stream to one peer.
type Channel struct {
	conn      net.Conn
	closed    atomic.Bool
	closeOnce sync.Once
}

func newChannel(conn net.Conn) *Channel {
	return &Channel{conn: conn}
}

// AcceptOnce waits for exactly one peer on ln and closes ln before
// returning. A zero timeout waits forever. Closing ln from another goroutine
// aborts the wait with ErrChannelClosed.
func AcceptOnce(ln *net.TCPListener, timeout time.Duration, cfg Config) (*Channel, error) {
	defer func() { _ = ln.Close() }()

	if timeout > 0 {
		if err := ln.SetDeadline(time.Now().Add(timeout)); err != nil {
			return nil, classify("accept", err, false)
		}
	}

	conn, err := ln.AcceptTCP()
	if err != nil {
		return nil, classify("accept", err, false)
	}
	tuneSock(conn, cfg)

	return newChannel(conn), nil
}

// Connect dials addr, bounded by cfg.ConnectTimeout and ctx.
func Connect(ctx context.Context, addr netip.AddrPort, cfg Config) (*Channel, error) {
	dialCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	conn, err := cfg.dialer().DialContext(dialCtx, "tcp", addr.String())
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return nil, fmt.Errorf("%w: connect %s: %w", ErrChannelClosed, addr, ctx.Err())
		case dialCtx.Err() != nil:
			return nil, fmt.Errorf("%w: connect %s after %s", ErrConnectionTimeout, addr, cfg.ConnectTimeout)
		}
		return nil, classify("connect "+addr.String(), err, false)
	}
	tuneSock(conn, cfg)

	return newChannel(conn), nil
}

// WriteExact writes all of p or fails.
func (c *Channel) WriteExact(p []byte) error {
	n, err := c.conn.Write(p)
	if err != nil {
		return classify("write", err, c.closed.Load())
	}
	if n != len(p) {
		return fmt.Errorf("%w: write: %w", ErrIOFailure, io.ErrShortWrite)
	}
	return nil
}

// ReadExact fills p or fails. A peer that hangs up early yields
// ErrChannelClosed.
func (c *Channel) ReadExact(p []byte) error {
	if _, err := io.ReadFull(c.conn, p); err != nil {
		return classify("read", err, c.closed.Load())
	}
	return nil
}

// Read implements io.Reader. End of stream is reported as ErrChannelClosed
// wrapping io.EOF.
func (c *Channel) Read(p []byte) (int, error) {
	n, err := c.conn.Read(p)
	if err != nil {
		return n, classify("read", err, c.closed.Load())
	}
	return n, nil
}

func (c *Channel) SetDeadline(t time.Time) error {
	return c.conn.SetDeadline(t)
}

func (c *Channel) RemoteAddr() netip.AddrPort {
	if tcp, ok := c.conn.RemoteAddr().(*net.TCPAddr); ok {
		ap := tcp.AddrPort()
		return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port())
	}
	ap, _ := netip.ParseAddrPort(c.conn.RemoteAddr().String())
	return ap
}

// Close may be called any number of times from any goroutine. Pending reads
// and writes fail with ErrChannelClosed.
func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		err = c.conn.Close()
	})
	return err
}

func (c *Channel) IsClosed() bool {
	return c.closed.Load()
}

func classify(op string, err error, closed bool) error {
	var sentinel error
	switch {
	case closed, errors.Is(err, net.ErrClosed):
		sentinel = ErrChannelClosed
	case errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNABORTED),
		errors.Is(err, syscall.EPIPE):
		sentinel = ErrChannelClosed
	case errors.Is(err, syscall.ECONNREFUSED):
		sentinel = ErrConnectionRefused
	case errors.Is(err, os.ErrDeadlineExceeded), isTimeout(err):
		sentinel = ErrConnectionTimeout
	default:
		sentinel = ErrIOFailure
	}
	return fmt.Errorf("%w: %s: %w", sentinel, op, err)
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
