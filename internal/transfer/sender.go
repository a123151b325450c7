package transfer

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/rudransh-shrivastava/peer-drop/internal/peer"
	"github.com/rudransh-shrivastava/peer-drop/internal/protocol"
	"github.com/rudransh-shrivastava/peer-drop/internal/transport"
	"github.com/sirupsen/logrus"
)

// Sender serves files, one connection per file, from a single address.
// Calls to Send must not overlap.
type Sender struct {
	cfg    SenderConfig
	codec  *protocol.Codec
	logger *logrus.Logger

	mu         sync.Mutex
	ln         *net.TCPListener
	addr       peer.Address
	stickyPort uint16
	session    *Session

	canceledIdle atomic.Bool
}

func NewSender(cfg SenderConfig) *Sender {
	cfg = cfg.withDefaults()
	return &Sender{
		cfg:    cfg,
		codec:  protocol.NewCodec(),
		logger: cfg.Logger,
	}
}

// Bind opens the listening socket if it is not open yet and returns the
// address to hand to the receiver.
func (s *Sender) Bind() (peer.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ln != nil {
		return s.addr, nil
	}

	port := s.cfg.Port
	if port == 0 {
		port = s.stickyPort
	}

	addr, ln, err := peer.Bind(s.cfg.IP, port)
	if err != nil && s.cfg.Port == 0 && port != 0 {
		s.logger.WithFields(logrus.Fields{"port": port, "error": err}).Warn("Previous port unavailable, picking a new one")
		addr, ln, err = peer.Bind(s.cfg.IP, 0)
	}
	if err != nil {
		return peer.Address{}, err
	}

	s.ln = ln
	s.addr = addr
	s.stickyPort = addr.Port
	s.logger.WithFields(logrus.Fields{"addr": addr.AddrPort().String(), "token": addr.Encode()}).Debug("Listening")
	return addr, nil
}

// Address returns the last bound address, or the zero Address.
func (s *Sender) Address() peer.Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Send serves path to exactly one receiver. Cancellation through ctx or
// Cancel yields a Result in StateCanceled and a nil error.
func (s *Sender) Send(ctx context.Context, path string) (Result, error) {
	sess := newSession()
	s.setSession(sess)
	res := newResult(sess, DirectionSend)
	res.Path = path
	res.FileName = filepath.Base(path)

	log := s.logger.WithFields(logrus.Fields{"session": sess.ID, "file": res.FileName})

	if s.canceledIdle.Swap(false) || ctx.Err() != nil {
		sess.Cancel()
		s.closeListener()
		return settle(sess, res, nil)
	}
	stop := context.AfterFunc(ctx, sess.Cancel)
	defer stop()

	f, err := os.Open(path)
	if err != nil {
		s.closeListener()
		return settle(sess, res, fmt.Errorf("%w: %w", ErrIOFailure, err))
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		s.closeListener()
		return settle(sess, res, fmt.Errorf("%w: %w", ErrIOFailure, err))
	}
	if !info.Mode().IsRegular() {
		s.closeListener()
		return settle(sess, res, fmt.Errorf("%w: %s is not a regular file", ErrIOFailure, path))
	}
	total := uint64(info.Size())
	sess.total.Store(total)
	res.TotalBytes = total

	addr, err := s.Bind()
	if err != nil {
		return settle(sess, res, err)
	}
	res.Peer = addr
	ln := s.takeListener()

	log.WithFields(logrus.Fields{"addr": addr.AddrPort().String(), "size": total}).Info("Waiting for a connection")

	unregister := sess.token.OnCancel(func() { _ = ln.Close() })
	ch, err := transport.AcceptOnce(ln, s.cfg.AcceptTimeout, s.cfg.Transport)
	unregister()
	if err != nil {
		return settle(sess, res, err)
	}
	defer func() { _ = ch.Close() }()
	sess.token.OnCancel(func() { _ = ch.Close() })

	remote := ch.RemoteAddr()
	res.Remote = remote.String()
	log = log.WithField("remote", res.Remote)

	frame, err := s.codec.Encode(protocol.Metadata{FileName: res.FileName, FileSize: total})
	if err != nil {
		return settle(sess, res, err)
	}
	if err := ch.WriteExact(frame); err != nil {
		return settle(sess, res, err)
	}

	sess.setState(StateTransferring)
	s.cfg.Listener.OnConnected(remote.Addr().String(), remote.Port(), res.FileName, total)
	log.Debug("Peer connected, streaming")

	if err := s.stream(sess, f, ch, total); err != nil {
		log.WithError(err).Debug("Stream interrupted")
		return settle(sess, res, err)
	}

	if err := ch.Close(); err != nil {
		log.WithError(err).Debug("Close after send")
	}
	if sess.complete() {
		log.Info("File sent")
	}
	return settle(sess, res, nil)
}

func (s *Sender) stream(sess *Session, r io.Reader, ch *transport.Channel, total uint64) error {
	if total == 0 {
		s.cfg.Listener.OnProgressUpdate(0, 0)
		return nil
	}

	buf := make([]byte, s.cfg.BufferSize)
	var sent uint64
	for sent < total {
		n := uint64(len(buf))
		if rem := total - sent; rem < n {
			n = rem
		}

		if _, err := io.ReadFull(r, buf[:n]); err != nil {
			return fmt.Errorf("%w: reading source after %d of %d bytes: %w", ErrIOFailure, sent, total, err)
		}
		if err := ch.WriteExact(buf[:n]); err != nil {
			return err
		}

		sent += n
		sess.transferred.Store(sent)
		s.cfg.Listener.OnProgressUpdate(sent, total)
	}
	return nil
}

// Cancel aborts the transfer in flight. Before the first Send it makes that
// Send return canceled, and later calls run normally. After a finished
// transfer it does nothing.
func (s *Sender) Cancel() {
	s.mu.Lock()
	sess := s.session
	s.mu.Unlock()

	if sess == nil {
		s.canceledIdle.Store(true)
		s.closeListener()
		return
	}
	sess.Cancel()
}

func (s *Sender) IsCanceled() bool {
	if s.canceledIdle.Load() {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session != nil && s.session.IsCanceled()
}

// Snapshot reports the current or last session.
func (s *Sender) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return Snapshot{}
	}
	return s.session.Snapshot()
}

// Close releases a listener that was bound but never used.
func (s *Sender) Close() error {
	s.closeListener()
	return nil
}

func (s *Sender) setSession(sess *Session) {
	s.mu.Lock()
	s.session = sess
	s.mu.Unlock()
}

func (s *Sender) takeListener() *net.TCPListener {
	s.mu.Lock()
	defer s.mu.Unlock()
	ln := s.ln
	s.ln = nil
	return ln
}

func (s *Sender) closeListener() {
	if ln := s.takeListener(); ln != nil {
		_ = ln.Close()
	}
}
