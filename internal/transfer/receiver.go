package transfer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/rudransh-shrivastava/peer-drop/internal/files"
	"github.com/rudransh-shrivastava/peer-drop/internal/peer"
	"github.com/rudransh-shrivastava/peer-drop/internal/protocol"
	"github.com/rudransh-shrivastava/peer-drop/internal/transport"
	"github.com/sirupsen/logrus"
)

// Receiver downloads files from senders. Calls to ReceiveFrom must not
// overlap.
type Receiver struct {
	cfg    ReceiverConfig
	codec  *protocol.Codec
	logger *logrus.Logger

	mu         sync.Mutex
	session    *Session
	outputFile string

	canceledIdle atomic.Bool
}

func NewReceiver(cfg ReceiverConfig) *Receiver {
	cfg = cfg.withDefaults()
	return &Receiver{
		cfg:    cfg,
		codec:  protocol.NewCodec(),
		logger: cfg.Logger,
	}
}

// ReceiveFrom connects to addr and stores the announced file through the
// configured FileProvider. On cancellation or failure the partial file is
// removed; if that fails the error is kept in Result.Warnings.
func (r *Receiver) ReceiveFrom(ctx context.Context, addr peer.Address) (Result, error) {
	sess := newSession()
	r.mu.Lock()
	r.session = sess
	r.outputFile = ""
	r.mu.Unlock()

	res := newResult(sess, DirectionReceive)
	res.Peer = addr
	res.Remote = addr.AddrPort().String()

	log := r.logger.WithFields(logrus.Fields{"session": sess.ID, "peer": addr.Encode()})

	if r.canceledIdle.Swap(false) || ctx.Err() != nil {
		sess.Cancel()
		return settle(sess, res, nil)
	}
	stop := context.AfterFunc(ctx, sess.Cancel)
	defer stop()

	log.WithField("addr", res.Remote).Info("Connecting to peer")

	dialCtx, cancelDial := context.WithCancel(ctx)
	unregister := sess.token.OnCancel(cancelDial)
	ch, err := transport.Connect(dialCtx, addr.AddrPort(), r.cfg.Transport)
	unregister()
	cancelDial()
	if err != nil {
		return settle(sess, res, err)
	}
	defer func() { _ = ch.Close() }()
	sess.token.OnCancel(func() { _ = ch.Close() })

	meta, err := r.codec.Decode(ch)
	if err != nil {
		return settle(sess, res, handshakeError(err))
	}

	name := files.SanitizeName(meta.FileName)
	res.FileName = name
	res.TotalBytes = meta.FileSize
	sess.total.Store(meta.FileSize)
	log = log.WithFields(logrus.Fields{"file": name, "size": meta.FileSize})

	f, err := r.cfg.Files.NewFile(name)
	if err != nil {
		return settle(sess, res, fmt.Errorf("%w: creating %s: %w", ErrIOFailure, name, err))
	}
	res.Path = f.Name()
	r.mu.Lock()
	r.outputFile = f.Name()
	r.mu.Unlock()

	sess.setState(StateTransferring)
	r.cfg.Listener.OnConnected(addr.IP.String(), addr.Port, name, meta.FileSize)

	err = r.stream(sess, ch, f, meta.FileSize)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("%w: closing %s: %w", ErrIOFailure, f.Name(), cerr)
	}
	_ = ch.Close()

	if err == nil && sess.complete() {
		log.WithField("path", res.Path).Info("File received")
		return settle(sess, res, nil)
	}

	if rmErr := os.Remove(f.Name()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		warn := fmt.Errorf("partial file %s left behind: %w", f.Name(), rmErr)
		res.Warnings = append(res.Warnings, warn)
		log.WithError(rmErr).Warn("Could not delete incomplete file")
	} else {
		log.Debug("Deleted incomplete file")
	}
	r.mu.Lock()
	r.outputFile = ""
	r.mu.Unlock()

	return settle(sess, res, err)
}

func (r *Receiver) stream(sess *Session, ch *transport.Channel, f *os.File, total uint64) error {
	if total == 0 {
		r.cfg.Listener.OnProgressUpdate(0, 0)
		return nil
	}

	buf := make([]byte, r.cfg.BufferSize)
	var received uint64
	for received < total {
		n := uint64(len(buf))
		if rem := total - received; rem < n {
			n = rem
		}

		if err := ch.ReadExact(buf[:n]); err != nil {
			return err
		}
		if _, err := f.Write(buf[:n]); err != nil {
			return fmt.Errorf("%w: writing %s: %w", ErrIOFailure, f.Name(), err)
		}

		received += n
		sess.transferred.Store(received)
		r.cfg.Listener.OnProgressUpdate(received, total)
	}
	return nil
}

// OutputFile is the path of the last completed or in-progress download.
// It is empty once a partial file has been discarded.
func (r *Receiver) OutputFile() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outputFile
}

// Cancel aborts the transfer in flight, including a pending connect. Before
// the first ReceiveFrom it makes only that call return canceled. It does
// nothing once a transfer has finished.
func (r *Receiver) Cancel() {
	r.mu.Lock()
	sess := r.session
	r.mu.Unlock()

	if sess == nil {
		r.canceledIdle.Store(true)
		return
	}
	sess.Cancel()
}

func (r *Receiver) IsCanceled() bool {
	if r.canceledIdle.Load() {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session != nil && r.session.IsCanceled()
}

func (r *Receiver) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return Snapshot{}
	}
	return r.session.Snapshot()
}

// handshakeError maps a short read during the handshake onto the channel
// taxonomy; codec errors pass through.
func handshakeError(err error) error {
	if errors.Is(err, transport.ErrChannelClosed) ||
		errors.Is(err, transport.ErrConnectionTimeout) ||
		errors.Is(err, transport.ErrIOFailure) {
		return fmt.Errorf("reading handshake: %w", err)
	}
	return fmt.Errorf("%w: handshake: %w", ErrIOFailure, err)
}
