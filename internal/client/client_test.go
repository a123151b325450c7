package client

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rudransh-shrivastava/peer-drop/internal/db"
	"github.com/rudransh-shrivastava/peer-drop/internal/logger"
	"github.com/rudransh-shrivastava/peer-drop/internal/peer"
	"github.com/rudransh-shrivastava/peer-drop/internal/store"
	"github.com/rudransh-shrivastava/peer-drop/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrinterPlain(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, transfer.DirectionSend, false)

	p.OnConnected("192.168.1.7", 8080, "notes.txt", 2000)
	p.OnProgressUpdate(1000, 2000)
	p.OnProgressUpdate(1500, 2000)
	p.OnProgressUpdate(2000, 2000)
	p.Done()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Connected to 192.168.1.7:8080, notes.txt (2.0 kB)", lines[0])
	assert.Equal(t, "Sent 1.0 kB / 2.0 kB", lines[1])
	assert.Equal(t, "Sent 2.0 kB / 2.0 kB", lines[2])
}

func TestPrinterReceiveVerb(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, transfer.DirectionReceive, false)

	p.OnProgressUpdate(0, 0)
	assert.Equal(t, "Received 0 B / 0 B\n", buf.String())
}

func TestPrinterInteractive(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, transfer.DirectionReceive, true)

	p.OnConnected("127.0.0.1", 9000, "a.bin", 4096)
	p.OnProgressUpdate(4096, 4096)
	p.Done()

	assert.Contains(t, buf.String(), "a.bin")
}

func TestPrinterInteractiveEmptyFile(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, transfer.DirectionReceive, true)

	p.OnConnected("127.0.0.1", 9000, "empty.txt", 0)
	p.OnProgressUpdate(0, 0)
	p.Done()

	assert.Equal(t, "Connected to 127.0.0.1:9000, empty.txt (0 B)\nReceived 0 B / 0 B\n", buf.String())
}

func TestHistoryRecord(t *testing.T) {
	gdb, err := db.Open(":memory:")
	require.NoError(t, err)
	defer func() { _ = db.Close(gdb) }()
	repo := store.NewTransferStore(gdb)

	path := filepath.Join(t.TempDir(), "hello.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))

	res := transfer.Result{
		SessionID:        uuid.New(),
		Direction:        transfer.DirectionReceive,
		State:            transfer.StateCompleted,
		FileName:         "hello.txt",
		Path:             path,
		Peer:             peer.NewAddress(netip.MustParseAddr("127.0.0.1"), 8080),
		BytesTransferred: 11,
		TotalBytes:       11,
		StartedAt:        time.Now().Add(-time.Second),
		FinishedAt:       time.Now(),
		Warnings:         []error{errors.New("partial file left behind")},
	}
	NewHistory(repo, logger.Discard()).Record(context.Background(), res)

	row, err := repo.GetTransferBySessionID(context.Background(), res.SessionID.String())
	require.NoError(t, err)
	assert.Equal(t, "receive", row.Direction)
	assert.Equal(t, "completed", row.State)
	assert.Equal(t, "7F0000011F90", row.PeerToken)
	assert.Equal(t, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", row.Checksum)
	assert.Equal(t, "partial file left behind", row.Warning)
}

func TestHistoryNil(t *testing.T) {
	var h *History
	h.Record(context.Background(), transfer.Result{})
}

func TestReceiveWithRetry(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr, err := peer.AddressFromNet(ln.Addr())
	require.NoError(t, err)
	require.NoError(t, ln.Close())

	path := filepath.Join(t.TempDir(), "late.txt")
	require.NoError(t, os.WriteFile(path, []byte("worth the wait"), 0o644))

	cfg := transfer.DefaultSenderConfig()
	cfg.IP = addr.IP
	cfg.Port = addr.Port
	cfg.Logger = logger.Discard()
	sender := transfer.NewSender(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sent := make(chan error, 1)
	time.AfterFunc(300*time.Millisecond, func() {
		_, err := sender.Send(ctx, path)
		sent <- err
	})

	rcfg := transfer.DefaultReceiverConfig()
	rcfg.Dir = t.TempDir()
	rcfg.Logger = logger.Discard()

	res, err := ReceiveWithRetry(ctx, transfer.NewReceiver(rcfg), addr, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, transfer.StateCompleted, res.State)

	got, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, "worth the wait", string(got))
	require.NoError(t, <-sent)
}

func TestReceiveWithRetryGivesUp(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr, err := peer.AddressFromNet(ln.Addr())
	require.NoError(t, err)
	require.NoError(t, ln.Close())

	rcfg := transfer.DefaultReceiverConfig()
	rcfg.Dir = t.TempDir()
	rcfg.Logger = logger.Discard()

	start := time.Now()
	_, err = ReceiveWithRetry(context.Background(), transfer.NewReceiver(rcfg), addr, 500*time.Millisecond)
	assert.ErrorIs(t, err, transfer.ErrTransferFailed)
	assert.Less(t, time.Since(start), 5*time.Second)
}
