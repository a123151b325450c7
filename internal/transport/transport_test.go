package transport

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/netip"
	"testing"
	"time"
)

func listenLoopback(t *testing.T) (*net.TCPListener, netip.AddrPort) {
	t.Helper()
	ln, err := net.ListenTCP("tcp", &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenTCP failed: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	return ln, ln.Addr().(*net.TCPAddr).AddrPort()
}

// pair returns both ends of an accepted connection.
func pair(t *testing.T) (server, client *Channel) {
	t.Helper()
	ln, addr := listenLoopback(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	accepted := make(chan *Channel, 1)
	errChan := make(chan error, 1)

	go func() {
		ch, err := AcceptOnce(ln, 0, DefaultConfig())
		if err != nil {
			errChan <- err
			return
		}
		accepted <- ch
	}()

	client, err := Connect(ctx, addr, DefaultConfig())
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	select {
	case server = <-accepted:
		t.Cleanup(func() { _ = server.Close() })
	case err := <-errChan:
		t.Fatalf("AcceptOnce failed: %v", err)
	case <-ctx.Done():
		t.Fatal("Timeout waiting for connection")
	}
	return server, client
}

func TestChannelExchange(t *testing.T) {
	server, client := pair(t)

	payload := []byte("hello over tcp")
	if err := client.WriteExact(payload); err != nil {
		t.Fatalf("WriteExact failed: %v", err)
	}

	got := make([]byte, len(payload))
	if err := server.ReadExact(got); err != nil {
		t.Fatalf("ReadExact failed: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("expected %q, got %q", payload, got)
	}

	if !server.RemoteAddr().Addr().IsLoopback() {
		t.Errorf("expected loopback remote, got %v", server.RemoteAddr())
	}
}

func TestAcceptOnceClosesListener(t *testing.T) {
	ln, addr := listenLoopback(t)

	go func() {
		ch, err := AcceptOnce(ln, 0, DefaultConfig())
		if err == nil {
			_ = ch.Close()
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	first, err := Connect(ctx, addr, DefaultConfig())
	if err != nil {
		t.Fatalf("first Connect failed: %v", err)
	}
	defer func() { _ = first.Close() }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		second, err := Connect(ctx, addr, DefaultConfig())
		if errors.Is(err, ErrConnectionRefused) {
			return
		}
		if err == nil {
			_ = second.Close()
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected listener to be closed after one accept, last error: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestAcceptOnceTimeout(t *testing.T) {
	ln, _ := listenLoopback(t)

	start := time.Now()
	_, err := AcceptOnce(ln, 50*time.Millisecond, DefaultConfig())
	if !errors.Is(err, ErrConnectionTimeout) {
		t.Fatalf("expected ErrConnectionTimeout, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Errorf("accept timeout took %v", time.Since(start))
	}
}

func TestAcceptOnceAbortedByClose(t *testing.T) {
	ln, _ := listenLoopback(t)

	time.AfterFunc(50*time.Millisecond, func() { _ = ln.Close() })

	_, err := AcceptOnce(ln, 0, DefaultConfig())
	if !errors.Is(err, ErrChannelClosed) {
		t.Fatalf("expected ErrChannelClosed, got %v", err)
	}
}

func TestConnectRefused(t *testing.T) {
	ln, addr := listenLoopback(t)
	_ = ln.Close()

	_, err := Connect(context.Background(), addr, DefaultConfig())
	if !errors.Is(err, ErrConnectionRefused) {
		t.Fatalf("expected ErrConnectionRefused, got %v", err)
	}
}

type blockingDialer struct{}

func (blockingDialer) DialContext(ctx context.Context, _, _ string) (net.Conn, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestConnectTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ConnectTimeout = 100 * time.Millisecond
	cfg.Dialer = blockingDialer{}

	start := time.Now()
	_, err := Connect(context.Background(), netip.MustParseAddrPort("10.255.255.1:9"), cfg)
	elapsed := time.Since(start)

	if !errors.Is(err, ErrConnectionTimeout) {
		t.Fatalf("expected ErrConnectionTimeout, got %v", err)
	}
	if elapsed > 2*time.Second {
		t.Errorf("connect took %v, expected about %v", elapsed, cfg.ConnectTimeout)
	}
}

func TestConnectCanceledByContext(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Dialer = blockingDialer{}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	_, err := Connect(ctx, netip.MustParseAddrPort("10.255.255.1:9"), cfg)
	if !errors.Is(err, ErrChannelClosed) {
		t.Fatalf("expected ErrChannelClosed, got %v", err)
	}
}

func TestCloseUnblocksRead(t *testing.T) {
	_, client := pair(t)

	errChan := make(chan error, 1)
	go func() {
		errChan <- client.ReadExact(make([]byte, 16))
	}()

	time.Sleep(50 * time.Millisecond)
	if err := client.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("second Close returned %v", err)
	}
	if !client.IsClosed() {
		t.Error("expected channel to report closed")
	}

	select {
	case err := <-errChan:
		if !errors.Is(err, ErrChannelClosed) {
			t.Errorf("expected ErrChannelClosed, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("ReadExact was not unblocked by Close")
	}
}

func TestReadExactPeerHangup(t *testing.T) {
	server, client := pair(t)

	if err := server.WriteExact([]byte("abc")); err != nil {
		t.Fatalf("WriteExact failed: %v", err)
	}
	_ = server.Close()

	err := client.ReadExact(make([]byte, 5))
	if !errors.Is(err, ErrChannelClosed) {
		t.Fatalf("expected ErrChannelClosed, got %v", err)
	}
}

func TestReadDeadline(t *testing.T) {
	_, client := pair(t)

	if err := client.SetDeadline(time.Now().Add(50 * time.Millisecond)); err != nil {
		t.Fatalf("SetDeadline failed: %v", err)
	}

	err := client.ReadExact(make([]byte, 4))
	if !errors.Is(err, ErrConnectionTimeout) {
		t.Fatalf("expected ErrConnectionTimeout, got %v", err)
	}
}
