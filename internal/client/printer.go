// Package client holds the pieces of the command line front-end that sit
// between the transfer engine and the terminal.
package client

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rudransh-shrivastava/peer-drop/internal/transfer"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

const plainInterval = time.Second

// Printer renders transfer events, as a progress bar on a terminal and as
// "Sent 1.0 MB / 10 MB" lines otherwise.
type Printer struct {
	out         io.Writer
	verb        string
	interactive bool

	mu        sync.Mutex
	bar       *progressbar.ProgressBar
	lastPlain time.Time
}

var _ transfer.Listener = (*Printer)(nil)

func NewPrinter(out io.Writer, dir transfer.Direction, interactive bool) *Printer {
	verb := "Sent"
	if dir == transfer.DirectionReceive {
		verb = "Received"
	}
	return &Printer{out: out, verb: verb, interactive: interactive}
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func (p *Printer) OnConnected(remoteHost string, remotePort uint16, fileName string, fileSize uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.out, "Connected to %s:%d, %s (%s)\n", remoteHost, remotePort, fileName, humanize.Bytes(fileSize))
	p.lastPlain = time.Time{}

	if !p.interactive || fileSize == 0 {
		return
	}
	p.bar = progressbar.NewOptions64(int64(fileSize),
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionSetDescription(fileName),
		progressbar.OptionShowBytes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(p.out) }),
	)
}

func (p *Printer) OnProgressUpdate(bytesSoFar, totalBytes uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar != nil {
		_ = p.bar.Set64(int64(bytesSoFar))
		return
	}

	now := time.Now()
	if bytesSoFar != totalBytes && now.Sub(p.lastPlain) < plainInterval {
		return
	}
	p.lastPlain = now
	fmt.Fprintf(p.out, "%s %s / %s\n", p.verb, humanize.Bytes(bytesSoFar), humanize.Bytes(totalBytes))
}

// Done drops the bar of an interrupted transfer.
func (p *Printer) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar != nil && !p.bar.IsFinished() {
		_ = p.bar.Exit()
		fmt.Fprintln(p.out)
	}
	p.bar = nil
}
