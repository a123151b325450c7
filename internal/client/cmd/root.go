package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rudransh-shrivastava/peer-drop/internal/client"
	"github.com/rudransh-shrivastava/peer-drop/internal/db"
	"github.com/rudransh-shrivastava/peer-drop/internal/logger"
	"github.com/rudransh-shrivastava/peer-drop/internal/store"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	verbose   bool
	historyDB string
	noHistory bool
)

var rootCmd = &cobra.Command{
	Use:           `peer-drop`,
	Short:         `send files directly to a peer on the same network`,
	Long:          `peer-drop sends files directly between two machines on the same network, no server in between`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		newLogger().Error(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logs")
	rootCmd.PersistentFlags().StringVar(&historyDB, "history-db", db.DefaultPath(), "path of the transfer history database")
	rootCmd.PersistentFlags().BoolVar(&noHistory, "no-history", false, "do not record transfers")

	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(receiveCmd)
	rootCmd.AddCommand(historyCmd)
}

func newLogger() *logrus.Logger {
	log := logger.NewLogger()
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

// openHistory returns a nil History when recording is off or the database
// cannot be opened; transfers proceed either way.
func openHistory(log *logrus.Logger) (*client.History, func()) {
	if noHistory {
		return nil, func() {}
	}

	gdb, err := db.Open(historyDB)
	if err != nil {
		log.WithError(err).Warn("Transfer history disabled")
		return nil, func() {}
	}

	return client.NewHistory(store.NewTransferStore(gdb), log), func() { _ = db.Close(gdb) }
}

// signalContext is canceled on Ctrl-C so the transfer in flight stops and
// cleans up its partial file.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
