package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rudransh-shrivastava/peer-drop/internal/client"
	"github.com/rudransh-shrivastava/peer-drop/internal/peer"
	"github.com/rudransh-shrivastava/peer-drop/internal/transfer"
	"github.com/spf13/cobra"
)

var (
	receiveCount          int
	receiveDownloadPath   string
	receiveConnectTimeout time.Duration
)

var receiveCmd = &cobra.Command{
	Use:   "receive token",
	Short: "receive files from a peer",
	Long:  `receive connects to the sender behind token and downloads --count files from it`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()

		addr, err := peer.Decode(args[0])
		if err != nil {
			return err
		}
		if receiveCount < 1 {
			return fmt.Errorf("--count must be at least 1, got %d", receiveCount)
		}

		history, closeHistory := openHistory(log)
		defer closeHistory()

		printer := client.NewPrinter(os.Stdout, transfer.DirectionReceive, client.IsTerminal(os.Stdout))

		cfg := transfer.DefaultReceiverConfig()
		cfg.Dir = receiveDownloadPath
		cfg.Transport.ConnectTimeout = receiveConnectTimeout
		cfg.Listener = printer
		cfg.Logger = log

		receiver := transfer.NewReceiver(cfg)

		ctx, stop := signalContext(cmd.Context())
		defer stop()

		for i := 0; i < receiveCount; i++ {
			fmt.Printf("Connecting to peer %s\n", addr.AddrPort())

			var res transfer.Result
			if i == 0 {
				res, err = receiver.ReceiveFrom(ctx, addr)
			} else {
				res, err = client.ReceiveWithRetry(ctx, receiver, addr, receiveConnectTimeout)
			}
			printer.Done()
			history.Record(context.Background(), res)

			for _, w := range res.Warnings {
				fmt.Printf("Warning: %v\n", w)
			}
			if err != nil {
				return err
			}
			if res.State == transfer.StateCanceled {
				fmt.Println("Transfer canceled")
				return nil
			}
			fmt.Printf("Received %s successfully (%s)\n", res.FileName, res.Path)
		}
		return nil
	},
}

func init() {
	receiveCmd.Flags().IntVarP(&receiveCount, "count", "n", 1, "number of files to receive")
	receiveCmd.Flags().StringVarP(&receiveDownloadPath, "download-path", "d", ".", "directory to store received files in")
	receiveCmd.Flags().DurationVar(&receiveConnectTimeout, "connect-timeout", 10*time.Second, "how long to try reaching the sender")
}
