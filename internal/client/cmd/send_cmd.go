package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"time"

	"github.com/rudransh-shrivastava/peer-drop/internal/client"
	"github.com/rudransh-shrivastava/peer-drop/internal/peer"
	"github.com/rudransh-shrivastava/peer-drop/internal/transfer"
	"github.com/spf13/cobra"
)

var (
	sendIP            string
	sendPort          uint16
	sendAcceptTimeout time.Duration
)

var sendCmd = &cobra.Command{
	Use:   "send file-path...",
	Short: "send files to a peer",
	Long:  `send waits for a receiver and serves each file in turn; the printed token stays the same for the whole batch`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()

		var ip netip.Addr
		if sendIP != "" {
			parsed, err := netip.ParseAddr(sendIP)
			if err != nil {
				return fmt.Errorf("invalid --ip: %w", err)
			}
			ip = parsed
		}

		history, closeHistory := openHistory(log)
		defer closeHistory()

		printer := client.NewPrinter(os.Stdout, transfer.DirectionSend, client.IsTerminal(os.Stdout))

		cfg := transfer.DefaultSenderConfig()
		cfg.IP = ip
		cfg.Port = sendPort
		cfg.AcceptTimeout = sendAcceptTimeout
		cfg.Listener = printer
		cfg.Logger = log

		sender := transfer.NewSender(cfg)
		defer func() { _ = sender.Close() }()

		ctx, stop := signalContext(cmd.Context())
		defer stop()

		for _, path := range args {
			fmt.Printf("Sending %s\n", filepath.Base(path))

			addr, err := sender.Bind()
			if err != nil {
				if errors.Is(err, peer.ErrNoAddressAvailable) {
					fmt.Println("Couldn't get ip address")
				}
				return err
			}
			fmt.Printf("Waiting for a connection on %s\n", addr.AddrPort())
			fmt.Printf("Token: %s\n", addr.Encode())

			res, err := sender.Send(ctx, path)
			printer.Done()
			history.Record(context.Background(), res)

			if err != nil {
				return err
			}
			if res.State == transfer.StateCanceled {
				fmt.Println("Transfer canceled")
				return nil
			}
			fmt.Printf("%s was successfully sent\n", res.FileName)
		}
		return nil
	},
}

func init() {
	sendCmd.Flags().StringVar(&sendIP, "ip", "", "address to listen on (default: local network address)")
	sendCmd.Flags().Uint16VarP(&sendPort, "port", "p", 0, "port to listen on (default: any free port)")
	sendCmd.Flags().DurationVar(&sendAcceptTimeout, "accept-timeout", 0, "give up if no receiver connects in time (0 waits forever)")
}
