package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rudransh-shrivastava/peer-drop/internal/db"
	"github.com/rudransh-shrivastava/peer-drop/internal/store"
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "list recorded transfers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		gdb, err := db.Open(historyDB)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close(gdb) }()

		ts := store.NewTransferStore(gdb)
		transfers, err := ts.GetTransfers(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		if len(transfers) == 0 {
			fmt.Println("No transfers recorded")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "WHEN\tDIRECTION\tSTATE\tSIZE\tFILE\tPEER")
		for _, t := range transfers {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				humanize.Time(time.Unix(t.FinishedAt, 0)),
				t.Direction,
				t.State,
				humanize.Bytes(t.FileSize),
				t.FileName,
				t.PeerToken,
			)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		counts, err := ts.CountByState(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("\n%d completed, %d canceled, %d failed\n", counts["completed"], counts["canceled"], counts["failed"])
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "number of transfers to show, 0 for all")
}
