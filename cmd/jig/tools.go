package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/buckleypaul/jig/internal/config"
	"github.com/buckleypaul/jig/internal/journal"
	"github.com/buckleypaul/jig/internal/outbox"
	"github.com/buckleypaul/jig/internal/serial"
)

func newPortsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List serial ports with their USB ids",
		RunE: func(cmd *cobra.Command, args []string) error {
			ports, err := serial.ListPorts()
			if err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PORT\tVID:PID\tSERIAL\tDUT")
			for _, p := range ports {
				ids := "-"
				if p.IsUSB {
					ids = p.VID + ":" + p.PID
				}
				dut := ""
				if p.Matches(cfg.USBVendorID, cfg.USBProductID) {
					dut = "yes"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Name, ids, p.SerialNumber, dut)
			}
			return w.Flush()
		},
	}
}

func newFailuresCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "failures",
		Short: "Print reports that could not be uploaded",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			records := outbox.NewStore(cfg.FailuresFile).Load()
			if len(records) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No failed uploads in %s\n", cfg.FailuresFile)
				return nil
			}
			for _, r := range records {
				fmt.Fprintln(cmd.OutOrStdout(), r.String())
			}
			return nil
		},
	}
}

func newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the most recent test outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.Journal == "" {
				return errors.New("journal is disabled (TESTER_JOURNAL is empty)")
			}
			j, err := journal.Open(cfg.Journal)
			if err != nil {
				return err
			}
			defer j.Close()

			entries, err := j.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ENDED\tVARIANT\tBOARD\tVERDICT\tFAILED STEP\tDURATION")
			for _, e := range entries {
				board := e.BoardID
				if board == "" {
					board = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					e.EndedAt.Local().Format(time.DateTime), e.Variant, board, e.Verdict,
					e.FailedStep, e.EndedAt.Sub(e.StartedAt).Round(time.Millisecond))
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of outcomes to show")
	return cmd
}

func newDrainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drain",
		Short: "Retry every persisted failed upload once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			uploader, err := buildUploader(cfg, outbox.NewQueue())
			if err != nil {
				return err
			}
			before := len(uploader.Failures())
			if err := uploader.Drain(cmd.Context()); err != nil {
				return err
			}
			after := len(uploader.Failures())
			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %d of %d failed reports, %d remain in %s\n",
				before-after, before, after, cfg.FailuresFile)
			return nil
		},
	}
}
