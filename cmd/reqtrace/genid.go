package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/G1D0/reqtrace/internal/traceid"
)

func newGenIDCmd() *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "genid",
		Short: "Print freshly generated trace identifiers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return fmt.Errorf("count must be at least 1, got %d", count)
			}
			gen, err := traceid.Default()
			if err != nil {
				return err
			}
			for i := 0; i < count; i++ {
				fmt.Fprintln(cmd.OutOrStdout(), gen.Generate())
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of identifiers to print")
	return cmd
}

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <trace-id>...",
		Short: "Print the creation time embedded in trace identifiers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, id := range args {
				ts, err := traceid.Decode(id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", id, ts.UTC().Format(time.RFC3339Nano))
			}
			return nil
		},
	}
}
