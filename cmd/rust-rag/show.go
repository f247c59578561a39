package main

import (
	"fmt"
	"strconv"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/dangattringer/rust-rag/internal/crate"
)

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show RECORD",
		Short: "Show a saved crate record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, rec, err := crate.Load(args[0])
			if err != nil {
				return err
			}

			table := uitable.New()
			table.MaxColWidth = 80
			table.AddRow("NAME:", c.Name())
			table.AddRow("VERSION:", orDash(c.Version))
			table.AddRow("REQUESTED:", orDash(c.RequestedVersion))
			table.AddRow("LATEST:", orDash(c.LatestVersion))
			table.AddRow("IS LATEST:", strconv.FormatBool(c.IsLatest()))
			table.AddRow("OUTPUT:", orDash(c.OutputPath))
			table.AddRow("ENTRIES:", c.Entries)
			if !rec.SavedAt.IsZero() {
				table.AddRow("SAVED:", rec.SavedAt.Format("2006-01-02 15:04:05 MST"))
			}

			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
