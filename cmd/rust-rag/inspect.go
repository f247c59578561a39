package main

import (
	"fmt"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/dangattringer/rust-rag/internal/pipeline"
)

func newInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect DIR",
		Short: "Count the pages of an extracted documentation tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := pipeline.Inspect(args[0])
			if err != nil {
				return err
			}
			a.log.Debug().Str("root", s.Root).Int("files", s.Files).Msg("Inspected documentation tree")

			table := uitable.New()
			table.AddRow("ROOT", "HTML FILES", "FILES", "DIRS", "BYTES")
			table.AddRow(s.Root, s.HTMLFiles, s.Files, s.Dirs, s.Bytes)
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
}
