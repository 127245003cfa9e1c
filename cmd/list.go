package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/testlabtools/tarhdr"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list ARCHIVE",
	Short: "List the entries of an archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		setup, err := setupCommand(cmd, args)
		if err != nil {
			return err
		}

		long := cmd.Flag("long").Value.String() == "true"

		a, err := openArchive(cmd.Context(), setup.log, args[0], cmd.InOrStdin())
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		tr := tarhdr.NewReader(a, setup.opts)

		entries := 0
		for {
			hdr, err := tr.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				return fmt.Errorf("failed to read entry %d: %w", entries+1, err)
			}
			entries++

			if long {
				fmt.Fprintln(out, describe(hdr))
			} else {
				fmt.Fprintln(out, hdr.Name)
			}
		}

		setup.log.Debug("listed archive", "entries", entries, "compression", a.codec)

		return nil
	},
}

func init() {
	Root.AddCommand(listCmd)

	listCmd.Flags().BoolP("long", "l", false, "show type, mode, owner, size and modification time")
}
