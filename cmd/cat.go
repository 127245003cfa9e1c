package cmd

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/testlabtools/tarhdr"
)

// catCmd represents the cat command
var catCmd = &cobra.Command{
	Use:   "cat ARCHIVE [NAME...]",
	Short: "Write the content of archive entries to stdout",
	Long: `Write the content of the named regular file entries to stdout, in archive
order. Without names, every regular file is written.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		setup, err := setupCommand(cmd, args)
		if err != nil {
			return err
		}

		limit, err := cmd.Flags().GetInt64("limit")
		if err != nil {
			return err
		}
		if limit < 0 {
			return fmt.Errorf("invalid --limit %d", limit)
		}

		a, err := openArchive(cmd.Context(), setup.log, args[0], cmd.InOrStdin())
		if err != nil {
			return err
		}
		defer a.Close()

		names := args[1:]
		found := make(map[string]bool, len(names))

		out := cmd.OutOrStdout()
		tr := tarhdr.NewReader(a, setup.opts)

		for {
			hdr, err := tr.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				return fmt.Errorf("failed to read archive: %w", err)
			}

			if hdr.Typeflag != tarhdr.TypeReg && hdr.Typeflag != tarhdr.TypeRegA {
				continue
			}
			if len(names) > 0 && !slices.Contains(names, hdr.Name) {
				continue
			}
			found[hdr.Name] = true

			var r io.Reader = tr
			if limit > 0 {
				r = io.LimitReader(tr, limit)
			}

			n, err := io.Copy(out, r)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", hdr.Name, err)
			}

			setup.log.Debug("wrote entry", "name", hdr.Name, "bytes", n, "size", hdr.Size)
		}

		for _, name := range names {
			if !found[name] {
				return fmt.Errorf("entry %q not found in archive", name)
			}
		}

		return nil
	},
}

func init() {
	Root.AddCommand(catCmd)

	catCmd.Flags().Int64("limit", 0, "write at most this many bytes per entry (0 means no limit)")
}
