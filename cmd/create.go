package cmd

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/testlabtools/tarhdr"
	"github.com/testlabtools/tarhdr/compress"
)

// createCmd represents the create command
var createCmd = &cobra.Command{
	Use:   "create -o ARCHIVE PATH...",
	Short: "Create an archive from files and directories",
	Long: `Create an archive from files and directories. Directories are added
recursively. Names longer than 100 bytes are stored with GNU long-name
records, or with PAX extended headers when --pax is given.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		setup, err := setupCommand(cmd, args)
		if err != nil {
			return err
		}

		output := cmd.Flag("output").Value.String()

		codec, err := compress.ParseCodec(cmd.Flag("compress").Value.String())
		if err != nil {
			return err
		}
		if !cmd.Flags().Changed("compress") {
			codec = inferCodec(output)
		}

		opts := setup.opts
		opts.PAX = cmd.Flag("pax").Value.String() == "true"
		opts.GNU = cmd.Flag("gnu").Value.String() == "true"
		if opts.PAX && !cmd.Flags().Changed("gnu") {
			opts.GNU = false
		}

		var out io.Writer = cmd.OutOrStdout()

		// self is the archive being written, kept out of its own entries.
		var self os.FileInfo
		if output != "-" {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create archive: %w", err)
			}
			defer f.Close()
			out = f

			self, err = f.Stat()
			if err != nil {
				return fmt.Errorf("failed to stat archive: %w", err)
			}
		}

		cw, err := compress.NewWriter(out, codec)
		if err != nil {
			return err
		}

		tw := tarhdr.NewWriter(cw, opts)

		entries := 0
		for _, root := range args {
			err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if self != nil && d.Type().IsRegular() {
					info, err := d.Info()
					if err != nil {
						return err
					}
					if os.SameFile(self, info) {
						setup.log.Warn("skip archive being written", "path", path)
						return nil
					}
				}
				added, err := addPath(setup.log, tw, path, d)
				if added {
					entries++
				}
				return err
			})
			if err != nil {
				return fmt.Errorf("failed to add %s: %w", root, err)
			}
		}

		if err := tw.Close(); err != nil {
			return fmt.Errorf("failed to close tar writer: %w", err)
		}
		if err := cw.Close(); err != nil {
			return fmt.Errorf("failed to close %s writer: %w", codec, err)
		}

		setup.log.Info("created archive",
			"output", output,
			"entries", entries,
			"compression", codec,
			"gnu", opts.GNU,
			"pax", opts.PAX,
		)

		return nil
	},
}

// inferCodec picks the compression from the archive's file name.
func inferCodec(name string) compress.Codec {
	for _, c := range []compress.Codec{compress.Zstd, compress.Gzip, compress.Xz} {
		if strings.HasSuffix(name, c.Extension()) {
			return c
		}
	}
	switch filepath.Ext(name) {
	case ".tzst":
		return compress.Zstd
	case ".tgz":
		return compress.Gzip
	case ".txz":
		return compress.Xz
	}
	return compress.None
}

// addPath writes the header and content for one file system entry. Sockets
// and devices are skipped.
func addPath(l *slog.Logger, tw *tarhdr.Writer, path string, d fs.DirEntry) (bool, error) {
	info, err := d.Info()
	if err != nil {
		return false, err
	}

	name := strings.TrimLeft(filepath.ToSlash(path), "/")
	if name == "" || name == "." {
		return false, nil
	}

	hdr := &tarhdr.Header{
		Name:    name,
		Mode:    int64(info.Mode().Perm()),
		ModTime: info.ModTime(),
	}

	mode := info.Mode()
	switch {
	case mode.IsRegular():
		hdr.Typeflag = tarhdr.TypeReg
		hdr.Size = info.Size()
	case mode.IsDir():
		hdr.Typeflag = tarhdr.TypeDir
		hdr.Name += "/"
	case mode&fs.ModeSymlink != 0:
		target, err := os.Readlink(path)
		if err != nil {
			return false, err
		}
		hdr.Typeflag = tarhdr.TypeSymlink
		hdr.Linkname = filepath.ToSlash(target)
	case mode&fs.ModeNamedPipe != 0:
		hdr.Typeflag = tarhdr.TypeFifo
	default:
		l.Warn("skip unsupported file type", "path", path, "mode", mode)
		return false, nil
	}

	if err := tw.WriteHeader(hdr); err != nil {
		return false, err
	}

	if hdr.Typeflag == tarhdr.TypeReg {
		f, err := os.Open(path)
		if err != nil {
			return false, err
		}
		defer f.Close()

		// A file that grew since Info fails with ErrWriteTooLong; one that
		// shrank fails on the next WriteHeader.
		if _, err := io.Copy(tw, f); err != nil {
			return false, fmt.Errorf("failed to write %s: %w", path, err)
		}
	}

	l.Debug("added entry", "name", hdr.Name, "type", string(hdr.Typeflag), "size", hdr.Size)

	return true, nil
}

func init() {
	Root.AddCommand(createCmd)

	createCmd.Flags().StringP("output", "o", "-", `archive to write, "-" for stdout`)
	createCmd.Flags().String("compress", "", "compression: none, zstd, gzip or xz (default: from the output name)")
	createCmd.Flags().Bool("gnu", true, "store long names with GNU long-name/long-link records")
	createCmd.Flags().Bool("pax", false, "store long names with PAX extended headers")
}
