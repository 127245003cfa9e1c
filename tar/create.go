package tar

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/testlabtools/tarhdr"
)

// Create creates a tarball from a map of file names and their contents.
// The tarball data is written into out. Entries are sorted by name and names
// longer than 100 bytes are stored with GNU long-name records.
func Create(files map[string][]byte, out io.Writer) error {
	tw := tarhdr.NewWriter(out, tarhdr.Options{GNU: true})

	for _, name := range slices.Sorted(maps.Keys(files)) {
		content := files[name]

		header := &tarhdr.Header{
			Typeflag: tarhdr.TypeReg,
			Name:     name,
			Mode:     0600,
			Size:     int64(len(content)),
		}

		if err := tw.WriteHeader(header); err != nil {
			return fmt.Errorf("failed to write tar header: %w", err)
		}

		if _, err := tw.Write(content); err != nil {
			return fmt.Errorf("failed to write file content: %w", err)
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("failed to close tar writer: %w", err)
	}

	return nil
}
