package cmd

import (
	"log/slog"
	"os"
	"time"

	sentryslog "github.com/getsentry/sentry-go/slog"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func SetBuildVersion(v string, c string, d string) {
	version = v
	commit = c
	date = d
}

// Root represents the base command when called without any subcommands
var Root = &cobra.Command{
	Use:   "tarhdr",
	Short: "Inspect and create tar archives with GNU and PAX long names",
	Long: `tarhdr reads and writes tar archives whose names and link targets may be
longer than the 100 bytes a plain header holds, using GNU long-name records
or PAX extended headers. Archives may be local files, stdin ("-") or
http(s) URLs, optionally compressed with zstd, gzip, xz or bzip2.`,

	// Dont show CLI usage on error.
	SilenceUsage:  true,
	SilenceErrors: true,
}

var programLevel = new(slog.LevelVar)

func setLogLevel(l slog.Level) {
	programLevel.Set(l)
}

func init() {
	l := slog.New(
		Fanout(
			tint.NewHandler(os.Stderr, &tint.Options{
				Level:      programLevel,
				TimeFormat: time.Kitchen,
			}),
			sentryslog.Option{
				Level:     slog.LevelError,
				AddSource: true,
			}.NewSentryHandler(),
		),
	)
	slog.SetDefault(l)

	Root.PersistentFlags().Bool("debug", false, "enable verbose debug logs")

	// Header checks, see tarhdr.Options.
	Root.PersistentFlags().Bool("skip-magic", false, "accept headers without ustar magic")
	Root.PersistentFlags().Bool("skip-version", false, "accept headers with a mismatched version")
	Root.PersistentFlags().Bool("skip-checksum", false, "accept headers with a wrong checksum")
	Root.PersistentFlags().Bool("ignore-eof", false, "read past zero blocks, e.g. for concatenated archives")
	Root.PersistentFlags().Int64("max-extension-size", 0, "largest GNU/PAX extension payload to buffer in bytes (0 means 1 MiB)")
}
