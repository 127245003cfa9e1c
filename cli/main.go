package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/testlabtools/tarhdr/cmd"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	l := slog.Default()

	cmd.SetBuildVersion(version, commit, date)

	// An empty DSN leaves the client disabled.
	err := sentry.Init(sentry.ClientOptions{
		Dsn:     os.Getenv("TARHDR_SENTRY_DSN"),
		Release: version,
	})
	if err != nil {
		l.Error("failed to initialize sentry", "err", err)
		os.Exit(1)
	}

	// Flush buffered events before the program terminates.
	defer func() {
		err := recover()

		if err != nil {
			sentry.CurrentHub().Recover(err)
			sentry.Flush(5 * time.Second)
			l.Error("failed to run", "err", err)
			os.Exit(1)
		}
	}()

	if err := cmd.Root.Execute(); err != nil {
		sentry.CaptureException(err)
		sentry.Flush(5 * time.Second)
		l.Error("failed to run", "err", err)
		os.Exit(1)
	}
}
