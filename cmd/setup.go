package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/testlabtools/tarhdr"
)

type setup struct {
	env   map[string]string
	debug bool
	log   *slog.Logger

	// opts holds the reader options taken from the persistent flags.
	opts tarhdr.Options
}

func setupCommand(cmd *cobra.Command, args []string) (setup, error) {
	env := getEnv()
	if val := cmd.Context().Value("env"); val != nil {
		env = val.(map[string]string)
	}

	debug := cmd.Flag("debug").Value.String() == "true"
	if !debug {
		debug = env["TARHDR_DEBUG"] != ""
	}

	if debug {
		setLogLevel(slog.LevelDebug)
	}

	l := slog.Default()

	var flags []string
	cmd.Flags().VisitAll(func(flag *pflag.Flag) {
		flags = append(flags, fmt.Sprintf("%s=%s", flag.Name, flag.Value))
	})

	l.Info(fmt.Sprintf("start %s command", cmd.Name()),
		"args", args,
		"flags", flags,
		"version", version,
		"commit", commit,
		"built", date,
	)

	maxExt, err := cmd.Flags().GetInt64("max-extension-size")
	if err != nil {
		return setup{}, err
	}
	if maxExt < 0 {
		return setup{}, fmt.Errorf("invalid --max-extension-size %d", maxExt)
	}

	opts := tarhdr.Options{
		SkipMagicCheck:   cmd.Flag("skip-magic").Value.String() == "true",
		SkipVersionCheck: cmd.Flag("skip-version").Value.String() == "true",
		SkipChecksum:     cmd.Flag("skip-checksum").Value.String() == "true",
		IgnoreEOF:        cmd.Flag("ignore-eof").Value.String() == "true",
		MaxExtensionSize: maxExt,
		Log:              l,
	}

	return setup{
		env:   env,
		debug: debug,
		log:   l,
		opts:  opts,
	}, nil
}
