package main

import (
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/drunlade/go-scp/scp"
)

var logger zerolog.Logger

func main() {
	logger = zerolog.New(
		zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339},
	).With().Timestamp().Logger()

	to := pflag.BoolP("to", "t", false, "Sink mode: receive files from the peer")
	from := pflag.BoolP("from", "f", false, "Source mode: send files to the peer")
	recursive := pflag.BoolP("recursive", "r", false, "Recurse into directories")
	preserve := pflag.BoolP("preserve", "p", false, "Preserve modes and times")
	dirTarget := pflag.BoolP("directory", "d", false, "Target must be a directory")
	verbose := pflag.BoolP("verbose", "v", false, "Verbose protocol diagnostics")
	loglevel := pflag.String("loglevel", "error", "Log level")
	bufferSize := pflag.Int("buffer", scp.DefaultBufferSize, "Payload copy buffer size")
	root := pflag.String("root", "", "Confine all paths beneath this directory")
	pflag.Parse()

	var zll zerolog.Level
	switch strings.ToLower(*loglevel) {
	case "trace":
		zll = zerolog.TraceLevel
	case "debug":
		zll = zerolog.DebugLevel
	case "info":
		zll = zerolog.InfoLevel
	case "warn":
		zll = zerolog.WarnLevel
	case "error":
		zll = zerolog.ErrorLevel
	default:
		logger.Fatal().Msgf("Invalid log level: %v", *loglevel)
	}
	if *verbose && zll > zerolog.DebugLevel {
		zll = zerolog.DebugLevel
	}
	logger = logger.Level(zll)

	if *to == *from {
		logger.Fatal().Msg("Exactly one of -t or -f is required")
	}
	if len(pflag.Args()) == 0 {
		logger.Fatal().Msg("Need a target path argument")
	}

	config := scp.DefaultConfig()
	config.BufferSize = *bufferSize
	if *root != "" {
		config.FileSystem = scp.RootedFS{Root: *root}
	}

	events := &scp.Events{
		EndFile: func(op scp.Op, path string, size int64, perm fs.FileMode, err error) {
			if err != nil {
				logger.Error().Msgf("%s %s failed: %v", op, path, err)
				return
			}
			logger.Info().Msgf("%s %s (%s)", op, path, humanize.Bytes(uint64(size)))
		},
		EndFolder: func(op scp.Op, path string, perm fs.FileMode, err error) {
			if err != nil {
				logger.Error().Msgf("%s %s failed: %v", op, path, err)
			}
		},
	}

	session := scp.NewSession(os.Stdin, os.Stdout,
		scp.WithConfig(config),
		scp.WithEvents(events),
		scp.WithLogger(scp.ZerologLogger{L: logger}),
	)

	cmd := scp.Command{
		Recursive:         *recursive,
		Preserve:          *preserve,
		TargetIsDirectory: *dirTarget,
		Path:              strings.Join(pflag.Args(), " "),
	}
	if *to {
		cmd.Direction = scp.Sink
	} else {
		cmd.Direction = scp.Source
	}

	if err := session.RunCommand(cmd); err != nil {
		logger.Error().Msgf("Transfer failed: %v", err)
		os.Exit(1)
	}
}
