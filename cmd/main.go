package main

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"skabillium/strqueue/cmd/logger"
)

const QtestVersion = "0.0.1"

func newRootCommand() *cobra.Command {
	opts := defaultOptions()
	flagOpts := defaultOptions()
	var envFile, logLevel string

	root := &cobra.Command{
		Use:           "qtest",
		Short:         "Interactive test driver for the string queue",
		Version:       QtestVersion,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.loadEnv(envFile); err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("file") {
				opts.File = flagOpts.File
			}
			if flags.Changed("verbose") {
				opts.Verbosity = flagOpts.Verbosity
			}
			if flags.Changed("malloc") {
				opts.MallocFailPercent = flagOpts.MallocFailPercent
			}
			if flags.Changed("length") {
				opts.StringLength = flagOpts.StringLength
			}
			if flags.Changed("fail") {
				opts.ErrorLimit = flagOpts.ErrorLimit
			}
			if flags.Changed("seed") {
				opts.Seed = flagOpts.Seed
			}
			if flags.Changed("log-level") {
				level, err := logger.ParseLevel(logLevel)
				if err != nil {
					return err
				}
				opts.LogLevel = level
			}

			if err := opts.validate(); err != nil {
				return err
			}
			logger.SetLogLevel(opts.LogLevel)

			return run(opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	flags := root.Flags()
	flags.StringVarP(&flagOpts.File, "file", "f", "", "Read commands from file")
	flags.IntVarP(&flagOpts.Verbosity, "verbose", "v", DefaultVerbosity, "Verbosity level")
	flags.IntVar(&flagOpts.MallocFailPercent, "malloc", 0, "Malloc failure probability percent")
	flags.IntVar(&flagOpts.StringLength, "length", DefaultStringLength, "Buffer length for removed strings")
	flags.IntVar(&flagOpts.ErrorLimit, "fail", DefaultErrorLimit, "Number of errors before stopping")
	flags.Int64Var(&flagOpts.Seed, "seed", DefaultSeed, "Seed for malloc failure injection")
	flags.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&envFile, "env", DefaultEnvFile, "Environment file with QTEST_* settings")

	return root
}

func run(opts *HarnessOptions, in io.Reader, out io.Writer) error {
	h := NewHarness(out, opts)
	logger.Log.Info().
		Str("file", opts.File).
		Int("malloc", opts.MallocFailPercent).
		Int("length", opts.StringLength).
		Msg("qtest started")

	src, echo, err := openInput(opts.File, in, out)
	if err != nil {
		return err
	}
	defer src.Close()

	runErr := h.Run(src, echo)
	h.Finish()

	if runErr != nil {
		return errors.Wrap(runErr, "reading commands")
	}
	if n := h.Errors(); n > 0 {
		return errors.Errorf("%d errors recorded", n)
	}
	return nil
}

// Commands come from the named file, an interactive prompt when in is a
// terminal, or in read line by line. Non-interactive input is echoed.
func openInput(file string, in io.Reader, out io.Writer) (lineReader, bool, error) {
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return nil, false, errors.Wrapf(err, "could not open %s", file)
		}
		return newStreamReader(f), true, nil
	}

	if f, ok := in.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		prompt, err := newPromptReader(f, out)
		if err != nil {
			return nil, false, err
		}
		return prompt, false, nil
	}

	return newStreamReader(io.NopCloser(in)), true, nil
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		logger.Log.Error().Err(err).Msg("qtest failed")
		os.Exit(1)
	}
}
