package main

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"skabillium/strqueue/cmd/logger"
)

const (
	DefaultStringLength = 1024
	DefaultErrorLimit   = 5
	DefaultVerbosity    = 1
	DefaultSeed         = 1
	DefaultEnvFile      = ".env"
)

type HarnessOptions struct {
	File              string
	Verbosity         int
	MallocFailPercent int
	StringLength      int
	ErrorLimit        int
	Seed              int64
	LogLevel          zerolog.Level
}

func defaultOptions() *HarnessOptions {
	return &HarnessOptions{
		Verbosity:    DefaultVerbosity,
		StringLength: DefaultStringLength,
		ErrorLimit:   DefaultErrorLimit,
		Seed:         DefaultSeed,
		LogLevel:     zerolog.WarnLevel,
	}
}

// Apply QTEST_* environment variables, reading envFile first when it exists.
// Variables already present in the environment win over the file.
func (o *HarnessOptions) loadEnv(envFile string) error {
	if envFile != "" && FileExists(envFile) {
		if err := godotenv.Load(envFile); err != nil {
			return errors.Wrapf(err, "could not load %s", envFile)
		}
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"QTEST_VERBOSE", &o.Verbosity},
		{"QTEST_MALLOC_FAIL", &o.MallocFailPercent},
		{"QTEST_STRING_LENGTH", &o.StringLength},
		{"QTEST_ERROR_LIMIT", &o.ErrorLimit},
	}
	for _, v := range ints {
		if err := envInt(v.name, v.dst); err != nil {
			return err
		}
	}

	if raw := os.Getenv("QTEST_SEED"); raw != "" {
		seed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return errors.Wrap(err, "QTEST_SEED")
		}
		o.Seed = seed
	}

	if raw := os.Getenv("QTEST_LOG_LEVEL"); raw != "" {
		level, err := logger.ParseLevel(raw)
		if err != nil {
			return errors.Wrap(err, "QTEST_LOG_LEVEL")
		}
		o.LogLevel = level
	}

	return nil
}

func (o *HarnessOptions) validate() error {
	if o.Verbosity < 0 {
		return errors.Errorf("verbosity must not be negative, got %d", o.Verbosity)
	}
	if o.MallocFailPercent < 0 || o.MallocFailPercent > 100 {
		return errors.Errorf("malloc failure probability must be between 0 and 100, got %d", o.MallocFailPercent)
	}
	if o.StringLength < 1 {
		return errors.Errorf("string length must be at least 1, got %d", o.StringLength)
	}
	if o.ErrorLimit < 1 {
		return errors.Errorf("error limit must be at least 1, got %d", o.ErrorLimit)
	}
	return nil
}

func envInt(name string, dst *int) error {
	raw := os.Getenv(name)
	if raw == "" {
		return nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return errors.Wrap(err, name)
	}
	*dst = n
	return nil
}
