package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	EnvLogLevel   = "SCRIPTMENU_LOG_LEVEL"
	EnvLogNoColor = "SCRIPTMENU_LOG_NOCOLOR"
)

// Options control the process-wide logger.
type Options struct {
	Level   zerolog.Level
	NoColor bool
	Output  io.Writer // defaults to os.Stderr
}

// DefaultOptions returns info level logging to stderr.
func DefaultOptions() Options {
	return Options{
		Level:  zerolog.InfoLevel,
		Output: os.Stderr,
	}
}

// Configure installs the global logger and returns it.
// Environment overrides win over opts.
func Configure(opts Options) zerolog.Logger {
	applyEnvOverrides(&opts)
	if opts.Output == nil {
		opts.Output = os.Stderr
	}

	output := zerolog.ConsoleWriter{
		Out:        opts.Output,
		TimeFormat: time.RFC3339,
		NoColor:    opts.NoColor,
	}
	logger := zerolog.New(output).Level(opts.Level).With().Timestamp().Str("app", "scriptmenu").Logger()
	zerolog.SetGlobalLevel(opts.Level)
	log.Logger = logger
	return logger
}

// Discard silences the global logger, used by the TUI when no debug log
// file was requested.
func Discard() {
	log.Logger = zerolog.Nop()
}

func applyEnvOverrides(opts *Options) {
	if lvl, ok := ParseLevel(os.Getenv(EnvLogLevel)); ok {
		opts.Level = lvl
	}
	if v, ok := parseBool(os.Getenv(EnvLogNoColor)); ok {
		opts.NoColor = v
	}
}

// ParseLevel accepts the usual level names plus a few aliases for "off".
func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "disable", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
