package log

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is shared by every package. It writes to stderr so that stdout
// only carries command output.
var Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

// Config holds logging configuration
type Config struct {
	// Level is a zerolog level name; unknown names mean info
	Level      string
	JSONOutput bool
	Output     io.Writer
}

// ParseLevel maps a level name to a zerolog level, defaulting to info
func ParseLevel(name string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// Init replaces Logger and sets the global level
func Init(cfg Config) {
	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if !cfg.JSONOutput {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	Logger = zerolog.New(out).With().Timestamp().Logger()
}

// WithComponent creates a child logger with component field
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithPartition creates a child logger with partition field
func WithPartition(partition string) zerolog.Logger {
	return Logger.With().Str("partition", partition).Logger()
}

// WithNodes creates a child logger with the node range expression being operated on
func WithNodes(nodes string) zerolog.Logger {
	return Logger.With().Str("nodes", nodes).Logger()
}

func Info(msg string) {
	Logger.Info().Msg(msg)
}

func Errorf(msg string, err error) {
	Logger.Error().Err(err).Msg(msg)
}
