package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger wraps zerolog.Logger with Conduit-specific configuration
type Logger struct {
	*zerolog.Logger
}

// Config holds logger configuration
type Config struct {
	Level      string
	Format     string // "json" or "console"
	OutputFile string // optional; events are written to stdout and this file
}

// New creates a new configured logger. A log file that cannot be opened is
// reported on stderr and the logger falls back to stdout only.
func New(cfg Config) *Logger {
	logger, err := Open(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "conduit: %v; logging to stdout only\n", err)
		cfg.OutputFile = ""
		logger, _ = Open(cfg)
	}
	return logger
}

// Open is New with file errors surfaced to the caller.
func Open(cfg Config) (*Logger, error) {
	var file io.Writer
	if cfg.OutputFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.OutputFile), 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		file = f
	}
	return NewWithWriter(cfg, os.Stdout, file), nil
}

// NewWithWriter builds a logger writing to out and, when non-nil, also to
// file. The file always receives JSON.
func NewWithWriter(cfg Config, out io.Writer, file io.Writer) *Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var output io.Writer = out
	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	}
	if file != nil {
		output = zerolog.MultiLevelWriter(output, file)
	}

	logger := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	return &Logger{Logger: &logger}
}

// Default returns a logger with default configuration
func Default() *Logger {
	return New(Config{
		Level:  "info",
		Format: "console",
	})
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	logger := zerolog.Nop()
	return &Logger{Logger: &logger}
}

// WithComponent returns a new logger with a component field
func (l *Logger) WithComponent(component string) *Logger {
	logger := l.Logger.With().Str("component", component).Logger()
	return &Logger{Logger: &logger}
}

// WithRun returns a new logger tagged with a pipeline run id
func (l *Logger) WithRun(runID string) *Logger {
	logger := l.Logger.With().Str("run_id", runID).Logger()
	return &Logger{Logger: &logger}
}

// WithOperation returns a new logger tagged with a retried operation label
func (l *Logger) WithOperation(label string) *Logger {
	logger := l.Logger.With().Str("operation", label).Logger()
	return &Logger{Logger: &logger}
}

// Init initializes the global logger
func Init(cfg Config) {
	logger := New(cfg)
	log.Logger = *logger.Logger
}
