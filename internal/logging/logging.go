// Package logging provides structured logging using zerolog. Unlike a
// normal CLI tool, agentmux owns the physical terminal while the alternate
// screen is active, so the default output is always a file under
// ~/.agentmux/logs — never stdout/stderr, which would corrupt the frame.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the global logger instance.
var Logger zerolog.Logger

var logFile *os.File

type Level = zerolog.Level

const (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
	FatalLevel = zerolog.FatalLevel
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level Level
	// Output is an additional writer (tests only); production never sets
	// this to the terminal's stdout/stderr.
	Output io.Writer
	// Pretty enables human-readable console formatting for Output.
	Pretty bool
	// TimeFormat specifies the time format. Defaults to RFC3339.
	TimeFormat string
	// LogToFile enables logging to LogDir/agentmux-<pid>.log.
	LogToFile bool
	// LogDir is the directory for log files.
	LogDir string
	Pid    int
}

// DefaultConfig returns the configuration agentmux starts with: file-only,
// info level, under ~/.agentmux/logs.
func DefaultConfig(logDir string, pid int) Config {
	return Config{
		Level:      InfoLevel,
		TimeFormat: time.RFC3339,
		LogToFile:  true,
		LogDir:     logDir,
		Pid:        pid,
	}
}

// Init initializes the global logger with the given configuration.
func Init(cfg Config) error {
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = time.RFC3339
	}
	zerolog.TimeFieldFormat = cfg.TimeFormat

	var writers []io.Writer

	if cfg.Output != nil {
		out := cfg.Output
		if cfg.Pretty {
			out = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: cfg.TimeFormat}
		}
		writers = append(writers, out)
	}

	if cfg.LogToFile {
		if cfg.LogDir == "" {
			cfg.LogDir = os.TempDir()
		}
		if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
		if logFile != nil {
			logFile.Close()
		}
		logPath := filepath.Join(cfg.LogDir, fmt.Sprintf("agentmux-%d.log", cfg.Pid))
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		logFile = f
		writers = append(writers, f)
	}

	var output io.Writer = io.Discard
	switch len(writers) {
	case 0:
	case 1:
		output = writers[0]
	default:
		output = zerolog.MultiLevelWriter(writers...)
	}

	Logger = zerolog.New(output).Level(cfg.Level).With().Timestamp().Logger()
	return nil
}

// GetLogFilePath returns the current log file path, or "" if not logging
// to file.
func GetLogFilePath() string {
	if logFile != nil {
		return logFile.Name()
	}
	return ""
}

// Close closes the log file if one is open.
func Close() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

// ParseLevel parses a log level string (case-insensitive), defaulting to
// InfoLevel for anything unrecognized.
func ParseLevel(level string) Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return DebugLevel
	case "INFO":
		return InfoLevel
	case "WARN", "WARNING":
		return WarnLevel
	case "ERROR":
		return ErrorLevel
	case "FATAL":
		return FatalLevel
	default:
		return InfoLevel
	}
}

func Debug() *zerolog.Event { return Logger.Debug() }
func Info() *zerolog.Event  { return Logger.Info() }
func Warn() *zerolog.Event  { return Logger.Warn() }
func Error() *zerolog.Event { return Logger.Error() }

// With creates a child logger context, used to attach component/agent_id/
// pane_id fields the way spec.md's "[viewport]"-prefixed diagnostic is
// upgraded into structured fields (see internal/vtgrid.Parser.OnError).
func With() zerolog.Context { return Logger.With() }

func init() {
	Logger = zerolog.New(io.Discard)
}
