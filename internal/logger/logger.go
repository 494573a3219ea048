// Package logger builds the rotating file logger used by the CLI.
package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

const fileName = "kcaldebt.log"

type Config struct {
	Debug  bool
	LogDir string
	// Stderr receives a copy of every line in debug mode. Defaults to os.Stderr.
	Stderr io.Writer
}

// Logger adapts *log.Logger to the slog-style Debug/Info/Warn/Error(msg, args...) shape.
type Logger struct {
	l    *log.Logger
	file io.Closer
}

// New opens <LogDir>/kcaldebt.log with rotation.
func New(cfg Config) (*Logger, error) {
	if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
		return nil, err
	}

	fileWriter := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.LogDir, fileName),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}

	level := log.InfoLevel
	var w io.Writer = fileWriter
	if cfg.Debug {
		level = log.DebugLevel
		stderr := cfg.Stderr
		if stderr == nil {
			stderr = os.Stderr
		}
		w = io.MultiWriter(stderr, fileWriter)
	}

	l := log.NewWithOptions(w, log.Options{
		ReportCaller:    cfg.Debug,
		ReportTimestamp: true,
		Level:           level,
		Prefix:          "kcaldebt",
	})
	return &Logger{l: l, file: fileWriter}, nil
}

// Discard returns a logger that writes nowhere.
func Discard() *Logger {
	return &Logger{l: log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})}
}

func (g *Logger) Debug(msg string, args ...any) { g.l.Debug(msg, args...) }
func (g *Logger) Info(msg string, args ...any)  { g.l.Info(msg, args...) }
func (g *Logger) Warn(msg string, args ...any)  { g.l.Warn(msg, args...) }
func (g *Logger) Error(msg string, args ...any) { g.l.Error(msg, args...) }

func (g *Logger) With(args ...any) *Logger {
	return &Logger{l: g.l.With(args...), file: g.file}
}

func (g *Logger) Close() error {
	if g.file == nil {
		return nil
	}
	return g.file.Close()
}
