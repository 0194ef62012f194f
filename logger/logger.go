// Package logger holds the process-wide diagnostic logger.
// Console output meant for the user goes through package ui instead.
package logger

import (
	"io"
	"log/slog"
)

var log = slog.New(slog.NewTextHandler(io.Discard, nil))

// SetLogger replaces the process-wide logger
func SetLogger(l *slog.Logger) {
	log = l
}

// NewWriter returns a text logger on w; verbose enables debug records,
// otherwise only warnings and errors are kept
func NewWriter(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func Debug(msg string, args ...any) {
	log.Debug(msg, args...)
}

func Info(msg string, args ...any) {
	log.Info(msg, args...)
}

func Warn(msg string, args ...any) {
	log.Warn(msg, args...)
}

func Error(msg string, args ...any) {
	log.Error(msg, args...)
}
