package main

import (
	"fmt"
	"log/slog"
)

// slogGooseLogger adapts the goose logger interface to slog so migration
// output lands in the same structured stream as the rest of the loader.
type slogGooseLogger struct{}

func (l *slogGooseLogger) Printf(format string, v ...interface{}) {
	slog.Info(fmt.Sprintf(format, v...))
}

// Fatalf logs at error level without exiting; the error is returned to
// main, which owns process exit.
func (l *slogGooseLogger) Fatalf(format string, v ...interface{}) {
	slog.Error(fmt.Sprintf(format, v...))
}
