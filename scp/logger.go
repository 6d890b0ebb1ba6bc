package scp

import "github.com/rs/zerolog"

// Logger is the minimal logging surface the transfer engine needs.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// NopLogger does nothing
type NopLogger struct{}

func (NopLogger) Debug(format string, args ...interface{}) {}
func (NopLogger) Info(format string, args ...interface{})  {}
func (NopLogger) Error(format string, args ...interface{}) {}

// ZerologLogger adapts a zerolog.Logger to the package Logger interface.
type ZerologLogger struct {
	L zerolog.Logger
}

func (z ZerologLogger) Debug(format string, args ...interface{}) {
	z.L.Debug().Msgf(format, args...)
}

func (z ZerologLogger) Info(format string, args ...interface{}) {
	z.L.Info().Msgf(format, args...)
}

func (z ZerologLogger) Error(format string, args ...interface{}) {
	z.L.Error().Msgf(format, args...)
}
