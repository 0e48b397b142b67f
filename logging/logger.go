package logging

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// NewConsoleLogger creates the human readable zerolog logger the commands log to. level is one of debug, info, warn, error, fatal, panic.
func NewConsoleLogger(out io.Writer, level string) (zerolog.Logger, error) {
	loglevel, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).Level(loglevel).With().Timestamp().Caller().Logger(), nil
}
