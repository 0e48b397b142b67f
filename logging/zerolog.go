package logging

import (
	json "github.com/json-iterator/go"
	"github.com/rs/zerolog"

	"formparse/form"
)

// NewZerologResultsLogger creates a results logger that creates log messages like the ones we want to send to operators, but just outputs them to Zerolog.
func NewZerologResultsLogger(logger zerolog.Logger) form.ResultsLogger {
	return &zerologResultsLogger{logger: logger}
}

type zerologResultsLogger struct {
	logger zerolog.Logger
}

func (l *zerologResultsLogger) SizeLimitExceeded(request form.ResultsLoggerRequest, limits form.Limits, err error) {
	l.write(newSizeLimitExceededEntry(MetaData{}, request, limits, err))
}

func (l *zerologResultsLogger) BodyParseError(request form.ResultsLoggerRequest, err error) {
	l.write(newBodyParseErrorEntry(MetaData{}, request, err))
}

func (l *zerologResultsLogger) FormParsed(request form.ResultsLoggerRequest, result *form.Result) {
	l.write(newFormParsedEntry(MetaData{}, request, result))
}

func (l *zerologResultsLogger) write(entry interface{}) {
	bb, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		l.logger.Error().Err(err).Msg("Error while marshaling JSON results log")
		return
	}

	l.logger.Info().Msgf("Results log:\n%s\n", bb)
}

// NewNopResultsLogger creates a results logger that drops everything.
func NewNopResultsLogger() form.ResultsLogger {
	return nopResultsLogger{}
}

type nopResultsLogger struct{}

func (nopResultsLogger) SizeLimitExceeded(form.ResultsLoggerRequest, form.Limits, error) {}
func (nopResultsLogger) BodyParseError(form.ResultsLoggerRequest, error)                 {}
func (nopResultsLogger) FormParsed(form.ResultsLoggerRequest, *form.Result)              {}
