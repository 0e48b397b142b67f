package form

// ResultsLogger is where high level, operator facing parse outcomes are written.
type ResultsLogger interface {
	SizeLimitExceeded(request ResultsLoggerRequest, limits Limits, err error)
	BodyParseError(request ResultsLoggerRequest, err error)
	FormParsed(request ResultsLoggerRequest, result *Result)
}

// ResultsLoggerRequest represents an HTTP request to be logged by ResultsLogger.
type ResultsLoggerRequest interface {
	TransactionID() string
	URI() string
	ContentType() string
}
