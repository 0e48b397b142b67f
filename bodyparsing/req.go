package bodyparsing

import (
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/rs/zerolog"

	"formparse/form"
)

// NewFormDataParser creates a form.Parser. Options left at their zero value get the defaults.
func NewFormDataParser(opts form.Options) form.Parser {
	return &formDataParserImpl{
		opts: withDefaults(opts),
	}
}

type formDataParserImpl struct {
	opts form.Options
}

func (r *formDataParserImpl) Parse(logger zerolog.Logger, req form.Request) (res *form.Result, err error) {
	bodyReader := req.BodyReader()
	if bodyReader == nil {
		bodyReader = strings.NewReader("")
	}

	if !methodHasBody(req.Method()) {
		res = form.NewEmptyResult(strings.NewReader(""))
		return
	}

	contentLength := req.ContentLength()

	// If the headers already up front said that the request is going to be too large, there's no point in starting to read the body.
	if max := r.opts.Limits.MaxContentLength; max > 0 && contentLength > max {
		err = fmt.Errorf("%w: declared length %d is above %d", form.ErrSizeLimitExceeded, contentLength, max)
		return
	}

	if contentLength >= 0 {
		bodyReader = io.LimitReader(bodyReader, contentLength)
	}

	// Every path hands this counter back as the result stream, so the caller's reads stay limited too.
	counter := newMaxLengthReaderDecorator(bodyReader, r.opts.Limits)

	mediatype, mediaTypeParams := parseContentType(req.ContentType())

	// Without a content type and a length there is no telling where the body ends.
	if mediatype == "" && contentLength == form.UnknownLength {
		res = form.NewEmptyResult(strings.NewReader(""))
		return
	}

	opts := r.opts
	if cs := mediaTypeParams["charset"]; cs != "" {
		opts.Charset = cs
	}

	switch mediatype {

	case "multipart/form-data":
		res, err = ParseMultipart(logger, counter, mediaTypeParams["boundary"], contentLength, opts)

	case "application/x-www-form-urlencoded":
		res, err = ParseURLEncoded(logger, counter, opts)

	default:
		// Not a form. The body is handed back unread.
		logger.Debug().Str("mediaType", mediatype).Msg("Body is not form data")
		res = form.NewEmptyResult(counter)
		return
	}

	if err != nil {
		if opts.Silent && !form.IsSizeLimitExceeded(err) {
			logger.Warn().Err(err).Str("mediaType", mediatype).Msg("Ignoring malformed form body")
			res = form.NewEmptyResult(counter)
			res.Warnings = []string{err.Error()}
			err = nil
			return
		}

		err = fmt.Errorf("%v body parsing error: %w", mediatype, err)
		return
	}

	return
}

// parseContentType returns the lower-cased media type and its parameters. Values mime.ParseMediaType rejects are parsed leniently.
func parseContentType(contentType string) (mediatype string, params map[string]string) {
	mediatype, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediatype, params = parseOptionsHeader(contentType)
	}

	return
}

func methodHasBody(method string) bool {
	switch strings.ToUpper(method) {
	case "GET", "HEAD", "OPTIONS", "TRACE", "CONNECT":
		return false
	}

	return true
}

// withDefaults fills in the options left at their zero value.
func withDefaults(opts form.Options) form.Options {
	if opts.Charset == "" {
		opts.Charset = defaultCharset
	}

	if opts.Errors == "" {
		opts.Errors = form.ErrorsReplace
	}

	if opts.Separator == 0 {
		opts.Separator = '&'
	}

	if opts.BufferSize <= 0 {
		opts.BufferSize = defaultBufferSize
	}

	if opts.StreamFactory == nil {
		opts.StreamFactory = NewSpooledStreamFactory(DefaultSpoolThreshold, "")
	}

	return opts
}
