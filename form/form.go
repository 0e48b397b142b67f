package form

import (
	"io"

	"github.com/rs/zerolog"
)

// UnknownLength is the ContentLength of a request that did not declare one.
const UnknownLength int64 = -1

// Limits states the size restrictions enforced while a body is parsed. A zero value means no limit.
type Limits struct {
	MaxContentLength  int64 // Total number of body bytes that may be consumed, checked against the declared length up front and the observed length while reading.
	MaxFormMemorySize int64 // Number of bytes of decoded field names and values that may be held in memory, cumulative across all fields of one body. File contents are not counted.
}

// ErrorsPolicy selects what happens to field bytes that cannot be decoded with the request charset or the fallback charset.
type ErrorsPolicy string

// Policies available.
const (
	ErrorsReplace ErrorsPolicy = "replace"
	ErrorsIgnore  ErrorsPolicy = "ignore"
	ErrorsStrict  ErrorsPolicy = "strict"
)

// Options configures a Parser. They are copied on construction and never changed afterwards.
type Options struct {
	Limits             Limits
	Charset            string        // Charset used for field values unless the body or the part declares one. Defaults to utf-8.
	FallbackCharset    string        // Tried when a value is not valid in Charset. Empty disables the fallback.
	Errors             ErrorsPolicy  // Applied when neither charset could decode a value. Defaults to ErrorsReplace.
	Silent             bool          // Swallow parse errors and return empty mappings. Size limit errors are always returned.
	SkipMalformedParts bool          // Drop multipart parts with malformed headers or unsupported encodings instead of failing.
	Separator          byte          // Pair separator for urlencoded bodies. Defaults to '&'.
	DecodeKeys         bool          // Decode urlencoded keys with the charset like values.
	BufferSize         int           // Size of the line buffer. Longer lines are handled in chunks.
	StreamFactory      StreamFactory // Creates the streams file uploads are written to.
}

// Request is the part of an HTTP request the Parser needs.
type Request interface {
	Method() string
	ContentType() string
	ContentLength() int64
	BodyReader() io.Reader
}

// Parser decodes form bodies.
type Parser interface {
	Parse(logger zerolog.Logger, req Request) (*Result, error)
}

// Spool is the storage a file upload is written to and later read back from.
type Spool interface {
	io.Reader
	io.Writer
	io.Seeker
	io.Closer
}

// StreamFactory creates a Spool for a file upload. contentLength is the length of the whole body, or UnknownLength.
type StreamFactory interface {
	NewStream(fieldName, contentType, filename string, contentLength int64) (Spool, error)
}

// StreamFactoryFunc adapts a function to a StreamFactory.
type StreamFactoryFunc func(fieldName, contentType, filename string, contentLength int64) (Spool, error)

// NewStream calls f.
func (f StreamFactoryFunc) NewStream(fieldName, contentType, filename string, contentLength int64) (Spool, error) {
	return f(fieldName, contentType, filename, contentLength)
}

// Result is the outcome of parsing a body.
type Result struct {
	Stream   io.Reader // What is left of the body. Untouched for content types that are not parsed.
	Fields   *Fields
	Files    *Files
	Warnings []string // Irregularities that did not fail the parse.
}

// NewEmptyResult creates a Result with empty mappings around stream.
func NewEmptyResult(stream io.Reader) *Result {
	return &Result{
		Stream: stream,
		Fields: NewMultiDict[string](),
		Files:  NewMultiDict[*FileEntry](),
	}
}

// Close closes every file stream in the result.
func (r *Result) Close() error {
	if r.Files == nil {
		return nil
	}

	return CloseFiles(r.Files)
}
