package form

import "errors"

// ErrSizeLimitExceeded is returned when the declared or observed body length exceeds Limits.MaxContentLength,
// or when the bytes held in memory for field values exceed Limits.MaxFormMemorySize.
var ErrSizeLimitExceeded = errors.New("request entity too large")

// ErrMalformedBoundary is returned when a multipart boundary is missing, empty or not a valid token.
var ErrMalformedBoundary = errors.New("malformed multipart boundary")

// ErrMalformedHeaderBlock is returned when the headers of a multipart part cannot be parsed.
var ErrMalformedHeaderBlock = errors.New("malformed multipart part headers")

// ErrUnsupportedTransferEncoding is returned when a part declares a Content-Transfer-Encoding outside of the allow-list.
var ErrUnsupportedTransferEncoding = errors.New("unsupported content transfer encoding")

// ErrDecode is returned when a part's payload is not valid for its declared transfer encoding or charset.
var ErrDecode = errors.New("could not decode transfer encoded payload")

// ErrTruncatedBody is returned when the stream ends before the final multipart boundary.
var ErrTruncatedBody = errors.New("unexpected end of multipart body")

// IsSizeLimitExceeded reports whether err is, or wraps, ErrSizeLimitExceeded.
func IsSizeLimitExceeded(err error) bool {
	return errors.Is(err, ErrSizeLimitExceeded)
}
