package server

import (
	"io"
	"net/http"

	"formparse/form"
)

// httpFormRequest adapts an incoming *http.Request to form.Request and form.ResultsLoggerRequest.
type httpFormRequest struct {
	r             *http.Request
	transactionID string
}

func (h *httpFormRequest) Method() string      { return h.r.Method }
func (h *httpFormRequest) ContentType() string { return h.r.Header.Get("Content-Type") }
func (h *httpFormRequest) URI() string         { return h.r.RequestURI }
func (h *httpFormRequest) TransactionID() string {
	return h.transactionID
}

func (h *httpFormRequest) ContentLength() int64 {
	if h.r.ContentLength < 0 {
		return form.UnknownLength
	}
	return h.r.ContentLength
}

func (h *httpFormRequest) BodyReader() io.Reader {
	if h.r.Body == nil {
		return nil
	}
	return h.r.Body
}
