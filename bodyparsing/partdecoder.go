package bodyparsing

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime/quotedprintable"
	"strings"

	"formparse/form"
)

type partKind int

const (
	_ partKind = iota
	fieldPart
	filePart
)

// partInfo is what the headers of one part say about how to handle its body.
type partInfo struct {
	kind        partKind
	name        string
	hasName     bool
	filename    string
	contentType string
	mediaType   string
	params      map[string]string
	charset     string
	encoding    string
	headers     form.Headers
}

// describePart inspects the headers of a part.
func describePart(headers form.Headers) (info partInfo, err error) {
	disposition, ok := headers.Lookup("Content-Disposition")
	if !ok {
		err = fmt.Errorf("%w: missing Content-Disposition header", form.ErrMalformedHeaderBlock)
		return
	}

	info.headers = headers

	// Some clients send "form-field" instead of "form-data". Both are accepted, and so is anything else.
	_, dispParams := parseOptionsHeader(disposition)
	info.name, info.hasName = dispParams["name"]

	info.kind = fieldPart
	if filename, isFile := dispParams["filename"]; isFile {
		info.kind = filePart
		info.filename = fixIEFilename(filename)
	}

	info.contentType = headers.Get("Content-Type")
	if info.contentType != "" {
		info.mediaType, info.params = parseOptionsHeader(info.contentType)
		info.charset = info.params["charset"]
	}

	info.encoding, err = transferEncoding(headers)
	return
}

// transferEncoding returns the normalized Content-Transfer-Encoding of a part. An empty result means the body is used as is.
func transferEncoding(headers form.Headers) (string, error) {
	v := strings.ToLower(strings.TrimSpace(headers.Get("Content-Transfer-Encoding")))
	switch v {
	case "", "7bit", "8bit", "binary":
		return "", nil
	case "base64", "quoted-printable":
		return v, nil
	}

	return "", fmt.Errorf("%w: %q", form.ErrUnsupportedTransferEncoding, v)
}

// newTransferDecoder wraps the body of a part with the decoder for its transfer encoding.
func newTransferDecoder(encoding string, body *partReader) io.Reader {
	switch encoding {
	case "base64":
		return &transferDecodingReader{decoder: base64.NewDecoder(base64.StdEncoding, body), body: body}
	case "quoted-printable":
		return &transferDecodingReader{decoder: quotedprintable.NewReader(body), body: body}
	}

	return body
}

// transferDecodingReader marks errors that come from the decoder itself with form.ErrDecode.
type transferDecodingReader struct {
	decoder io.Reader
	body    *partReader
}

func (t *transferDecodingReader) Read(p []byte) (n int, err error) {
	n, err = t.decoder.Read(p)
	if err == nil || err == io.EOF || (t.body.err != nil && errors.Is(err, t.body.err)) {
		return
	}

	err = fmt.Errorf("%w: %w", form.ErrDecode, err)
	return
}

// fieldAccumulator collects the value of a text field within the memory budget.
type fieldAccumulator struct {
	buf    bytes.Buffer
	budget *memoryBudget
}

func (a *fieldAccumulator) Write(p []byte) (int, error) {
	if err := a.budget.reserve(len(p)); err != nil {
		return 0, err
	}

	return a.buf.Write(p)
}
