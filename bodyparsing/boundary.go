package bodyparsing

import (
	"bytes"
	"fmt"
	"io"

	"formparse/form"
)

const maxBoundaryLength = 200

type lineKind int

const (
	_ lineKind = iota
	bodyLine
	nextPartLine
	lastPartLine
)

// validateBoundary checks a multipart boundary token: 1 to 200 printable ASCII characters, the last of which is not a space.
func validateBoundary(boundary string) error {
	if boundary == "" {
		return fmt.Errorf("%w: boundary is empty", form.ErrMalformedBoundary)
	}

	if len(boundary) > maxBoundaryLength {
		return fmt.Errorf("%w: boundary is longer than %d characters", form.ErrMalformedBoundary, maxBoundaryLength)
	}

	for i := 0; i < len(boundary); i++ {
		if c := boundary[i]; c < ' ' || c > '~' {
			return fmt.Errorf("%w: boundary contains the non-printable byte 0x%02x", form.ErrMalformedBoundary, c)
		}
	}

	if boundary[len(boundary)-1] == ' ' {
		return fmt.Errorf("%w: boundary ends with a space", form.ErrMalformedBoundary)
	}

	return nil
}

// boundaryScanner recognizes the delimiter lines of one multipart body.
type boundaryScanner struct {
	nextPart []byte
	lastPart []byte
}

func newBoundaryScanner(boundary string) (*boundaryScanner, error) {
	if err := validateBoundary(boundary); err != nil {
		return nil, err
	}

	nextPart := []byte("--" + boundary)
	return &boundaryScanner{
		nextPart: nextPart,
		lastPart: append(append([]byte(nil), nextPart...), '-', '-'),
	}, nil
}

// classify tells whether c is a delimiter line. Delimiters must make up a whole line; trailing spaces and tabs are ignored.
func (s *boundaryScanner) classify(c lineChunk) lineKind {
	if c.continued || !c.endsLine() || !bytes.HasPrefix(c.data, s.nextPart) {
		return bodyLine
	}

	line := bytes.TrimRight(c.data, " \t")
	switch {
	case bytes.Equal(line, s.nextPart):
		return nextPartLine
	case bytes.Equal(line, s.lastPart):
		return lastPartLine
	}

	return bodyLine
}

// partReader reads the body of one part, up to the next delimiter line.
// The line break in front of the delimiter belongs to the delimiter, so it is held back until the next body line shows up.
type partReader struct {
	lines   *lineReader
	scanner *boundaryScanner

	prefix    []byte
	pending   []byte
	held      []byte
	prefixBuf [2]byte
	heldBuf   [2]byte

	end lineKind
	err error
}

func newPartReader(lines *lineReader, scanner *boundaryScanner) *partReader {
	return &partReader{lines: lines, scanner: scanner}
}

func (r *partReader) Read(p []byte) (n int, err error) {
	for n < len(p) {
		if len(r.prefix) > 0 {
			c := copy(p[n:], r.prefix)
			r.prefix = r.prefix[c:]
			n += c
			continue
		}

		if len(r.pending) > 0 {
			c := copy(p[n:], r.pending)
			r.pending = r.pending[c:]
			n += c
			continue
		}

		if r.end != 0 {
			err = io.EOF
			return
		}

		if r.err != nil {
			err = r.err
			return
		}

		if n > 0 {
			return
		}

		r.advance()
	}

	return
}

func (r *partReader) advance() {
	c, err := r.lines.next()
	if err == io.EOF {
		r.err = fmt.Errorf("%w: stream ended inside a part", form.ErrTruncatedBody)
		return
	}

	if err != nil {
		r.err = err
		return
	}

	if kind := r.scanner.classify(c); kind != bodyLine {
		r.end = kind
		r.held = nil
		return
	}

	r.prefix = r.prefixBuf[:copy(r.prefixBuf[:], r.held)]
	r.pending = c.data
	r.held = r.heldBuf[:copy(r.heldBuf[:], c.terminator)]
}
