package bodyparsing

import (
	"io"
)

const (
	defaultBufferSize        = 64 * 1024
	minBufferSize            = 1024
	maxConsecutiveEmptyReads = 100
)

// lineChunk is what lineReader hands out: a line, or a piece of a line too long for the buffer.
type lineChunk struct {
	data       []byte
	terminator []byte // nil unless data is the end of a line
	continued  bool   // data continues a line that earlier chunks started
	lastLine   bool   // data is the unterminated last line of the stream
}

// endsLine reports whether no more bytes of this line will follow.
func (c lineChunk) endsLine() bool {
	return c.terminator != nil || c.lastLine
}

// lineReader is a pull cursor over a byte stream. Each call to next yields one line, so memory use is bounded by the buffer size no matter how long the body is.
type lineReader struct {
	src     io.Reader
	buf     []byte
	r, w    int
	eof     bool
	err     error
	midLine bool
}

func newLineReader(src io.Reader, size int) *lineReader {
	if size <= 0 {
		size = defaultBufferSize
	} else if size < minBufferSize {
		size = minBufferSize
	}

	return &lineReader{src: src, buf: make([]byte, size)}
}

// next returns the next line or line chunk. The returned slices alias the internal buffer and are only valid until the following call.
// io.EOF is returned once the stream is exhausted and every byte was handed out.
func (l *lineReader) next() (c lineChunk, err error) {
	c.continued = l.midLine

	for {
		data := l.buf[l.r:l.w]
		line, term := splitLine(data)

		if term != nil {
			// A "\r" at the very end of what we have buffered may be the first half of a "\r\n".
			if len(term) == 1 && term[0] == '\r' && len(line)+1 == len(data) && !l.eof && l.err == nil {
				if len(data) < len(l.buf) {
					l.fill()
					continue
				}

				l.r += len(line)
				l.midLine = true
				c.data = line
				return
			}

			l.r += len(line) + len(term)
			l.midLine = false
			c.data, c.terminator = line, term
			return
		}

		if l.err != nil {
			err = l.err
			return
		}

		if l.eof {
			if len(data) == 0 {
				err = io.EOF
				return
			}

			l.r = l.w
			l.midLine = false
			c.data = data
			c.lastLine = true
			return
		}

		if len(data) == len(l.buf) {
			l.r = l.w
			l.midLine = true
			c.data = data
			return
		}

		l.fill()
	}
}

// buffered returns a copy of the bytes that were read from the source but not handed out yet.
func (l *lineReader) buffered() []byte {
	return append([]byte(nil), l.buf[l.r:l.w]...)
}

// fill compacts the buffer and reads more data into it.
func (l *lineReader) fill() {
	if l.r > 0 {
		copy(l.buf, l.buf[l.r:l.w])
		l.w -= l.r
		l.r = 0
	}

	for i := maxConsecutiveEmptyReads; i > 0; i-- {
		n, err := l.src.Read(l.buf[l.w:])
		l.w += n
		if err == io.EOF {
			l.eof = true
			return
		}

		if err != nil {
			l.err = err
			return
		}

		if n > 0 {
			return
		}
	}

	l.err = io.ErrNoProgress
}
