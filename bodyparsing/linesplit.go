package bodyparsing

import "bytes"

var (
	crlf = []byte("\r\n")
	cr   = []byte("\r")
	lf   = []byte("\n")
)

// splitLine returns the first line of buf and the terminator that ended it. "\r\n" counts as one terminator, a lone "\r" or "\n" as another.
// A nil terminator means buf contains no line break, so the line may continue in data not yet read.
func splitLine(buf []byte) (line, terminator []byte) {
	i := bytes.IndexAny(buf, "\r\n")
	if i < 0 {
		return buf, nil
	}

	if buf[i] == '\n' {
		return buf[:i], lf
	}

	if i+1 < len(buf) && buf[i+1] == '\n' {
		return buf[:i], crlf
	}

	return buf[:i], cr
}
