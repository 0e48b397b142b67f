package bodyparsing

import (
	"io"
)

// multipartAnomaly is a set of RFC 2046 deviations seen in a multipart body. None of them fail the parse.
type multipartAnomaly uint

const (
	anomalyDataBefore multipartAnomaly = 1 << iota
	anomalyDataAfter
	anomalyHeaderFolding
	anomalyInvalidHeaderFolding
	anomalyLfLine
	anomalyCrLine
	anomalyUnmatchedBoundary
	anomalyIncomplete
)

var anomalyDescriptions = []struct {
	anomaly     multipartAnomaly
	description string
}{
	{anomalyDataBefore, "data before the first boundary"},
	{anomalyDataAfter, "data after the final boundary"},
	{anomalyHeaderFolding, "folded part header"},
	{anomalyInvalidHeaderFolding, "part header folded with a character other than space or tab"},
	{anomalyLfLine, "line terminated by LF without CR"},
	{anomalyCrLine, "line terminated by CR without LF"},
	{anomalyUnmatchedBoundary, "line starts like a boundary but does not match it"},
	{anomalyIncomplete, "body does not end with the final boundary"},
}

type multipartStrictState int

const (
	bodyLineStart multipartStrictState = iota
	inBodyLine
	afterBodyCr
	afterDash1
	inBoundary
	afterBoundary
	afterBoundaryCr
	headerLineStart
	inHeaderLine
	afterHeaderCr
	afterEmptyHeaderCr
	afterFinalDash1
	afterFinalBoundary
	afterFinalBoundaryCr
	inEpilogue
)

// multipartStrictReaderDecorator watches the bytes of a multipart body go by and records how the body deviates from RFC 2046.
// It does not change the bytes, and it works byte by byte, so it does not care how reads are split.
type multipartStrictReaderDecorator struct {
	reader         io.Reader
	boundary       string
	boundaryPos    int
	boundariesSeen int
	state          multipartStrictState
	anomalies      multipartAnomaly
}

func newMultipartStrictReaderDecorator(reader io.Reader, boundary string) *multipartStrictReaderDecorator {
	return &multipartStrictReaderDecorator{reader: reader, boundary: boundary}
}

func (m *multipartStrictReaderDecorator) Read(p []byte) (n int, errOut error) {
	n, errOut = m.reader.Read(p)

	for i := 0; i < n; {
		if m.step(p[i]) {
			i++
		}
	}

	return
}

// step advances the state machine by one byte. It returns false if c must be looked at again in the new state.
func (m *multipartStrictReaderDecorator) step(c byte) bool {
	switch m.state {
	case bodyLineStart:
		if c == '-' {
			m.state = afterDash1
			return true
		}
		m.bodyByte()
		return false

	case inBodyLine:
		// Line breaks inside part bodies are data, so they are not checked.
		m.bodyByte()
		switch c {
		case '\r':
			m.state = afterBodyCr
		case '\n':
			m.state = bodyLineStart
		}

	case afterBodyCr:
		if c != '\n' {
			m.state = bodyLineStart
			return false
		}
		m.bodyByte()
		m.state = bodyLineStart

	case afterDash1:
		if c == '-' {
			m.state = inBoundary
			m.boundaryPos = 0
			return true
		}
		m.notABoundary(false)
		return false

	case inBoundary:
		if m.boundaryPos == len(m.boundary) {
			m.state = afterBoundary
			return false
		}
		if c != m.boundary[m.boundaryPos] {
			m.notABoundary(true)
			return false
		}
		m.boundaryPos++

	case afterBoundary:
		switch c {
		case ' ', '\t':
		case '\r':
			m.state = afterBoundaryCr
		case '\n':
			m.anomalies |= anomalyLfLine
			m.boundariesSeen++
			m.state = headerLineStart
		case '-':
			m.state = afterFinalDash1
		default:
			m.notABoundary(true)
			return false
		}

	case afterBoundaryCr:
		m.boundariesSeen++
		m.state = headerLineStart
		if c != '\n' {
			m.anomalies |= anomalyCrLine
			return false
		}

	case headerLineStart:
		switch c {
		case '\r':
			m.state = afterEmptyHeaderCr
		case '\n':
			m.anomalies |= anomalyLfLine
			m.state = bodyLineStart
		case ' ', '\t':
			m.anomalies |= anomalyHeaderFolding
			m.state = inHeaderLine
		case '\v', '\f':
			m.anomalies |= anomalyHeaderFolding | anomalyInvalidHeaderFolding
			m.state = inHeaderLine
		default:
			m.state = inHeaderLine
		}

	case inHeaderLine:
		switch c {
		case '\r':
			m.state = afterHeaderCr
		case '\n':
			m.anomalies |= anomalyLfLine
			m.state = headerLineStart
		}

	case afterHeaderCr:
		m.state = headerLineStart
		if c != '\n' {
			m.anomalies |= anomalyCrLine
			return false
		}

	case afterEmptyHeaderCr:
		// An empty line ends the headers. The next byte starts the part body.
		m.state = bodyLineStart
		if c != '\n' {
			m.anomalies |= anomalyCrLine
			return false
		}

	case afterFinalDash1:
		if c == '-' {
			m.state = afterFinalBoundary
			return true
		}
		m.notABoundary(true)
		return false

	case afterFinalBoundary:
		switch c {
		case ' ', '\t':
		case '\r':
			m.state = afterFinalBoundaryCr
		case '\n':
			m.anomalies |= anomalyLfLine
			m.state = inEpilogue
		default:
			m.notABoundary(true)
			return false
		}

	case afterFinalBoundaryCr:
		m.state = inEpilogue
		if c != '\n' {
			m.anomalies |= anomalyCrLine
			return false
		}

	case inEpilogue:
		m.anomalies |= anomalyDataAfter
	}

	return true
}

// bodyByte records a byte of preamble or part body.
func (m *multipartStrictReaderDecorator) bodyByte() {
	if m.boundariesSeen == 0 {
		m.anomalies |= anomalyDataBefore
	}
	if m.state == bodyLineStart {
		m.state = inBodyLine
	}
}

// notABoundary is called when a line that started with dashes turned out to be body data.
func (m *multipartStrictReaderDecorator) notABoundary(lookedLikeOne bool) {
	if lookedLikeOne {
		m.anomalies |= anomalyUnmatchedBoundary
	}
	if m.boundariesSeen == 0 {
		m.anomalies |= anomalyDataBefore
	}
	m.state = inBodyLine
}

func (m *multipartStrictReaderDecorator) completed() bool {
	switch m.state {
	case afterFinalBoundary, afterFinalBoundaryCr, inEpilogue:
		return true
	}

	return false
}

func (m *multipartStrictReaderDecorator) has(a multipartAnomaly) bool {
	return m.anomalies&a != 0
}

// warnings describes every anomaly seen so far. A body that was not read to its final boundary is reported as incomplete.
func (m *multipartStrictReaderDecorator) warnings() (w []string) {
	anomalies := m.anomalies
	if !m.completed() {
		anomalies |= anomalyIncomplete
	}

	for _, d := range anomalyDescriptions {
		if anomalies&d.anomaly != 0 {
			w = append(w, d.description)
		}
	}

	return
}
