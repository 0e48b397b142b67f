package testutils

import (
	"io"
)

// MockReader is an io.Reader that yields Prefix, then copies of Content until Length bytes of content were produced, then Suffix.
// It lets tests build very large request bodies without holding them in memory.
type MockReader struct {
	Prefix  []byte
	Content []byte
	Suffix  []byte
	Length  int
	Pos     int
	next    []byte
	stage   int
}

// Read fills p with the next bytes of the synthetic body.
func (m *MockReader) Read(p []byte) (n int, err error) {
	if m.Content == nil {
		m.Content = []byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	}

	for n < len(p) {
		if len(m.next) == 0 {
			if !m.advance() {
				err = io.EOF
				return
			}
			continue
		}

		c := copy(p[n:], m.next)
		n += c
		m.next = m.next[c:]
		if m.stage == 1 {
			m.Pos += c
		}
	}

	return
}

// advance moves to the next chunk of data and reports whether there is any left.
func (m *MockReader) advance() bool {
	switch m.stage {
	case 0:
		m.stage = 1
		m.next = m.Prefix
		return true
	case 1:
		if m.Pos >= m.Length {
			m.stage = 2
			m.next = m.Suffix
			return true
		}

		chunk := m.Content
		if rem := m.Length - m.Pos; rem < len(chunk) {
			chunk = chunk[:rem]
		}
		m.next = chunk
		return true
	}

	return false
}
