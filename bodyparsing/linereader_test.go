package bodyparsing

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAllChunks(t *testing.T, l *lineReader) (chunks []lineChunk) {
	for {
		c, err := l.next()
		if err == io.EOF {
			return
		}
		require.NoError(t, err)

		// Copy, since the chunk aliases the reader's buffer.
		chunks = append(chunks, lineChunk{
			data:       append([]byte(nil), c.data...),
			terminator: append([]byte(nil), c.terminator...),
			continued:  c.continued,
		})
	}
}

func TestLineReaderMixedTerminators(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	l := newLineReader(strings.NewReader("a\r\nb\nc\rd"), 0)

	// Act
	chunks := readAllChunks(t, l)

	// Assert
	require.Len(t, chunks, 4)
	assert.Equal("a", string(chunks[0].data))
	assert.Equal("\r\n", string(chunks[0].terminator))
	assert.Equal("b", string(chunks[1].data))
	assert.Equal("\n", string(chunks[1].terminator))
	assert.Equal("c", string(chunks[2].data))
	assert.Equal("\r", string(chunks[2].terminator))
	assert.Equal("d", string(chunks[3].data))
	assert.Empty(chunks[3].terminator)
}

func TestLineReaderCRLFSplitAcrossReads(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	// One byte per Read means every "\r" arrives without its "\n".
	l := newLineReader(iotest.OneByteReader(strings.NewReader("ab\r\ncd\r\n")), 0)

	// Act
	chunks := readAllChunks(t, l)

	// Assert
	require.Len(t, chunks, 2)
	assert.Equal("ab", string(chunks[0].data))
	assert.Equal("\r\n", string(chunks[0].terminator))
	assert.Equal("cd", string(chunks[1].data))
	assert.Equal("\r\n", string(chunks[1].terminator))
}

func TestLineReaderLongLinesAreChunked(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	long := strings.Repeat("x", 2500)
	l := newLineReader(strings.NewReader(long+"\r\nshort\r\n"), minBufferSize)

	// Act
	chunks := readAllChunks(t, l)

	// Assert
	var rebuilt bytes.Buffer
	for i, c := range chunks {
		assert.True(len(c.data) <= minBufferSize)
		if i > 0 && i < 3 {
			assert.True(c.continued, "chunk %d", i)
		}
		rebuilt.Write(c.data)
		rebuilt.Write(c.terminator)
	}
	assert.Equal(long+"\r\nshort\r\n", rebuilt.String())
	last := chunks[len(chunks)-1]
	assert.Equal("short", string(last.data))
	assert.False(last.continued)
	assert.False(chunks[0].continued)
}

func TestLineReaderCRAtBufferEdge(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	// The "\r" of the first "\r\n" is the last byte that fits into the buffer.
	first := strings.Repeat("y", minBufferSize-1)
	l := newLineReader(strings.NewReader(first+"\r\nnext\r\n"), minBufferSize)

	// Act
	chunks := readAllChunks(t, l)

	// Assert
	var lines []string
	var current string
	for _, c := range chunks {
		current += string(c.data)
		if c.terminator != nil {
			assert.Equal("\r\n", string(c.terminator))
			lines = append(lines, current)
			current = ""
		}
	}
	assert.Equal([]string{first, "next"}, lines)
}

func TestLineReaderPropagatesErrors(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	boom := errors.New("boom")
	l := newLineReader(io.MultiReader(strings.NewReader("line\r\npartial"), iotest.ErrReader(boom)), 0)

	// Act
	c, err1 := l.next()
	_, err2 := l.next()

	// Assert
	assert.Nil(err1)
	assert.Equal("line", string(c.data))
	assert.Equal(boom, err2)
}
