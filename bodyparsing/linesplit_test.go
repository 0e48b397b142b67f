package bodyparsing

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitLine(t *testing.T) {
	type testcase struct {
		input        string
		expectedLine string
		expectedTerm string
		terminated   bool
	}
	tests := []testcase{
		{"foo", "foo", "", false},
		{"foo\r\n", "foo", "\r\n", true},
		{"foo\r", "foo", "\r", true},
		{"foo\n", "foo", "\n", true},
		{"foo\n\rbar", "foo", "\n", true},
		{"foo\r\rbar", "foo", "\r", true},
		{"\r\nfoo", "", "\r\n", true},
		{"", "", "", false},
	}

	for _, test := range tests {
		// Act
		line, term := splitLine([]byte(test.input))

		// Assert
		assert.Equal(t, test.expectedLine, string(line), "input %q", test.input)
		assert.Equal(t, test.expectedTerm, string(term), "input %q", test.input)
		assert.Equal(t, test.terminated, term != nil, "input %q", test.input)
	}
}

func TestSplitLineReconstructsInput(t *testing.T) {
	inputs := []string{
		"a\nb\rc\r\nd",
		"\r\n\r\n--foo\r\n",
		"\r\r\n\n\r",
		"no terminator at all",
		"trailing\r\n",
	}

	for _, input := range inputs {
		// Arrange
		var out bytes.Buffer
		rest := []byte(input)

		// Act
		for len(rest) > 0 {
			line, term := splitLine(rest)
			out.Write(line)
			out.Write(term)
			rest = rest[len(line)+len(term):]
		}

		// Assert
		assert.Equal(t, input, out.String())
	}
}
