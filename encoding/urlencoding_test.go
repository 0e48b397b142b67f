package encoding

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"formparse/form"
)

func TestWeakURLUnescape(t *testing.T) {
	tests := []struct {
		inputVal string
		expected string
	}{
		{`hello%20world`, `hello world`},
		{`hello+world`, `hello world`},
		{`hello%ggworld`, `hello%ggworld`},
		{`hello%20`, `hello `},
		{`hello%2`, `hello%2`},
		{`hello%`, `hello%`},
		{`%20`, ` `},
		{`%2`, `%2`},
		{`%`, `%`},
		{``, ``},
		{`%00`, "\x00"},
		{`x%6ax`, `xjx`},
		{`x%6Ax`, `xjx`},
		{`%%20`, `% `},
		{`%2%41`, `%2A`},
		{`%+`, `% `},
		{`%C3%A9`, "\xc3\xa9"},
	}

	for _, test := range tests {
		// Act
		s := WeakURLUnescape(test.inputVal)

		// Assert
		assert.Equal(t, test.expected, s, "input %q", test.inputVal)
	}
}

func TestIsValidURLEncoding(t *testing.T) {
	tests := []struct {
		inputVal string
		expected bool
	}{
		{`hello%20world`, true},
		{`hello%ggworld`, false},
		{`hello%20`, true},
		{`hello%2`, false},
		{`hello%`, false},
		{`%20`, true},
		{`%2`, false},
		{`%`, false},
		{``, true},
		{`%00`, true},
		{`x%6ax`, true},
		{`x%6Ax`, true},
		{`a+b`, true},
	}

	for _, test := range tests {
		// Act
		ok := IsValidURLEncoding(test.inputVal)

		// Assert
		assert.Equal(t, test.expected, ok, "input %q", test.inputVal)
	}
}

func TestURLEncode(t *testing.T) {
	// Arrange
	assert := assert.New(t)
	fields := form.NewMultiDict[string]()
	fields.Add("foo", "bar")
	fields.Add("blah", "hey you")
	fields.Add("foo", "b&z")

	// Act
	plain := URLEncodeString(fields.All(), EncodeOptions{})
	sorted := URLEncodeString(fields.All(), EncodeOptions{Sort: true})
	semicolons := URLEncodeString(fields.All(), EncodeOptions{Separator: ';'})

	// Assert
	assert.Equal("foo=bar&blah=hey+you&foo=b%26z", plain)
	assert.Equal("blah=hey+you&foo=bar&foo=b%26z", sorted)
	assert.Equal("foo=bar;blah=hey+you;foo=b%26z", semicolons)
}

func TestURLEncodeCustomKeyOrder(t *testing.T) {
	// Arrange
	fields := form.NewMultiDict[string]()
	fields.Add("b", "4")
	fields.Add("a", "2")
	fields.Add("B", "3")
	fields.Add("A", "1")
	caseInsensitive := func(a, b string) bool {
		return strings.ToLower(a)+a < strings.ToLower(b)+b
	}

	// Act
	s := URLEncodeString(fields.All(), EncodeOptions{Less: caseInsensitive})

	// Assert
	assert.Equal(t, "A=1&a=2&B=3&b=4", s)
}

func TestURLEncodeEmpty(t *testing.T) {
	// Act
	s := URLEncodeString(form.NewMultiDict[string]().All(), EncodeOptions{})

	// Assert
	assert.Equal(t, "", s)
}

func TestURLEncodeRoundTripsThroughWeakURLUnescape(t *testing.T) {
	// Arrange
	assert := assert.New(t)
	fields := form.NewMultiDict[string]()
	fields.Add("ключ", "Skåne län")
	fields.Add("100%", "a+b=c")

	// Act
	s := URLEncodeString(fields.All(), EncodeOptions{})

	// Assert
	assert.True(IsValidURLEncoding(s))
	assert.Equal("ключ=Skåne län&100%=a+b=c", WeakURLUnescape(s))
}
