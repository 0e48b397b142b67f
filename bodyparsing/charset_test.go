package bodyparsing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"formparse/form"
)

func TestDecodeCharset(t *testing.T) {
	tests := []struct {
		label string
		in    string
		out   string
		ok    bool
	}{
		{"utf-8", "Sk\xc3\xa5ne", "Skåne", true},
		{"UTF8", "Sk\xc3\xa5ne", "Skåne", true},
		{"utf-8", "Sk\xe5ne", "", false},
		{"latin1", "Sk\xe5ne l\xe4n", "Skåne län", true},
		{"iso-8859-1", "\xe9", "é", true},
		{"us-ascii", "plain", "plain", true},
		{"us-ascii", "\xe9", "", false},
		{"shift_jis", "\x82\xa0", "あ", true},
		{"no-such-charset", "x", "", false},
	}

	for _, tt := range tests {
		// Act
		s, ok := decodeCharset([]byte(tt.in), tt.label)

		// Assert
		assert.Equal(t, tt.ok, ok, "%s %q", tt.label, tt.in)
		if tt.ok {
			assert.Equal(t, tt.out, s, "%s %q", tt.label, tt.in)
		}
	}
}

func TestTextDecoderPolicies(t *testing.T) {
	invalid := []byte("a\xffb")

	tests := []struct {
		name     string
		opts     form.Options
		out      string
		strictly bool
	}{
		{"replace", form.Options{Errors: form.ErrorsReplace}, "a\uFFFDb", false},
		{"ignore", form.Options{Errors: form.ErrorsIgnore}, "ab", false},
		{"strict", form.Options{Errors: form.ErrorsStrict}, "", true},
		{"fallback", form.Options{Errors: form.ErrorsStrict, FallbackCharset: "latin1"}, "aÿb", false},
	}

	for _, tt := range tests {
		// Arrange
		d := newTextDecoder(withDefaults(tt.opts))

		// Act
		s, err := d.decode(invalid, "")

		// Assert
		if tt.strictly {
			assert.ErrorIs(t, err, form.ErrDecode, tt.name)
			continue
		}
		assert.Nil(t, err, tt.name)
		assert.Equal(t, tt.out, s, tt.name)
	}
}

func TestTextDecoderPartCharsetWins(t *testing.T) {
	// Arrange
	d := newTextDecoder(withDefaults(form.Options{Errors: form.ErrorsStrict}))

	// Act
	s, err := d.decode([]byte("l\xe4n"), "latin1")

	// Assert
	assert.Nil(t, err)
	assert.Equal(t, "län", s)
}

func TestTextDecoderUnknownLabelUsesRequestCharset(t *testing.T) {
	// Arrange
	d := newTextDecoder(withDefaults(form.Options{Charset: "latin1"}))

	// Act
	s, err := d.decode([]byte("l\xe4n"), "x-unknown")

	// Assert
	assert.Nil(t, err)
	assert.Equal(t, "län", s)
}
