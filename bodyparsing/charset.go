package bodyparsing

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"

	"formparse/form"
)

const defaultCharset = "utf-8"

var replacementChar = []byte(string(utf8.RuneError))

// lookupEncoding resolves a charset label the way browsers do. ok is false for labels nobody knows.
func lookupEncoding(label string) (enc encoding.Encoding, name string, ok bool) {
	label = strings.TrimSpace(label)
	switch strings.ToLower(label) {
	case "":
		return unicode.UTF8, defaultCharset, true
	case "us-ascii", "ascii":
		// The WHATWG index maps these to windows-1252, which accepts every byte.
		return unicode.UTF8, "us-ascii", true
	}

	enc, name = charset.Lookup(label)
	return enc, name, enc != nil
}

// decodeCharset decodes b from the named charset and reports false if b is not valid in it.
func decodeCharset(b []byte, label string) (string, bool) {
	enc, name, ok := lookupEncoding(label)
	if !ok {
		return "", false
	}

	switch name {
	case defaultCharset:
		return string(b), utf8.Valid(b)
	case "us-ascii":
		for _, c := range b {
			if c >= utf8.RuneSelf {
				return "", false
			}
		}
		return string(b), true
	}

	decoded, err := enc.NewDecoder().Bytes(b)
	if err != nil || bytes.Contains(decoded, replacementChar) {
		return "", false
	}

	return string(decoded), true
}

// textDecoder turns the raw bytes of field values and names into strings.
type textDecoder struct {
	charset  string
	fallback string
	errors   form.ErrorsPolicy
}

func newTextDecoder(opts form.Options) *textDecoder {
	d := &textDecoder{charset: opts.Charset, fallback: opts.FallbackCharset, errors: opts.Errors}
	if _, _, ok := lookupEncoding(d.charset); !ok || d.charset == "" {
		d.charset = defaultCharset
	}

	return d
}

// decode decodes b using label, or the request charset if label is empty or unknown.
// If that fails, the fallback charset is tried, and then the errors policy decides.
func (d *textDecoder) decode(b []byte, label string) (string, error) {
	if _, _, ok := lookupEncoding(label); !ok || label == "" {
		label = d.charset
	}

	if s, ok := decodeCharset(b, label); ok {
		return s, nil
	}

	if d.fallback != "" {
		if s, ok := decodeCharset(b, d.fallback); ok {
			return s, nil
		}
	}

	switch d.errors {
	case form.ErrorsStrict:
		return "", fmt.Errorf("%w: value is not valid %s", form.ErrDecode, label)
	case form.ErrorsIgnore:
		return strings.ReplaceAll(d.lossy(b, label), string(utf8.RuneError), ""), nil
	}

	return d.lossy(b, label), nil
}

// lossy decodes b, putting U+FFFD where b is not valid in the charset.
func (d *textDecoder) lossy(b []byte, label string) string {
	enc, name, _ := lookupEncoding(label)
	if name == "us-ascii" {
		var sb strings.Builder
		for _, c := range b {
			if c >= utf8.RuneSelf {
				sb.WriteRune(utf8.RuneError)
			} else {
				sb.WriteByte(c)
			}
		}
		return sb.String()
	}

	decoded, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), string(utf8.RuneError))
	}

	return string(decoded)
}
