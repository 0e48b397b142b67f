package encoding

import (
	"bufio"
	"bytes"
	"io"
	"iter"
	"net/url"
	"sort"
	"strings"
)

// IsValidURLEncoding checks whether the given string contains all valid URL-encoded escapes.
func IsValidURLEncoding(content string) bool {
	for i := 0; i < len(content); i++ {
		if content[i] != '%' {
			continue
		}

		if i+2 >= len(content) || !isHexChar(content[i+1]) || !isHexChar(content[i+2]) {
			return false
		}

		i += 2
	}

	return true
}

// WeakURLUnescape decodes "+" and percent escapes. Escapes that are not followed by two hex digits are left as is, instead of failing the whole value.
func WeakURLUnescape(s string) string {
	if !strings.ContainsAny(s, "%+") {
		return s
	}

	var buf bytes.Buffer
	buf.Grow(len(s)) // The unescaped version is never longer than the escaped one.

	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '+':
			buf.WriteByte(' ')
		case c == '%' && i+2 < len(s) && isHexChar(s[i+1]) && isHexChar(s[i+2]):
			buf.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
		default:
			buf.WriteByte(c)
		}
	}

	return buf.String()
}

// EncodeOptions controls URLEncode.
type EncodeOptions struct {
	Separator byte                   // Written between pairs. Defaults to '&'.
	Sort      bool                   // Order pairs by key. Pairs with the same key keep their relative order.
	Less      func(a, b string) bool // Key order used when sorting. Defaults to byte-wise comparison. Setting it implies Sort.
}

// URLEncode writes pairs to w as an application/x-www-form-urlencoded string.
// Without opts.Sort the pairs are written in the order the sequence yields them, so repeated keys stay interleaved the way they were added.
func URLEncode(w io.Writer, pairs iter.Seq2[string, string], opts EncodeOptions) error {
	sep := opts.Separator
	if sep == 0 {
		sep = '&'
	}

	if opts.Sort || opts.Less != nil {
		pairs = sortedPairs(pairs, opts.Less)
	}

	bw := bufio.NewWriter(w)
	first := true
	for k, v := range pairs {
		if !first {
			bw.WriteByte(sep)
		}
		first = false

		bw.WriteString(url.QueryEscape(k))
		bw.WriteByte('=')
		bw.WriteString(url.QueryEscape(v))
	}

	return bw.Flush()
}

// URLEncodeString is URLEncode into a string.
func URLEncodeString(pairs iter.Seq2[string, string], opts EncodeOptions) string {
	var sb strings.Builder
	URLEncode(&sb, pairs, opts)
	return sb.String()
}

func sortedPairs(pairs iter.Seq2[string, string], less func(a, b string) bool) iter.Seq2[string, string] {
	if less == nil {
		less = func(a, b string) bool { return a < b }
	}

	type pair struct{ k, v string }
	var all []pair
	for k, v := range pairs {
		all = append(all, pair{k, v})
	}

	sort.SliceStable(all, func(i, j int) bool { return less(all[i].k, all[j].k) })

	return func(yield func(string, string) bool) {
		for _, p := range all {
			if !yield(p.k, p.v) {
				return
			}
		}
	}
}

func isHexChar(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// Copied from Go's standard library net/url/url.go.
func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10
	}
	return 0
}
