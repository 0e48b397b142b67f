package bodyparsing

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"formparse/form"
)

const maxHeaderBlockSize = 64 * 1024

// headerBlockParser builds the headers of one multipart part from its header lines, up to the blank line that ends them.
type headerBlockParser struct {
	headers form.Headers
	line    []byte
	size    int
}

// feed adds the next line chunk. done is true once the blank line ending the block was fed.
func (p *headerBlockParser) feed(c lineChunk) (done bool, err error) {
	p.size += len(c.data) + len(c.terminator)
	if p.size > maxHeaderBlockSize {
		err = fmt.Errorf("%w: header block is larger than %d bytes", form.ErrMalformedHeaderBlock, maxHeaderBlockSize)
		return
	}

	// An unterminated line is either continued by the next chunk or cut off by the end of the stream, which the caller sees next.
	p.line = append(p.line, c.data...)
	if c.terminator == nil {
		return
	}

	line := p.line
	p.line = p.line[:0]

	if len(line) == 0 {
		done = true
		return
	}

	if line[0] == ' ' || line[0] == '\t' {
		if len(p.headers) == 0 {
			err = fmt.Errorf("%w: continuation line before any header", form.ErrMalformedHeaderBlock)
			return
		}

		last := &p.headers[len(p.headers)-1]
		last.Value += "\n" + string(line)
		return
	}

	i := bytes.IndexByte(line, ':')
	if i < 0 {
		err = fmt.Errorf("%w: header line without a colon: %q", form.ErrMalformedHeaderBlock, truncateForError(line))
		return
	}

	key := strings.TrimSpace(string(line[:i]))
	if key == "" {
		err = fmt.Errorf("%w: header line with an empty name", form.ErrMalformedHeaderBlock)
		return
	}

	p.headers = append(p.headers, form.Header{Key: key, Value: strings.TrimSpace(string(line[i+1:]))})
	return
}

// ParseHeaderLines parses raw header lines, each still carrying its line terminator. Parsing stops at the first blank line.
// A line without a terminator is an error, as it means the block was cut off.
func ParseHeaderLines(lines [][]byte) (form.Headers, error) {
	var p headerBlockParser
	for _, raw := range lines {
		data, term := splitLine(raw)
		if term == nil || len(data)+len(term) != len(raw) {
			return nil, fmt.Errorf("%w: unexpected end of line in header block", form.ErrMalformedHeaderBlock)
		}

		done, err := p.feed(lineChunk{data: data, terminator: term})
		if err != nil {
			return nil, err
		}

		if done {
			break
		}
	}

	return p.headers, nil
}

// parseOptionsHeader splits a header value like `form-data; name="a"; filename="b.txt"` into its lower-cased first token and its parameters.
// Parameter names are lower-cased. RFC 2231 extended parameters such as filename* win over plain ones.
func parseOptionsHeader(value string) (string, map[string]string) {
	params := make(map[string]string)
	extended := make(map[string]bool)

	main, rest, _ := strings.Cut(value, ";")
	main = strings.ToLower(strings.TrimSpace(main))

	for {
		rest = strings.TrimLeft(rest, " \t;")
		if rest == "" {
			break
		}

		end := strings.IndexAny(rest, "=;")
		if end < 0 || rest[end] == ';' {
			// A parameter without a value.
			if end < 0 {
				end = len(rest)
			}
			if key := strings.ToLower(strings.TrimSpace(rest[:end])); key != "" {
				if _, ok := params[key]; !ok {
					params[key] = ""
				}
			}
			rest = rest[end:]
			continue
		}

		key := strings.ToLower(strings.TrimSpace(rest[:end]))
		rest = strings.TrimLeft(rest[end+1:], " \t")

		var val string
		if strings.HasPrefix(rest, `"`) {
			val, rest = readQuotedString(rest[1:], key == "filename")
		} else {
			semi := strings.IndexByte(rest, ';')
			if semi < 0 {
				semi = len(rest)
			}
			val, rest = strings.TrimSpace(rest[:semi]), rest[semi:]
		}

		if base, ok := strings.CutSuffix(key, "*"); ok {
			if decoded, ok := decodeExtendedParam(val); ok {
				params[base] = decoded
				extended[base] = true
			}
			continue
		}

		if !extended[key] {
			params[key] = val
		}
	}

	return main, params
}

// readQuotedString reads a quoted string whose opening quote was already consumed.
// Backslash escapes of quotes and backslashes are undone, except in UNC file names (`\\server\share`) sent unescaped by old browsers.
func readQuotedString(s string, isFilename bool) (val, rest string) {
	if isFilename && strings.HasPrefix(s, `\\`) {
		end := strings.IndexByte(s, '"')
		if end < 0 {
			return s, ""
		}
		return s[:end], s[end+1:]
	}

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			return b.String(), s[i+1:]
		case c == '\\' && i+1 < len(s) && (s[i+1] == '"' || s[i+1] == '\\'):
			b.WriteByte(s[i+1])
			i++
		default:
			b.WriteByte(c)
		}
	}

	return b.String(), ""
}

// decodeExtendedParam decodes an RFC 2231 value such as `UTF-8'en'na%C3%AFve.txt`.
func decodeExtendedParam(v string) (string, bool) {
	parts := strings.SplitN(v, "'", 3)
	if len(parts) != 3 {
		return "", false
	}

	raw, err := url.PathUnescape(parts[2])
	if err != nil {
		return "", false
	}

	charsetLabel := parts[0]
	if charsetLabel == "" {
		charsetLabel = "us-ascii"
	}

	return decodeCharset([]byte(raw), charsetLabel)
}

// fixIEFilename strips the directory from full client paths like `C:\Documents\file.doc` or `\\server\share\file.doc`.
func fixIEFilename(filename string) string {
	if (len(filename) > 2 && filename[1:3] == `:\`) || strings.HasPrefix(filename, `\\`) {
		return filename[strings.LastIndexByte(filename, '\\')+1:]
	}

	return filename
}

func truncateForError(b []byte) []byte {
	if len(b) > 64 {
		return b[:64]
	}

	return b
}
