package bodyparsing

import (
	"bytes"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"formparse/encoding"
	"formparse/form"
)

const urlDecoderReadSize = 1000

type urldecoderState int

const (
	_ urldecoderState = iota
	lookingForEq
	foundEq
	endOfStream
)

// URLDecoder reads key/value pairs from an application/x-www-form-urlencoded stream, one pair per call to Next.
// Only the pair being scanned is buffered, so values of any length can be streamed as long as the memory budget allows them.
type URLDecoder struct {
	r            io.Reader
	buf          bytes.Buffer
	state        urldecoderState
	scannedUntil int
	eqPos        int

	separator  byte
	decodeKeys bool
	budget     *memoryBudget
	text       *textDecoder

	// Number of pairs that contained percent signs not followed by two hex digits.
	InvalidEscapes int
}

// NewURLDecoder creates a URLDecoder reading from r. Only the separator, charset, key decoding and memory limit options apply.
func NewURLDecoder(r io.Reader, opts form.Options) *URLDecoder {
	opts = withDefaults(opts)
	return &URLDecoder{
		r:          r,
		state:      lookingForEq,
		separator:  opts.Separator,
		decodeKeys: opts.DecodeKeys,
		budget:     newMemoryBudget(opts.Limits),
		text:       newTextDecoder(opts),
	}
}

// Next returns the next pair with "+" and percent escapes decoded. Empty tokens like the one in "a=1&&b=2" are skipped.
// A pair without "=" is a key with an empty value. io.EOF is returned after the last pair.
func (d *URLDecoder) Next() (key string, val string, err error) {
	for {
		var rawKey, rawVal []byte
		rawKey, rawVal, err = d.nextRaw()
		if err != nil {
			return
		}

		// rawVal is nil only for pairs without "=", so "=" alone still yields an empty key and value.
		if len(rawKey) == 0 && rawVal == nil {
			continue
		}

		return d.decodePair(rawKey, rawVal)
	}
}

func (d *URLDecoder) decodePair(rawKey, rawVal []byte) (key string, val string, err error) {
	if !encoding.IsValidURLEncoding(string(rawKey)) || !encoding.IsValidURLEncoding(string(rawVal)) {
		d.InvalidEscapes++
	}

	k := encoding.WeakURLUnescape(string(rawKey))
	v := encoding.WeakURLUnescape(string(rawVal))

	if err = d.budget.reserve(len(k) + len(v)); err != nil {
		return
	}

	key = k
	if d.decodeKeys {
		if key, err = d.text.decode([]byte(k), ""); err != nil {
			err = fmt.Errorf("key %q: %w", k, err)
			return
		}
	}

	if val, err = d.text.decode([]byte(v), ""); err != nil {
		err = fmt.Errorf("value of %q: %w", key, err)
	}

	return
}

// nextRaw returns the next pair as it appears in the stream, split at the first "=".
func (d *URLDecoder) nextRaw() (key []byte, val []byte, err error) {
	if d.state == endOfStream {
		err = io.EOF
		return
	}

	for {
		bb := d.buf.Bytes()

		for i := d.scannedUntil; i < len(bb); i++ {
			c := bb[i]
			if c == d.separator {
				key, val = d.split(bb[:i])

				// Consume number of bytes equivalent to this key-val pair from the buffer.
				d.buf.Next(i + 1)

				d.state = lookingForEq
				d.scannedUntil = 0
				d.eqPos = 0
				return
			}

			if c == '=' && d.state == lookingForEq {
				d.eqPos = i
				d.state = foundEq
			}
		}

		d.scannedUntil = len(bb)

		if err = d.checkPendingSize(len(bb)); err != nil {
			return
		}

		// We didn't find a key-val pair in the currently buffered bytes yet, so read some more into our buffer.
		var n int64
		n, err = d.buf.ReadFrom(io.LimitReader(d.r, urlDecoderReadSize))
		if err != nil {
			return
		}

		// Was this the end of the stream?
		if n == 0 {
			bb = d.buf.Bytes()
			key, val = d.split(bb)

			// The returned slices alias the buffer, which is never written to again.
			d.buf.Next(len(bb))
			d.state = endOfStream
			return
		}
	}
}

func (d *URLDecoder) split(pair []byte) (key []byte, val []byte) {
	if d.state == foundEq {
		return pair[:d.eqPos], pair[d.eqPos+1:]
	}

	return pair, nil
}

// checkPendingSize fails early if the pair being buffered cannot fit in the memory budget.
// A percent escape shrinks three bytes into one, so anything beyond three times the remaining budget is too much.
func (d *URLDecoder) checkPendingSize(pending int) error {
	rem := d.budget.remaining()
	if rem < 0 || int64(pending) <= 3*rem {
		return nil
	}

	return fmt.Errorf("%w: form values need more than %d bytes of memory", form.ErrSizeLimitExceeded, d.budget.limit)
}

// ParseURLEncoded reads a whole application/x-www-form-urlencoded body into a Result.
func ParseURLEncoded(logger zerolog.Logger, body io.Reader, opts form.Options) (res *form.Result, err error) {
	opts = withDefaults(opts)
	counter := newMaxLengthReaderDecorator(body, opts.Limits)
	d := NewURLDecoder(counter, opts)

	res = form.NewEmptyResult(counter)
	for {
		var k, v string
		k, v, err = d.Next()
		if err == io.EOF {
			err = nil
			break
		}

		if err != nil {
			res = nil
			return
		}

		res.Fields.Add(k, v)
	}

	if d.InvalidEscapes > 0 {
		w := fmt.Sprintf("%d pairs contain percent signs that are not valid escapes", d.InvalidEscapes)
		res.Warnings = append(res.Warnings, w)
		logger.Debug().Int("pairs", d.InvalidEscapes).Msg("Invalid percent escapes in urlencoded body")
	}

	logger.Debug().Int("fields", res.Fields.Len()).Int64("bytes", counter.ReadCountTotal).Msg("Urlencoded body parsed")
	return
}
