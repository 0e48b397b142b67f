package bodyparsing

import (
	"fmt"
	"io"

	"formparse/form"
)

// maxLengthReaderDecorator is an io.Reader decorator, which enforces Limits.MaxContentLength on the bytes read through it.
type maxLengthReaderDecorator struct {
	Limits         form.Limits
	ReadCountTotal int64
	LastErr        error
	reader         io.Reader
}

func newMaxLengthReaderDecorator(reader io.Reader, limits form.Limits) *maxLengthReaderDecorator {
	return &maxLengthReaderDecorator{reader: reader, Limits: limits}
}

// Read behaves like io.Reader.Read, but returns an error wrapping form.ErrSizeLimitExceeded on the call where the limit is crossed.
// Bytes beyond the limit are never handed out.
func (m *maxLengthReaderDecorator) Read(p []byte) (n int, err error) {
	defer func() {
		if err != nil {
			m.LastErr = err
		}
	}()

	max := m.Limits.MaxContentLength
	if max <= 0 {
		n, err = m.reader.Read(p)
		m.ReadCountTotal += int64(n)
		return
	}

	if m.ReadCountTotal > max {
		err = contentLengthExceeded(max)
		return
	}

	// Ask for one byte more than allowed, so a body that is exactly at the limit is not mistaken for an oversized one.
	if rem := max - m.ReadCountTotal + 1; int64(len(p)) > rem {
		p = p[:rem]
	}

	n, err = m.reader.Read(p)
	m.ReadCountTotal += int64(n)
	if m.ReadCountTotal > max {
		n -= int(m.ReadCountTotal - max)
		err = contentLengthExceeded(max)
	}

	return
}

// memoryBudget tracks how many bytes of field values one parse holds in memory.
type memoryBudget struct {
	limit int64
	used  int64
}

func newMemoryBudget(limits form.Limits) *memoryBudget {
	return &memoryBudget{limit: limits.MaxFormMemorySize}
}

// reserve accounts for n more bytes and fails once the total is above the limit.
func (b *memoryBudget) reserve(n int) error {
	b.used += int64(n)
	if b.limit > 0 && b.used > b.limit {
		return fmt.Errorf("%w: form values need more than %d bytes of memory", form.ErrSizeLimitExceeded, b.limit)
	}

	return nil
}

func contentLengthExceeded(max int64) error {
	return fmt.Errorf("%w: body is longer than %d bytes", form.ErrSizeLimitExceeded, max)
}

// remaining returns how many more bytes fit in the budget, or -1 if it is unlimited.
func (b *memoryBudget) remaining() int64 {
	if b.limit <= 0 {
		return -1
	}

	if b.used >= b.limit {
		return 0
	}

	return b.limit - b.used
}
