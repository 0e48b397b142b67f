package bodyparsing

import (
	"errors"
	"fmt"
	"io"
	"os"

	"formparse/form"
)

// DefaultSpoolThreshold is how large an upload may grow in memory before it is moved to a temporary file.
const DefaultSpoolThreshold = 500 * 1024

var errNegativeOffset = errors.New("seek to a negative offset")

// NewSpooledStreamFactory returns a form.StreamFactory that keeps uploads in memory until they grow beyond threshold bytes, and moves them to a temporary file in dir after that.
// Uploads in requests that declare more than threshold bytes go straight to disk. An empty dir means os.TempDir.
func NewSpooledStreamFactory(threshold int64, dir string) form.StreamFactory {
	return form.StreamFactoryFunc(func(fieldName, contentType, filename string, contentLength int64) (form.Spool, error) {
		s := &spooledFile{threshold: threshold, dir: dir}
		if threshold >= 0 && contentLength > threshold {
			if err := s.rollover(); err != nil {
				return nil, err
			}
		}
		return s, nil
	})
}

// NewMemoryStreamFactory returns a form.StreamFactory that never touches the disk.
func NewMemoryStreamFactory() form.StreamFactory {
	return form.StreamFactoryFunc(func(fieldName, contentType, filename string, contentLength int64) (form.Spool, error) {
		return &memFile{}, nil
	})
}

type spooledFile struct {
	threshold int64
	dir       string
	mem       memFile
	file      *os.File
	closed    bool
}

func (s *spooledFile) Read(p []byte) (int, error) {
	if s.file != nil {
		return s.file.Read(p)
	}

	return s.mem.Read(p)
}

func (s *spooledFile) Write(p []byte) (int, error) {
	if s.closed {
		return 0, os.ErrClosed
	}

	if s.file == nil && s.threshold >= 0 && int64(len(s.mem.buf)+len(p)) > s.threshold {
		if err := s.rollover(); err != nil {
			return 0, err
		}
	}

	if s.file != nil {
		return s.file.Write(p)
	}

	return s.mem.Write(p)
}

func (s *spooledFile) Seek(offset int64, whence int) (int64, error) {
	if s.file != nil {
		return s.file.Seek(offset, whence)
	}

	return s.mem.Seek(offset, whence)
}

// Close releases the memory and removes the temporary file, if any.
func (s *spooledFile) Close() (err error) {
	if s.closed {
		return
	}
	s.closed = true
	s.mem = memFile{}

	if s.file != nil {
		err = s.file.Close()
		if rmErr := os.Remove(s.file.Name()); rmErr != nil && err == nil {
			err = rmErr
		}
	}

	return
}

// onDisk reports whether the upload was moved to a temporary file.
func (s *spooledFile) onDisk() bool {
	return s.file != nil
}

// rollover moves what was buffered so far into a new temporary file, keeping the current offset.
func (s *spooledFile) rollover() error {
	f, err := os.CreateTemp(s.dir, "formparse-upload-*")
	if err != nil {
		return fmt.Errorf("creating temporary file for upload: %w", err)
	}

	if _, err = f.Write(s.mem.buf); err == nil {
		_, err = f.Seek(s.mem.off, io.SeekStart)
	}

	if err != nil {
		f.Close()
		os.Remove(f.Name())
		return fmt.Errorf("spooling upload to %s: %w", f.Name(), err)
	}

	s.file = f
	s.mem = memFile{}
	return nil
}

// memFile is an in-memory, seekable read/write buffer.
type memFile struct {
	buf []byte
	off int64
}

func (m *memFile) Read(p []byte) (n int, err error) {
	if m.off >= int64(len(m.buf)) {
		return 0, io.EOF
	}

	n = copy(p, m.buf[m.off:])
	m.off += int64(n)
	return
}

func (m *memFile) Write(p []byte) (n int, err error) {
	end := m.off + int64(len(p))
	if end > int64(len(m.buf)) {
		if end > int64(cap(m.buf)) {
			grown := make([]byte, end, max(end, 2*int64(cap(m.buf))))
			copy(grown, m.buf)
			m.buf = grown
		} else {
			m.buf = m.buf[:end]
		}
	}

	n = copy(m.buf[m.off:], p)
	m.off = end
	return
}

func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekCurrent:
		offset += m.off
	case io.SeekEnd:
		offset += int64(len(m.buf))
	}

	if offset < 0 {
		return 0, errNegativeOffset
	}

	m.off = offset
	return offset, nil
}

func (m *memFile) Close() error {
	m.buf = nil
	m.off = 0
	return nil
}
