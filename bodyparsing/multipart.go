package bodyparsing

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"formparse/form"
)

type multipartState int

const (
	inPreamble multipartState = iota
	inPartHeaders
	inPartBody
	multipartDone
	multipartFailed
)

// multipartParser is the state machine that walks a multipart/form-data body part by part.
type multipartParser struct {
	logger        zerolog.Logger
	opts          form.Options
	contentLength int64

	counter  *maxLengthReaderDecorator
	strict   *multipartStrictReaderDecorator
	lines    *lineReader
	scanner  *boundaryScanner
	budget   *memoryBudget
	text     *textDecoder
	state    multipartState
	partNum  int
	part     partInfo
	skipPart bool
	res      *form.Result
	err      error
}

// ParseMultipart parses a multipart/form-data body delimited by boundary. contentLength is the declared body length, or form.UnknownLength.
// On error every file stream created so far is closed and no result is returned.
func ParseMultipart(logger zerolog.Logger, body io.Reader, boundary string, contentLength int64, opts form.Options) (*form.Result, error) {
	opts = withDefaults(opts)

	scanner, err := newBoundaryScanner(boundary)
	if err != nil {
		return nil, err
	}

	p := &multipartParser{
		logger:        logger,
		opts:          opts,
		contentLength: contentLength,
		counter:       newMaxLengthReaderDecorator(body, opts.Limits),
		scanner:       scanner,
		budget:        newMemoryBudget(opts.Limits),
		text:          newTextDecoder(opts),
		res:           form.NewEmptyResult(nil),
	}
	p.strict = newMultipartStrictReaderDecorator(p.counter, boundary)
	p.lines = newLineReader(p.strict, opts.BufferSize)

	return p.run()
}

func (p *multipartParser) run() (*form.Result, error) {
	for {
		switch p.state {
		case inPreamble:
			p.state = p.preamble()
		case inPartHeaders:
			p.state = p.partHeaders()
		case inPartBody:
			p.state = p.partBody()
		case multipartDone:
			p.finish()
			return p.res, nil
		case multipartFailed:
			p.res.Close()
			return nil, p.err
		}
	}
}

// preamble skips everything in front of the first delimiter.
func (p *multipartParser) preamble() multipartState {
	for {
		c, err := p.lines.next()
		if err == io.EOF {
			if p.counter.ReadCountTotal == 0 {
				return multipartDone
			}
			return p.fail(fmt.Errorf("%w: no boundary found", form.ErrTruncatedBody))
		}

		if err != nil {
			return p.fail(err)
		}

		switch p.scanner.classify(c) {
		case nextPartLine:
			return inPartHeaders
		case lastPartLine:
			return multipartDone
		}
	}
}

func (p *multipartParser) partHeaders() multipartState {
	p.partNum++
	p.part = partInfo{}
	p.skipPart = false

	var hp headerBlockParser
	for {
		c, err := p.lines.next()
		if err == io.EOF {
			return p.fail(fmt.Errorf("%w: stream ended inside the headers of part %d", form.ErrTruncatedBody, p.partNum))
		}

		if err != nil {
			return p.fail(err)
		}

		if kind := p.scanner.classify(c); kind != bodyLine {
			return p.partEndedInHeaders(kind)
		}

		done, err := hp.feed(c)
		if err != nil {
			return p.skipOrFail(err)
		}

		if done {
			break
		}
	}

	info, err := describePart(hp.headers)
	if err != nil {
		return p.skipOrFail(err)
	}

	if !info.hasName {
		p.warn("part %d was dropped: its Content-Disposition has no name", p.partNum)
		p.skipPart = true
		return inPartBody
	}

	p.part = info
	return inPartBody
}

// skipOrFail handles a part whose headers could not be used.
func (p *multipartParser) skipOrFail(err error) multipartState {
	skippable := errors.Is(err, form.ErrMalformedHeaderBlock) || errors.Is(err, form.ErrUnsupportedTransferEncoding)
	if !p.opts.SkipMalformedParts || !skippable {
		return p.fail(fmt.Errorf("part %d: %w", p.partNum, err))
	}

	p.warn("part %d was dropped: %s", p.partNum, err)
	p.skipPart = true
	return inPartBody
}

// partEndedInHeaders handles a delimiter that shows up before the blank line that ends the headers of a part.
func (p *multipartParser) partEndedInHeaders(kind lineKind) multipartState {
	err := fmt.Errorf("%w: delimiter before the end of the headers", form.ErrMalformedHeaderBlock)
	if p.skipOrFail(err) == multipartFailed {
		return multipartFailed
	}

	if kind == lastPartLine {
		return multipartDone
	}

	return inPartHeaders
}

func (p *multipartParser) partBody() multipartState {
	body := newPartReader(p.lines, p.scanner)

	var err error
	switch {
	case p.skipPart:
		_, err = io.Copy(io.Discard, body)
	case p.part.kind == filePart:
		err = p.readFile(body)
	default:
		err = p.readField(body)
	}

	if err != nil {
		return p.fail(err)
	}

	if body.end == lastPartLine {
		return multipartDone
	}

	return inPartHeaders
}

func (p *multipartParser) readField(body *partReader) error {
	acc := &fieldAccumulator{budget: p.budget}
	if err := acc.budget.reserve(len(p.part.name)); err != nil {
		return err
	}

	if _, err := io.Copy(acc, newTransferDecoder(p.part.encoding, body)); err != nil {
		return fmt.Errorf("field %q: %w", p.part.name, err)
	}

	value, err := p.text.decode(acc.buf.Bytes(), p.part.charset)
	if err != nil {
		return fmt.Errorf("field %q: %w", p.part.name, err)
	}

	p.res.Fields.Add(p.part.name, value)
	return nil
}

func (p *multipartParser) readFile(body *partReader) error {
	stream, err := p.opts.StreamFactory.NewStream(p.part.name, p.part.contentType, p.part.filename, p.contentLength)
	if err != nil {
		return fmt.Errorf("creating stream for file %q: %w", p.part.filename, err)
	}

	size, err := io.Copy(stream, newTransferDecoder(p.part.encoding, body))
	if err == nil {
		_, err = stream.Seek(0, io.SeekStart)
	}

	if err != nil {
		stream.Close()
		return fmt.Errorf("file %q: %w", p.part.filename, err)
	}

	p.res.Files.Add(p.part.name, &form.FileEntry{
		FieldName:         p.part.name,
		Filename:          p.part.filename,
		ContentType:       p.part.contentType,
		MediaType:         p.part.mediaType,
		ContentTypeParams: p.part.params,
		Headers:           p.part.headers,
		Size:              size,
		Stream:            stream,
	})

	p.logger.Debug().Str("field", p.part.name).Str("filename", p.part.filename).Int64("size", size).Msg("Multipart file received")
	return nil
}

func (p *multipartParser) fail(err error) multipartState {
	p.err = err
	return multipartFailed
}

func (p *multipartParser) warn(format string, args ...interface{}) {
	w := fmt.Sprintf(format, args...)
	p.res.Warnings = append(p.res.Warnings, w)
	p.logger.Warn().Str("warning", w).Msg("Multipart body irregularity")
}

// finish records the RFC deviations seen and hands the unread rest of the body back to the caller.
func (p *multipartParser) finish() {
	if p.partNum > 0 {
		for _, w := range p.strict.warnings() {
			p.res.Warnings = append(p.res.Warnings, w)
			p.logger.Debug().Str("anomaly", w).Msg("Multipart body deviates from RFC 2046")
		}
	}

	p.res.Stream = io.MultiReader(bytes.NewReader(p.lines.buffered()), p.counter)
}
