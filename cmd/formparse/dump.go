package main

import (
	"fmt"
	"io"
	"os"

	json "github.com/json-iterator/go"
	"github.com/rs/zerolog"

	"formparse/bodyparsing"
	"formparse/config"
	"formparse/form"
)

// DumpCLI parses a single body outside of any server.
type DumpCLI struct {
	ContentType string `short:"t" required:"" help:"Content-Type header of the body, including the boundary for multipart bodies."`
	Method      string `default:"POST" help:"Request method."`
	File        string `arg:"" optional:"" type:"existingfile" help:"File holding the body. Stdin is read when omitted."`
}

type dumpRequest struct {
	method        string
	contentType   string
	contentLength int64
	body          io.Reader
}

func (r *dumpRequest) Method() string        { return r.method }
func (r *dumpRequest) ContentType() string   { return r.contentType }
func (r *dumpRequest) ContentLength() int64  { return r.contentLength }
func (r *dumpRequest) BodyReader() io.Reader { return r.body }

type dumpFile struct {
	Filename    string            `json:"filename"`
	ContentType string            `json:"contentType,omitempty"`
	Headers     map[string]string `json:"headers"`
	Size        int64             `json:"size"`
}

type dumpOutput struct {
	Fields         [][2]string           `json:"fields"`
	Files          map[string][]dumpFile `json:"files"`
	Warnings       []string              `json:"warnings,omitempty"`
	RemainingBytes int64                 `json:"remainingBytes"`
}

func (d *DumpCLI) Run(logger zerolog.Logger, cfg *config.Main) error {
	req := &dumpRequest{method: d.Method, contentType: d.ContentType, contentLength: form.UnknownLength, body: os.Stdin}
	if d.File != "" {
		f, err := os.Open(d.File)
		if err != nil {
			return err
		}
		defer f.Close()

		fi, err := f.Stat()
		if err != nil {
			return err
		}
		req.body, req.contentLength = f, fi.Size()
	}

	out, err := dump(logger, bodyparsing.NewFormDataParser(cfg.ParserOptions()), req)
	if err != nil {
		return err
	}

	bb, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(os.Stdout, "%s\n", bb)
	return err
}

func dump(logger zerolog.Logger, parser form.Parser, req form.Request) (*dumpOutput, error) {
	res, err := parser.Parse(logger, req)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	out := &dumpOutput{Fields: [][2]string{}, Files: map[string][]dumpFile{}, Warnings: res.Warnings}
	for k, v := range res.Fields.All() {
		out.Fields = append(out.Fields, [2]string{k, v})
	}

	for k, f := range res.Files.All() {
		headers := map[string]string{}
		for _, h := range f.Headers {
			if _, ok := headers[h.Key]; !ok {
				headers[h.Key] = h.Value
			}
		}
		out.Files[k] = append(out.Files[k], dumpFile{Filename: f.Filename, ContentType: f.ContentType, Headers: headers, Size: f.Size})
	}

	if out.RemainingBytes, err = io.Copy(io.Discard, res.Stream); err != nil {
		return nil, err
	}

	return out, nil
}
