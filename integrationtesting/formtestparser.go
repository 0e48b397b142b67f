package integrationtesting

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	yaml "gopkg.in/yaml.v3"

	"formparse/form"
)

// TestCase for form body parsing regression tests
type TestCase struct {
	TestTitle string
	File      string
	Options   form.Options
	Request   *TestRequest
	Expected  Expectation
}

// TestRequest is a form.Request built from the input section of a test.
type TestRequest struct {
	method        string
	contentType   string
	contentLength int64
	body          string
}

func (r *TestRequest) Method() string        { return r.method }
func (r *TestRequest) ContentType() string   { return r.contentType }
func (r *TestRequest) ContentLength() int64  { return r.contentLength }
func (r *TestRequest) BodyReader() io.Reader { return strings.NewReader(r.body) }

// Expectation is what parsing the request must produce.
type Expectation struct {
	Err        error // One of the form error sentinels, or nil when parsing must succeed.
	Fields     map[string][]string
	FieldOrder []string
	Files      map[string][]ExpectedFile
	Warnings   []string // Substrings, each must be found in one of the result's warnings.
	Stream     *string
}

// ExpectedFile describes one uploaded file.
type ExpectedFile struct {
	Filename    string `yaml:"filename"`
	ContentType string `yaml:"content_type"`
	Content     string `yaml:"content"`
}

// YAML parsing requires exporting of struct fields
type input struct {
	Method        string      `yaml:"method"`
	ContentType   string      `yaml:"content_type"`
	ContentLength *int64      `yaml:"content_length"`
	LineEnding    *string     `yaml:"line_ending"`
	Data          interface{} `yaml:"data"`
}

type options struct {
	MaxContentLength   int64  `yaml:"max_content_length"`
	MaxFormMemorySize  int64  `yaml:"max_form_memory_size"`
	Charset            string `yaml:"charset"`
	FallbackCharset    string `yaml:"fallback_charset"`
	Errors             string `yaml:"errors"`
	Silent             bool   `yaml:"silent"`
	SkipMalformedParts bool   `yaml:"skip_malformed_parts"`
	Separator          string `yaml:"separator"`
	DecodeKeys         bool   `yaml:"decode_keys"`
	BufferSize         int    `yaml:"buffer_size"`
}

type output struct {
	Error      string                    `yaml:"error"`
	Fields     map[string][]string       `yaml:"fields"`
	FieldOrder []string                  `yaml:"field_order"`
	Files      map[string][]ExpectedFile `yaml:"files"`
	Warnings   []string                  `yaml:"warnings"`
	Stream     *string                   `yaml:"stream"`
}

type test struct {
	TestTitle string  `yaml:"test_title"`
	Options   options `yaml:"options"`
	Input     input   `yaml:"input"`
	Output    output  `yaml:"output"`
}

type testFile struct {
	Meta  map[string]string `yaml:"meta"`
	Tests []test            `yaml:"tests"`
}

var errorNames = map[string]error{
	"size_limit_exceeded":           form.ErrSizeLimitExceeded,
	"malformed_boundary":            form.ErrMalformedBoundary,
	"malformed_header_block":        form.ErrMalformedHeaderBlock,
	"unsupported_transfer_encoding": form.ErrUnsupportedTransferEncoding,
	"decode":                        form.ErrDecode,
	"truncated_body":                form.ErrTruncatedBody,
}

// GetTests returns parsed tests from all YAML test files under testRootDir
func GetTests(testRootDir string) (tests []TestCase, err error) {
	var files []string
	err = filepath.WalkDir(testRootDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".yaml") {
			files = append(files, path)
		}
		return nil
	})

	if err != nil {
		return
	}

	if len(files) == 0 {
		err = fmt.Errorf("no test files found under %v folder", testRootDir)
		return
	}

	sort.Strings(files)

	for _, file := range files {
		var tf testFile
		if tf, err = parseTestFile(file); err != nil {
			return
		}

		var tt []TestCase
		if tt, err = toTestCases(file, tf); err != nil {
			return
		}
		tests = append(tests, tt...)
	}

	return
}

func parseTestFile(path string) (tf testFile, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return
	}

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err = dec.Decode(&tf); err != nil {
		err = fmt.Errorf("test file %v: %w", path, err)
	}

	return
}

func toTestCases(path string, file testFile) (testCases []TestCase, err error) {
	for _, t := range file.Tests {
		tc := TestCase{TestTitle: t.TestTitle, File: filepath.Base(path)}

		if tc.Options, err = toOptions(t.Options); err != nil {
			err = fmt.Errorf("%v, test %q: %w", path, t.TestTitle, err)
			return
		}

		lineEnding := "\r\n"
		if t.Input.LineEnding != nil {
			lineEnding = *t.Input.LineEnding
		}

		body := getBody(t.Input.Data, lineEnding)
		method := t.Input.Method
		if method == "" {
			method = "POST"
		}

		contentLength := int64(len(body))
		if t.Input.ContentLength != nil {
			contentLength = *t.Input.ContentLength
		}

		tc.Request = &TestRequest{method: method, contentType: t.Input.ContentType, contentLength: contentLength, body: body}

		if t.Output.Error != "" {
			var ok bool
			if tc.Expected.Err, ok = errorNames[t.Output.Error]; !ok {
				err = fmt.Errorf("%v, test %q: unknown error name %q", path, t.TestTitle, t.Output.Error)
				return
			}
		}

		tc.Expected.Fields = t.Output.Fields
		tc.Expected.FieldOrder = t.Output.FieldOrder
		tc.Expected.Files = t.Output.Files
		tc.Expected.Warnings = t.Output.Warnings
		tc.Expected.Stream = t.Output.Stream

		testCases = append(testCases, tc)
	}

	return
}

func toOptions(o options) (opts form.Options, err error) {
	opts = form.Options{
		Limits: form.Limits{
			MaxContentLength:  o.MaxContentLength,
			MaxFormMemorySize: o.MaxFormMemorySize,
		},
		Charset:            o.Charset,
		FallbackCharset:    o.FallbackCharset,
		Errors:             form.ErrorsPolicy(o.Errors),
		Silent:             o.Silent,
		SkipMalformedParts: o.SkipMalformedParts,
		DecodeKeys:         o.DecodeKeys,
		BufferSize:         o.BufferSize,
	}

	switch len(o.Separator) {
	case 0:
	case 1:
		opts.Separator = o.Separator[0]
	default:
		err = fmt.Errorf("separator %q is not a single byte", o.Separator)
	}

	return
}

// The data field in the YAML files can be either a single string, or a list of lines. This function returns a string from either.
// Lines are joined with lineEnding, and no line ending is added after the last one.
func getBody(inputData interface{}, lineEnding string) (body string) {
	switch d := inputData.(type) {
	case string:
		body = d
	case []interface{}:
		lines := make([]string, 0, len(d))
		for _, line := range d {
			if line, ok := line.(string); ok {
				lines = append(lines, line)
			}
		}
		body = strings.Join(lines, lineEnding)
	}
	return
}
