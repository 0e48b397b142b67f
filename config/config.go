package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	yaml "gopkg.in/yaml.v3"

	"formparse/bodyparsing"
	"formparse/form"
)

// Main is the top level configuration.
type Main struct {
	Server  Server  `yaml:"server"`
	Parser  Parser  `yaml:"parser"`
	Logging Logging `yaml:"logging"`
}

// Server configures the HTTP service.
type Server struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Parser configures how request bodies are parsed. Zero limits mean no limit.
type Parser struct {
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
	SpoolThreshold     int64  `yaml:"spool_threshold"`
	SpoolDir           string `yaml:"spool_dir"`
}

// Logging configures the console log and the results log.
type Logging struct {
	Level         string `yaml:"level"`
	ResultsLog    string `yaml:"results_log"` // "zerolog", "file" or "none"
	ResultsLogDir string `yaml:"results_log_dir"`
	ResourceID    string `yaml:"resource_id"`
	InstanceID    string `yaml:"instance_id"`
}

// Default returns the configuration used when no file is given.
func Default() Main {
	return Main{
		Server: Server{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Parser: Parser{
			MaxContentLength:  1024 * 1024 * 700, // 700 MiB
			MaxFormMemorySize: 1024 * 500,        // 500 KiB
			Charset:           "utf-8",
			Errors:            string(form.ErrorsReplace),
			Separator:         "&",
			SpoolThreshold:    bodyparsing.DefaultSpoolThreshold,
		},
		Logging: Logging{
			Level:      "error",
			ResultsLog: "zerolog",
		},
	}
}

// Load reads a YAML configuration file. Settings missing from the file keep their defaults.
func Load(path string) (m Main, err error) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	m, err = Decode(f)
	if err != nil {
		err = fmt.Errorf("config file %v: %w", path, err)
	}

	return
}

// Decode reads a YAML configuration from r on top of the defaults. Unknown keys are an error.
func Decode(r io.Reader) (m Main, err error) {
	m = Default()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err = dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return
	}

	err = m.Validate()
	return
}

// Validate checks the values that cannot be checked by the YAML types alone.
func (m *Main) Validate() error {
	p := m.Parser
	if p.MaxContentLength < 0 || p.MaxFormMemorySize < 0 {
		return errors.New("parser limits must not be negative")
	}

	switch form.ErrorsPolicy(p.Errors) {
	case form.ErrorsReplace, form.ErrorsIgnore, form.ErrorsStrict:
	default:
		return fmt.Errorf("unknown parser errors policy %q", p.Errors)
	}

	if len(p.Separator) != 1 {
		return fmt.Errorf("parser separator must be a single byte, got %q", p.Separator)
	}

	switch m.Logging.ResultsLog {
	case "zerolog", "file", "none":
	default:
		return fmt.Errorf("unknown results log %q", m.Logging.ResultsLog)
	}

	return nil
}

// ParserOptions converts the parser settings to form.Options.
func (m *Main) ParserOptions() form.Options {
	p := m.Parser
	return form.Options{
		Limits: form.Limits{
			MaxContentLength:  p.MaxContentLength,
			MaxFormMemorySize: p.MaxFormMemorySize,
		},
		Charset:            p.Charset,
		FallbackCharset:    p.FallbackCharset,
		Errors:             form.ErrorsPolicy(p.Errors),
		Silent:             p.Silent,
		SkipMalformedParts: p.SkipMalformedParts,
		Separator:          p.Separator[0],
		DecodeKeys:         p.DecodeKeys,
		BufferSize:         p.BufferSize,
		StreamFactory:      bodyparsing.NewSpooledStreamFactory(p.SpoolThreshold, p.SpoolDir),
	}
}

// Marshal renders the configuration as YAML.
func (m *Main) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return nil, err
	}

	if err := enc.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
