package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formparse/bodyparsing"
	"formparse/config"
	"formparse/form"
	"formparse/logging"
	"formparse/testutils"
)

func TestParseLengthLimitsArgOrDefault(t *testing.T) {
	defaults := form.Limits{MaxContentLength: 10, MaxFormMemorySize: 5}

	tests := []struct {
		arg      string
		expected form.Limits
		err      bool
	}{
		{"", defaults, false},
		{"100,20", form.Limits{MaxContentLength: 100, MaxFormMemorySize: 20}, false},
		{" 0, 0", form.Limits{}, false},
		{"100", defaults, true},
		{"100,20,3", defaults, true},
		{"x,20", defaults, true},
		{"100,y", defaults, true},
	}

	for _, tt := range tests {
		// Act
		limits, err := parseLengthLimitsArgOrDefault(tt.arg, defaults)

		// Assert
		if tt.err {
			assert.Error(t, err, tt.arg)
			continue
		}
		assert.NoError(t, err, tt.arg)
		assert.Equal(t, tt.expected, limits, tt.arg)
	}
}

func TestLoadConfigFlagsOverrideFile(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), "formparse.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: warn\nparser:\n  max_content_length: 99\n"), 0644))
	cli := &CLI{Config: path, LogLevel: "debug", BodyLimits: "1000,50"}

	// Act
	cfg, err := cli.loadConfig()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, int64(1000), cfg.Parser.MaxContentLength)
	assert.Equal(t, int64(50), cfg.Parser.MaxFormMemorySize)
}

func TestLoadConfigDefaults(t *testing.T) {
	// Act
	cfg, err := (&CLI{}).loadConfig()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestDump(t *testing.T) {
	// Arrange
	assert := assert.New(t)
	body := strings.Join([]string{
		"--foo",
		`Content-Disposition: form-data; name="a"`,
		"",
		"1",
		"--foo",
		`Content-Disposition: form-data; name="f"; filename="x.txt"`,
		"Content-Type: text/plain",
		"",
		"abc",
		"--foo--",
		"tail",
	}, "\r\n")
	req := &dumpRequest{method: "POST", contentType: "multipart/form-data; boundary=foo", contentLength: int64(len(body)), body: strings.NewReader(body)}
	logger := testutils.NewTestLogger(t)

	// Act
	out, err := dump(logger, bodyparsing.NewFormDataParser(form.Options{}), req)

	// Assert
	require.NoError(t, err)
	assert.Equal([][2]string{{"a", "1"}}, out.Fields)
	require.Len(t, out.Files["f"], 1)
	assert.Equal("x.txt", out.Files["f"][0].Filename)
	assert.Equal(int64(3), out.Files["f"][0].Size)
	assert.Equal("text/plain", out.Files["f"][0].Headers["Content-Type"])
	assert.Equal(int64(4), out.RemainingBytes)
}

func TestNewResultsLogger(t *testing.T) {
	logger := testutils.NewTestLogger(t)

	for _, kind := range []string{"zerolog", "none", "file"} {
		// Arrange
		dir := t.TempDir()
		cfg := config.Default()
		cfg.Logging.ResultsLog = kind
		cfg.Logging.ResultsLogDir = dir

		// Act
		rl, closeFn, err := newResultsLogger(logger, &cfg)

		// Assert
		require.NoError(t, err, kind)
		assert.NotNil(t, rl, kind)
		assert.NoError(t, closeFn(), kind)

		_, statErr := os.Stat(filepath.Join(dir, logging.FileName))
		assert.Equal(t, kind == "file", statErr == nil, kind)
	}
}

func TestLogEffectiveConfig(t *testing.T) {
	// Arrange
	var buf bytes.Buffer
	cfg := config.Default()
	cfg.Server.Addr = "127.0.0.1:9999"
	debug := zerolog.New(&buf).Level(zerolog.DebugLevel)
	quiet := zerolog.New(&buf).Level(zerolog.InfoLevel)

	// Act
	logEffectiveConfig(quiet, &cfg)
	quietOut := buf.String()
	logEffectiveConfig(debug, &cfg)

	// Assert
	assert.Empty(t, quietOut)
	assert.Contains(t, buf.String(), "Effective config")
	assert.Contains(t, buf.String(), "127.0.0.1:9999")
}
