package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formparse/form"
)

func TestDecodeOverridesDefaults(t *testing.T) {
	// Arrange
	assert := assert.New(t)
	in := `
server:
  addr: 127.0.0.1:9000
  shutdown_timeout: 3s
parser:
  max_form_memory_size: 7
  errors: strict
  separator: ";"
  silent: true
logging:
  level: debug
`

	// Act
	m, err := Decode(strings.NewReader(in))

	// Assert
	require.NoError(t, err)
	assert.Equal("127.0.0.1:9000", m.Server.Addr)
	assert.Equal(3*time.Second, m.Server.ShutdownTimeout)
	assert.Equal(int64(7), m.Parser.MaxFormMemorySize)
	assert.Equal(Default().Parser.MaxContentLength, m.Parser.MaxContentLength)
	assert.Equal("debug", m.Logging.Level)

	opts := m.ParserOptions()
	assert.Equal(form.ErrorsStrict, opts.Errors)
	assert.Equal(byte(';'), opts.Separator)
	assert.True(opts.Silent)
	assert.Equal(int64(7), opts.Limits.MaxFormMemorySize)
	assert.NotNil(opts.StreamFactory)
}

func TestDecodeEmpty(t *testing.T) {
	// Act
	m, err := Decode(strings.NewReader(""))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, Default(), m)
}

func TestDecodeErrors(t *testing.T) {
	tests := map[string]string{
		"unknown key":     "parser:\n  max_body: 1\n",
		"bad policy":      "parser:\n  errors: loud\n",
		"long separator":  "parser:\n  separator: '&&'\n",
		"negative limit":  "parser:\n  max_content_length: -1\n",
		"bad results log": "logging:\n  results_log: syslog\n",
		"not a duration":  "server:\n  shutdown_timeout: soon\n",
		"malformed":       "parser: [",
	}

	for name, in := range tests {
		// Act
		_, err := Decode(strings.NewReader(in))

		// Assert
		assert.Error(t, err, name)
	}
}

func TestLoadRoundTrip(t *testing.T) {
	// Arrange
	m := Default()
	m.Parser.Charset = "latin1"
	b, err := m.Marshal()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "formparse.yaml")
	require.NoError(t, os.WriteFile(path, b, 0644))

	// Act
	loaded, err := Load(path)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, m, loaded)
}

func TestLoadMissingFile(t *testing.T) {
	// Act
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))

	// Assert
	assert.ErrorIs(t, err, os.ErrNotExist)
}
