package integrationtesting

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formparse/bodyparsing"
	"formparse/form"
	"formparse/testutils"
)

func TestFormParsingRegression(t *testing.T) {
	tests, err := GetTests("testdata")
	require.NoError(t, err)

	for _, tc := range tests {
		t.Run(tc.File+"/"+tc.TestTitle, func(t *testing.T) {
			// Arrange
			assert := assert.New(t)
			logger := testutils.NewTestLogger(t)
			p := bodyparsing.NewFormDataParser(tc.Options)

			// Act
			res, err := p.Parse(logger, tc.Request)

			// Assert
			if tc.Expected.Err != nil {
				assert.ErrorIs(err, tc.Expected.Err)
				assert.Nil(res)
				return
			}

			require.NoError(t, err)
			defer res.Close()

			expectedFields := tc.Expected.Fields
			if expectedFields == nil {
				expectedFields = map[string][]string{}
			}
			assert.Equal(expectedFields, fieldsMap(res.Fields))

			if tc.Expected.FieldOrder != nil {
				assert.Equal(tc.Expected.FieldOrder, res.Fields.Keys())
			}

			expectedFiles := tc.Expected.Files
			if expectedFiles == nil {
				expectedFiles = map[string][]ExpectedFile{}
			}
			assert.Equal(expectedFiles, filesMap(t, res.Files))

			for _, w := range tc.Expected.Warnings {
				assert.True(containsWarning(res.Warnings, w), "warning %q not in %q", w, res.Warnings)
			}

			if tc.Expected.Stream != nil {
				b, err := io.ReadAll(res.Stream)
				assert.NoError(err)
				assert.Equal(*tc.Expected.Stream, string(b))
			}
		})
	}
}

func fieldsMap(fields *form.Fields) map[string][]string {
	m := map[string][]string{}
	for k, v := range fields.All() {
		m[k] = append(m[k], v)
	}
	return m
}

func filesMap(t *testing.T, files *form.Files) map[string][]ExpectedFile {
	m := map[string][]ExpectedFile{}
	for k, f := range files.All() {
		b, err := io.ReadAll(f)
		require.NoError(t, err)
		m[k] = append(m[k], ExpectedFile{Filename: f.Filename, ContentType: f.ContentType, Content: string(b)})
	}
	return m
}

func containsWarning(warnings []string, s string) bool {
	for _, w := range warnings {
		if strings.Contains(w, s) {
			return true
		}
	}
	return false
}
