package logging

import (
	"path/filepath"

	json "github.com/json-iterator/go"
	"github.com/rs/zerolog"

	"formparse/form"
)

// DefaultPath is the default directory of the results log.
const DefaultPath = "/var/log/formparse/"

// FileName is the results log file name.
const FileName = "formparse_json.log"

// FileResultsLogger writes one JSON line per parse outcome to a file. A single goroutine owns the file, so it can be used from many requests at once.
type FileResultsLogger struct {
	file         LogFile
	logger       zerolog.Logger
	metaData     MetaData
	writelogline chan []byte
	writeDone    chan error
}

// NewFileResultsLogger creates a results logger that writes log messages to FileName in dir.
func NewFileResultsLogger(fileSystem LogFileSystem, logger zerolog.Logger, dir string, metaData MetaData) (*FileResultsLogger, error) {
	if dir == "" {
		dir = DefaultPath
	}

	r := &FileResultsLogger{logger: logger, metaData: metaData}

	err := fileSystem.MkDir(dir)
	if err != nil {
		logger.Error().Err(err).Str("path", dir).Msg("Failed to create the directory while initializing")
		return nil, err
	}

	name := filepath.Join(dir, FileName)
	r.file, err = fileSystem.Open(name)
	if err != nil {
		logger.Error().Err(err).Str("file", name).Msg("Failed to open the file at initiation")
		return nil, err
	}

	r.writelogline = make(chan []byte)
	r.writeDone = make(chan error)
	go func() {
		for v := range r.writelogline {
			r.writeDone <- r.file.Append(append(v, '\n'))
		}
	}()

	return r, nil
}

func (l *FileResultsLogger) SizeLimitExceeded(request form.ResultsLoggerRequest, limits form.Limits, err error) {
	l.write(newSizeLimitExceededEntry(l.metaData, request, limits, err))
}

func (l *FileResultsLogger) BodyParseError(request form.ResultsLoggerRequest, err error) {
	l.write(newBodyParseErrorEntry(l.metaData, request, err))
}

func (l *FileResultsLogger) FormParsed(request form.ResultsLoggerRequest, result *form.Result) {
	l.write(newFormParsedEntry(l.metaData, request, result))
}

// Close stops the writer goroutine and closes the file. The logger must not be used afterwards.
func (l *FileResultsLogger) Close() error {
	close(l.writelogline)
	return l.file.Close()
}

func (l *FileResultsLogger) write(entry interface{}) {
	bb, err := json.Marshal(entry)
	if err != nil {
		l.logger.Error().Err(err).Msg("Error while marshaling JSON results log")
		return
	}

	l.writelogline <- bb
	if err = <-l.writeDone; err != nil {
		l.logger.Error().Err(err).Msg("Error while writing results log")
	}
}
