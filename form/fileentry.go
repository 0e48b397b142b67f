package form

// FileEntry is an uploaded file. The caller owns Stream and must Close the entry when done with it.
type FileEntry struct {
	FieldName         string
	Filename          string
	ContentType       string // Full Content-Type header value of the part, parameters included.
	MediaType         string // Lower-cased media type without parameters.
	ContentTypeParams map[string]string
	Headers           Headers
	Size              int64
	Stream            Spool
}

// Read reads from the start of the upload, unless earlier reads or seeks moved the stream.
func (f *FileEntry) Read(p []byte) (int, error) {
	return f.Stream.Read(p)
}

// Close releases the stream and any temporary file behind it.
func (f *FileEntry) Close() error {
	if f.Stream == nil {
		return nil
	}

	return f.Stream.Close()
}

// CloseFiles closes every file in files and returns the first error.
func CloseFiles(files *Files) (err error) {
	for _, f := range files.All() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}

	return
}
