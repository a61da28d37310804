package apiclient

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/textproto"
	"path/filepath"

	"github.com/pkg/errors"
)

// MultipartForm is a fully encoded multipart body. It is built up front so
// the request carries exactly the boundary the writer chose.
type MultipartForm struct {
	buf    bytes.Buffer
	writer *multipart.Writer
	closed bool
}

func NewMultipartForm() *MultipartForm {
	form := &MultipartForm{}
	form.writer = multipart.NewWriter(&form.buf)
	return form
}

func (f *MultipartForm) AddField(name, value string) error {
	if f.closed {
		return errors.New("multipart form already closed")
	}
	return f.writer.WriteField(name, value)
}

// AddFile adds a file part with an explicit content type.
func (f *MultipartForm) AddFile(field, filename, contentType string, content io.Reader) error {
	if f.closed {
		return errors.New("multipart form already closed")
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", multipartDisposition(field, filepath.Base(filename)))
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	part, err := f.writer.CreatePart(header)
	if err != nil {
		return errors.Wrapf(err, "create part %s", field)
	}
	if _, err := io.Copy(part, content); err != nil {
		return errors.Wrapf(err, "write part %s", field)
	}
	return nil
}

// Close writes the trailing boundary. Bytes closes the form if needed.
func (f *MultipartForm) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	return f.writer.Close()
}

func (f *MultipartForm) Bytes() []byte {
	_ = f.Close()
	return f.buf.Bytes()
}

func (f *MultipartForm) ContentType() string {
	return f.writer.FormDataContentType()
}

func multipartDisposition(field, filename string) string {
	return `form-data; name="` + escapeQuotes(field) + `"; filename="` + escapeQuotes(filename) + `"`
}

func escapeQuotes(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\', '"':
			out = append(out, '\\', s[i])
		default:
			out = append(out, s[i])
		}
	}
	return string(out)
}
