package apiclient

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
)

// FilePart is one file attached to a multipart upload.
type FilePart struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// FileFromPath attaches the file at path under its base name.
func FileFromPath(path string) FilePart {
	return FilePart{
		Name: filepath.Base(path),
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}
}

// FileFromBytes attaches in-memory content.
func FileFromBytes(name string, data []byte) FilePart {
	return FilePart{
		Name: name,
		Open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	}
}

// formField is an ordered multipart text field.
type formField struct {
	name, value string
}

// multipartRequest buffers a multipart body so it can be re-sent on retry.
func multipartRequest(method, path, route string, fields []formField, files []FilePart) (request, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return request{}, fmt.Errorf("write form field %s: %w", f.name, err)
		}
	}
	for _, f := range files {
		if err := writeFilePart(w, f); err != nil {
			return request{}, err
		}
	}
	if err := w.Close(); err != nil {
		return request{}, fmt.Errorf("close multipart body: %w", err)
	}

	return request{
		method:      method,
		path:        path,
		route:       route,
		body:        buf.Bytes(),
		contentType: w.FormDataContentType(),
	}, nil
}

func writeFilePart(w *multipart.Writer, f FilePart) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()

	part, err := w.CreateFormFile("files", f.Name)
	if err != nil {
		return fmt.Errorf("create form file %s: %w", f.Name, err)
	}
	if _, err := io.Copy(part, rc); err != nil {
		return fmt.Errorf("read %s: %w", f.Name, err)
	}
	return nil
}
