package wirehttp

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"path/filepath"

	"github.com/google/uuid"
)

// MultipartPart is one section of a multipart/form-data body (spec §3
// "Multipart part"). Content-Disposition is mandatory and is derived from
// Name/Filename; Content-Type is optional and, when added from a file path,
// is guessed from the file extension.
type MultipartPart struct {
	Name        string
	Filename    string // empty for non-file fields
	ContentType string // optional
	headers     *HeaderSet
	source      Source
	length      int64
}

// NewFieldPart builds a simple name/value part from an in-memory value.
func NewFieldPart(name, value string) MultipartPart {
	return MultipartPart{
		Name:   name,
		source: BytesSource([]byte(value)),
		length: int64(len(value)),
	}
}

// NewFilePart builds a file part from in-memory bytes with an explicit
// filename and content type.
func NewFilePart(name, filename, contentType string, data []byte) MultipartPart {
	return MultipartPart{
		Name:        name,
		Filename:    filename,
		ContentType: contentType,
		source:      BytesSource(data),
		length:      int64(len(data)),
	}
}

// NewFilePartFromPath builds a file part backed by a file on disk, guessing
// Content-Type from the file extension (spec §3).
func NewFilePartFromPath(name, path string) (MultipartPart, error) {
	src := FileSource(path)
	rc, length, err := src.open()
	if err != nil {
		return MultipartPart{}, newRequestError("build", path, 0, KindMultipartInvalidFile, err)
	}
	rc.Close()

	ct := mime.TypeByExtension(filepath.Ext(path))
	return MultipartPart{
		Name:        name,
		Filename:    filepath.Base(path),
		ContentType: ct,
		source:      src,
		length:      length,
	}, nil
}

// headerSet computes this part's header block including the mandatory
// Content-Disposition and optional Content-Type.
func (p *MultipartPart) headerSet() *HeaderSet {
	h := NewHeaderSet()
	disposition := fmt.Sprintf(`form-data; name=%q`, p.Name)
	if p.Filename != "" {
		disposition = fmt.Sprintf(`form-data; name=%q; filename=%q`, p.Name, p.Filename)
	}
	h.Set("Content-Disposition", disposition)
	if p.ContentType != "" {
		h.Set("Content-Type", p.ContentType)
	}
	return h
}

// Multipart is a deterministic multipart/form-data encoder (spec §3, §6).
// Given an identical boundary and parts, Encode always produces byte-equal
// output (spec invariant).
type Multipart struct {
	Boundary string
	Preamble string // optional, precedes the first delimiter
	Parts    []MultipartPart
}

// NewMultipart builds a Multipart with a process-unique random boundary
// token when boundary is empty.
func NewMultipart(boundary string, parts ...MultipartPart) *Multipart {
	if boundary == "" {
		boundary = "wirehttp-" + uuid.NewString()
	}
	return &Multipart{Boundary: boundary, Parts: parts}
}

// Encode renders the full multipart body:
//
//	[preamble CRLF CRLF]? (delimiter CRLF headers CRLF payload CRLF)* distinguished-delimiter
func (m *Multipart) Encode() ([]byte, error) {
	var buf bytes.Buffer

	if m.Preamble != "" {
		buf.WriteString(m.Preamble)
		buf.WriteString("\r\n\r\n")
	}

	delimiter := "--" + m.Boundary
	closing := delimiter + "--"

	for i := range m.Parts {
		part := &m.Parts[i]
		buf.WriteString(delimiter)
		buf.WriteString("\r\n")

		for _, hdr := range part.headerSet().Iterate() {
			buf.WriteString(hdr.Name)
			buf.WriteString(": ")
			buf.WriteString(hdr.Value)
			buf.WriteString("\r\n")
		}
		buf.WriteString("\r\n")

		rc, _, err := part.source.open()
		if err != nil {
			return nil, newRequestError("build", part.Filename, 0, KindMultipartInvalidFile, err)
		}
		if _, err := io.Copy(&buf, rc); err != nil {
			rc.Close()
			return nil, newRequestError("build", part.Filename, 0, KindMultipartInvalidFile, err)
		}
		rc.Close()
		buf.WriteString("\r\n")
	}

	buf.WriteString(closing)
	return buf.Bytes(), nil
}
