package payload

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
)

const formLogPrefix = "payload:form"

// Part is a single named form field. Parts with a Filename or Data are file parts.
type Part struct {
	Name        string `json:"name"`
	Value       string `json:"value,omitempty"`
	Filename    string `json:"filename,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	Data        []byte `json:"data,omitempty"`
}

// IsFile reports whether the part carries binary content.
func (p Part) IsFile() bool {
	return p.Filename != "" || p.Data != nil
}

// Form is an ordered list of named parts.
type Form struct {
	parts []Part
}

// NewForm creates an empty form.
func NewForm() *Form {
	return &Form{}
}

// Add appends a text field.
func (f *Form) Add(name, value string) *Form {
	f.parts = append(f.parts, Part{Name: name, Value: value})
	return f
}

// AddFile appends a file field. An empty contentType is sent as application/octet-stream.
func (f *Form) AddFile(name, filename, contentType string, data []byte) *Form {
	if data == nil {
		data = []byte{}
	}
	f.parts = append(f.parts, Part{Name: name, Filename: filename, ContentType: contentType, Data: data})
	return f
}

// AddPart appends a prepared part.
func (f *Form) AddPart(p Part) *Form {
	f.parts = append(f.parts, p)
	return f
}

// Parts returns a copy of the parts in insertion order.
func (f *Form) Parts() []Part {
	out := make([]Part, len(f.parts))
	copy(out, f.parts)
	return out
}

// Len returns the number of parts.
func (f *Form) Len() int {
	return len(f.parts)
}

// Get returns the value of the first text part with the given name.
func (f *Form) Get(name string) (string, bool) {
	for _, p := range f.parts {
		if p.Name == name && !p.IsFile() {
			return p.Value, true
		}
	}
	return "", false
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Encode writes the form as multipart/form-data and returns the content type
// including the generated boundary.
func (f *Form) Encode(w io.Writer) (string, error) {
	mw := multipart.NewWriter(w)

	for _, p := range f.parts {
		if !p.IsFile() {
			if err := mw.WriteField(p.Name, p.Value); err != nil {
				return "", fmt.Errorf("%s - failed to write field %q: %w", formLogPrefix, p.Name, err)
			}
			continue
		}

		contentType := p.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(p.Name), quoteEscaper.Replace(p.Filename)))
		h.Set("Content-Type", contentType)

		pw, err := mw.CreatePart(h)
		if err != nil {
			return "", fmt.Errorf("%s - failed to create part %q: %w", formLogPrefix, p.Name, err)
		}
		if _, err := pw.Write(p.Data); err != nil {
			return "", fmt.Errorf("%s - failed to write part %q: %w", formLogPrefix, p.Name, err)
		}
	}

	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("%s - failed to close multipart writer: %w", formLogPrefix, err)
	}
	return mw.FormDataContentType(), nil
}
