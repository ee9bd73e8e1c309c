// Package payload turns a form snapshot into the request body the upsert
// endpoint expects. Any file field switches the whole submission to
// multipart/form-data; otherwise the body is JSON.
package payload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/goliatone/go-storeform/pkg/model"
	"github.com/goliatone/go-storeform/pkg/upload"
)

const ContentTypeJSON = "application/json"

// Payload is an encoded request body. It is never mutated after Build.
type Payload struct {
	contentType string
	body        []byte
	fields      []string
}

// ContentType returns the Content-Type header value, including the multipart
// boundary when applicable.
func (p Payload) ContentType() string {
	return p.contentType
}

// Multipart reports whether the body is multipart/form-data.
func (p Payload) Multipart() bool {
	return strings.HasPrefix(p.contentType, "multipart/")
}

// Body returns a fresh reader over the encoded body.
func (p Payload) Body() io.Reader {
	return bytes.NewReader(p.body)
}

// Bytes returns a copy of the encoded body.
func (p Payload) Bytes() []byte {
	return append([]byte(nil), p.body...)
}

// Len returns the body size in bytes.
func (p Payload) Len() int {
	return len(p.body)
}

// Fields lists the keys written to the body in order; repeated multiselect
// parts appear once.
func (p Payload) Fields() []string {
	return append([]string(nil), p.fields...)
}

// Build encodes values for form. The identifier is written under
// form.IdentifierKey() only when id is non-empty, so its absence marks a
// create.
func Build(form model.Form, values map[string]any, id string) (Payload, error) {
	id = strings.TrimSpace(id)
	if form.HasFileField() {
		return buildMultipart(form, values, id)
	}
	return buildJSON(form, values, id)
}

func buildJSON(form model.Form, values map[string]any, id string) (Payload, error) {
	body := make(map[string]any, len(form.Fields)+1)
	var fields []string
	if id != "" {
		body[form.IdentifierKey()] = id
		fields = append(fields, form.IdentifierKey())
	}
	for _, field := range form.Fields {
		value, ok := encodeValue(form, field, values[field.Name])
		if !ok {
			continue
		}
		body[field.Name] = value
		fields = append(fields, field.Name)
	}
	data, err := json.Marshal(body)
	if err != nil {
		return Payload{}, fmt.Errorf("payload: encode json: %w", err)
	}
	return Payload{contentType: ContentTypeJSON, body: data, fields: fields}, nil
}

func buildMultipart(form model.Form, values map[string]any, id string) (Payload, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	var fields []string

	if id != "" {
		if err := writer.WriteField(form.IdentifierKey(), id); err != nil {
			return Payload{}, fmt.Errorf("payload: write id: %w", err)
		}
		fields = append(fields, form.IdentifierKey())
	}

	for _, field := range form.Fields {
		if field.IsFile() {
			written, err := writeFile(writer, field.Name, values[field.Name])
			if err != nil {
				return Payload{}, err
			}
			if written {
				fields = append(fields, field.Name)
			}
			continue
		}

		value, ok := encodeValue(form, field, values[field.Name])
		if !ok {
			continue
		}
		switch v := value.(type) {
		case []string:
			parts := v
			if len(parts) == 0 {
				parts = []string{""}
			}
			for _, part := range parts {
				if err := writer.WriteField(field.Name, part); err != nil {
					return Payload{}, fmt.Errorf("payload: write %s: %w", field.Name, err)
				}
			}
		case string:
			if err := writer.WriteField(field.Name, v); err != nil {
				return Payload{}, fmt.Errorf("payload: write %s: %w", field.Name, err)
			}
		}
		fields = append(fields, field.Name)
	}

	if err := writer.Close(); err != nil {
		return Payload{}, fmt.Errorf("payload: close multipart: %w", err)
	}
	return Payload{contentType: writer.FormDataContentType(), body: buf.Bytes(), fields: fields}, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func writeFile(writer *multipart.Writer, name string, raw any) (bool, error) {
	value, _ := raw.(upload.FileValue)
	switch value.State {
	case upload.Replaced:
		if value.File == nil {
			return false, nil
		}
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(name), quoteEscaper.Replace(value.File.Name)))
		contentType := value.File.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header.Set("Content-Type", contentType)
		part, err := writer.CreatePart(header)
		if err != nil {
			return false, fmt.Errorf("payload: create part %s: %w", name, err)
		}
		if _, err := part.Write(value.File.Data); err != nil {
			return false, fmt.Errorf("payload: write file %s: %w", name, err)
		}
		return true, nil
	case upload.Cleared:
		if err := writer.WriteField(name, ""); err != nil {
			return false, fmt.Errorf("payload: clear %s: %w", name, err)
		}
		return true, nil
	default:
		return false, nil
	}
}

// encodeValue resolves the wire value of a non-file field, applying the
// form's empty policy. The bool result is false when the field is left out.
func encodeValue(form model.Form, field model.Field, raw any) (any, bool) {
	keepEmpty := form.EmptyPolicy == model.EmptyString

	switch v := raw.(type) {
	case []string:
		if len(v) == 0 {
			if !keepEmpty {
				return nil, false
			}
			return []string{}, true
		}
		return append([]string(nil), v...), true
	case upload.FileValue:
		return nil, false
	}

	text := toString(raw)
	if strings.TrimSpace(text) == "" {
		if !keepEmpty {
			return nil, false
		}
		return "", true
	}
	if field.Kind == model.KindMultiSelect {
		return []string{text}, true
	}
	if field.Kind == model.KindRichText {
		return SanitizeRichText(text), true
	}
	return text, true
}

func toString(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
