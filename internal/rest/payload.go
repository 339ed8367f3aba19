package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/snowtransfer/snowtransfer/internal/endpoints"
)

// Encoding selects how a payload is put on the wire.
type Encoding int

const (
	// EncodingJSON sends the payload as a JSON body, or as query parameters
	// for GET and the ban/prune routes.
	EncodingJSON Encoding = iota
	// EncodingMultipart sends a file part plus a payload_json part.
	EncodingMultipart
)

func (e Encoding) String() string {
	switch e {
	case EncodingJSON:
		return "json"
	case EncodingMultipart:
		return "multipart"
	default:
		return fmt.Sprintf("encoding(%d)", int(e))
	}
}

const (
	// ReasonKey is the payload key carrying the audit log reason.
	ReasonKey = "reason"
	// FileKey is the payload key carrying a multipart attachment.
	FileKey = "file"

	payloadJSONField = "payload_json"
)

// File is a multipart attachment.
type File struct {
	Name string
	Data []byte
}

// Payload is the data of a logical request.
type Payload struct {
	Encoding Encoding
	Data     map[string]any
}

// JSON returns a JSON payload.
func JSON(data map[string]any) Payload {
	return Payload{Encoding: EncodingJSON, Data: data}
}

// Multipart returns a multipart payload. The attachment is read from
// data["file"], which may be a File, *File, or a map with "name" and "file"
// entries; it is removed from the JSON part.
func Multipart(data map[string]any) Payload {
	return Payload{Encoding: EncodingMultipart, Data: data}
}

// preparedRequest is a fully encoded request that can be replayed on every
// attempt.
type preparedRequest struct {
	method      string
	route       endpoints.Route
	query       url.Values
	body        []byte
	contentType string
	reason      string
}

func prepare(path, method string, payload Payload) (*preparedRequest, error) {
	if strings.TrimSpace(path) == "" || !strings.HasPrefix(path, "/") {
		return nil, invalidRequest("path %q must start with /", path)
	}
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		return nil, invalidRequest("method is required")
	}

	data := maps.Clone(payload.Data)
	p := &preparedRequest{
		method: method,
		route:  endpoints.Resolve(path, method),
	}

	if raw, ok := data[ReasonKey]; ok {
		if reason, isString := raw.(string); isString {
			p.reason = reason
			delete(data, ReasonKey)
		}
	}

	var err error
	switch payload.Encoding {
	case EncodingJSON:
		err = p.encodeJSON(data)
	case EncodingMultipart:
		err = p.encodeMultipart(data)
	default:
		err = invalidRequest("unsupported encoding %s", payload.Encoding)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (p *preparedRequest) encodeJSON(data map[string]any) error {
	if endpoints.UsesQueryParams(p.route.Path, p.method) {
		query, err := encodeQuery(data)
		if err != nil {
			return err
		}
		p.query = query
		return nil
	}

	if len(data) == 0 {
		return nil
	}
	body, err := json.Marshal(data)
	if err != nil {
		return invalidRequest("encode body: %v", err)
	}
	p.body = body
	p.contentType = "application/json"
	return nil
}

func (p *preparedRequest) encodeMultipart(data map[string]any) error {
	file, err := extractFile(data)
	if err != nil {
		return err
	}
	delete(data, FileKey)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if file != nil && file.Data != nil {
		var part io.Writer
		if file.Name != "" {
			part, err = w.CreateFormFile(FileKey, file.Name)
		} else {
			part, err = w.CreateFormField(FileKey)
		}
		if err != nil {
			return invalidRequest("create file part: %v", err)
		}
		if _, err := part.Write(file.Data); err != nil {
			return invalidRequest("write file part: %v", err)
		}
	}

	if data == nil {
		data = map[string]any{}
	}
	meta, err := json.Marshal(data)
	if err != nil {
		return invalidRequest("encode %s: %v", payloadJSONField, err)
	}
	if err := w.WriteField(payloadJSONField, string(meta)); err != nil {
		return invalidRequest("write %s: %v", payloadJSONField, err)
	}
	if err := w.Close(); err != nil {
		return invalidRequest("close multipart body: %v", err)
	}

	p.body = buf.Bytes()
	p.contentType = w.FormDataContentType()
	return nil
}

func extractFile(data map[string]any) (*File, error) {
	raw, ok := data[FileKey]
	if !ok || raw == nil {
		return nil, nil
	}
	switch f := raw.(type) {
	case File:
		return &f, nil
	case *File:
		return f, nil
	case map[string]any:
		file := &File{}
		if name, ok := f["name"].(string); ok {
			file.Name = name
		}
		switch content := f["file"].(type) {
		case []byte:
			file.Data = content
		case string:
			file.Data = []byte(content)
		case nil:
		default:
			return nil, invalidRequest("file content has unsupported type %T", content)
		}
		return file, nil
	default:
		return nil, invalidRequest("file has unsupported type %T", raw)
	}
}

func encodeQuery(data map[string]any) (url.Values, error) {
	if len(data) == 0 {
		return nil, nil
	}
	query := url.Values{}
	for key, value := range data {
		switch v := value.(type) {
		case nil:
		case string:
			query.Add(key, v)
		case []string:
			for _, item := range v {
				query.Add(key, item)
			}
		case []any:
			for _, item := range v {
				query.Add(key, fmt.Sprint(item))
			}
		case map[string]any:
			return nil, invalidRequest("query parameter %q cannot be an object", key)
		default:
			query.Add(key, fmt.Sprint(v))
		}
	}
	return query, nil
}

func (p *preparedRequest) newRequest(ctx context.Context, baseURL string) (*http.Request, error) {
	target := strings.TrimRight(baseURL, "/") + p.route.Path
	if len(p.query) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + p.query.Encode()
	}

	var body io.Reader
	if p.body != nil {
		body = bytes.NewReader(p.body)
	}
	req, err := http.NewRequestWithContext(ctx, p.method, target, body)
	if err != nil {
		return nil, invalidRequest("build request: %v", err)
	}
	if p.contentType != "" {
		req.Header.Set("Content-Type", p.contentType)
	}
	if p.reason != "" {
		req.Header.Set(AuditLogReasonHeader, url.PathEscape(p.reason))
	}
	return req, nil
}
