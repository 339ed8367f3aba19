package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/snowtransfer/snowtransfer/internal/endpoints"
	apperrors "github.com/snowtransfer/snowtransfer/internal/errors"
	"github.com/snowtransfer/snowtransfer/internal/rest"
)

// maxProxyBody bounds JSON and multipart request bodies.
const maxProxyBody = 8 << 20

// ProxyHandler forwards /api/* through the dispatcher, so every caller of
// the proxy shares one set of buckets.
func ProxyHandler(d *rest.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := "/" + strings.TrimPrefix(chi.URLParam(r, "*"), "/")

		payload, err := proxyPayload(r, path)
		if err != nil {
			respondWithError(w, r, apperrors.NewInvalidInputError(err.Error()))
			return
		}

		if !endpoints.UsesQueryParams(path, r.Method) && r.URL.RawQuery != "" {
			path += "?" + r.URL.RawQuery
		}

		body, err := d.Request(r.Context(), path, r.Method, payload)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		if len(body) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}
}

// proxyPayload turns the incoming body and audit header into a dispatcher
// payload. The query joins the payload only on routes that send their data
// as query parameters; elsewhere it stays on the path.
func proxyPayload(r *http.Request, path string) (rest.Payload, error) {
	data := map[string]any{}
	if endpoints.UsesQueryParams(path, r.Method) {
		for key, values := range r.URL.Query() {
			if len(values) > 0 {
				data[key] = values[0]
			}
		}
	}

	encoding := rest.EncodingJSON
	contentType := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(contentType, "multipart/form-data"):
		encoding = rest.EncodingMultipart
		if err := readMultipart(r, data); err != nil {
			return rest.Payload{}, err
		}
	case r.Body != nil && r.ContentLength != 0:
		raw, err := io.ReadAll(io.LimitReader(r.Body, maxProxyBody))
		if err != nil {
			return rest.Payload{}, fmt.Errorf("read body: %w", err)
		}
		if len(strings.TrimSpace(string(raw))) > 0 {
			var body map[string]any
			if err := json.Unmarshal(raw, &body); err != nil {
				return rest.Payload{}, fmt.Errorf("body must be a JSON object: %w", err)
			}
			for key, value := range body {
				data[key] = value
			}
		}
	}

	// Callers send the header already URL-encoded and the dispatcher encodes
	// the reason again.
	if reason := r.Header.Get(rest.AuditLogReasonHeader); reason != "" {
		if decoded, err := url.PathUnescape(reason); err == nil {
			reason = decoded
		}
		data[rest.ReasonKey] = reason
	}

	if encoding == rest.EncodingMultipart {
		return rest.Multipart(data), nil
	}
	return rest.JSON(data), nil
}

func readMultipart(r *http.Request, data map[string]any) error {
	if err := r.ParseMultipartForm(maxProxyBody); err != nil {
		return fmt.Errorf("parse multipart body: %w", err)
	}

	if raw := r.FormValue("payload_json"); raw != "" {
		var body map[string]any
		if err := json.Unmarshal([]byte(raw), &body); err != nil {
			return fmt.Errorf("payload_json must be a JSON object: %w", err)
		}
		for key, value := range body {
			data[key] = value
		}
	}

	file, header, err := r.FormFile(rest.FileKey)
	if err != nil {
		return fmt.Errorf("multipart body needs a %q part: %w", rest.FileKey, err)
	}
	defer file.Close() // nolint:errcheck // read-only form file

	contents, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("read file part: %w", err)
	}
	data[rest.FileKey] = rest.File{Name: header.Filename, Data: contents}
	return nil
}
