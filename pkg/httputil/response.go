// Package httputil provides shared HTTP utilities for consistent response handling.
//
// Every writer here sets an explicit Content-Length and Connection: close,
// so each client connection carries exactly one response.
package httputil

import (
	"net/http"
	"strconv"

	"github.com/pretender-dev/pretender/pkg/value"
)

// Content types used by the writers.
const (
	ContentTypeJSON = "application/json; charset=utf-8"
	ContentTypeText = "text/plain; charset=utf-8"
)

// WriteBody writes a complete response. An empty contentType leaves any
// Content-Type already set on w untouched.
func WriteBody(w http.ResponseWriter, status int, contentType string, body []byte) {
	h := w.Header()
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	h.Set("Content-Length", strconv.Itoa(len(body)))
	h.Set("Connection", "close")
	w.WriteHeader(status)
	if len(body) > 0 {
		_, _ = w.Write(body)
	}
}

// WriteJSON encodes data as compact UTF-8 JSON and writes it with status.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	body, err := value.Encode(data)
	if err != nil {
		return err
	}
	WriteBody(w, status, ContentTypeJSON, body)
	return nil
}

// WriteText writes a plain text response.
func WriteText(w http.ResponseWriter, status int, text string) {
	WriteBody(w, status, ContentTypeText, []byte(text))
}

// WriteError writes the JSON error body used for proxy failures:
// {"error":true,"code":status,"message":message,"server":server}.
func WriteError(w http.ResponseWriter, status int, message, server string) {
	_ = WriteJSON(w, status, value.MapOf(
		"error", true,
		"code", status,
		"message", message,
		"server", server,
	))
}

// WriteUnauthorized writes the 401 body for a failed header check.
func WriteUnauthorized(w http.ResponseWriter, message string) {
	_ = WriteJSON(w, http.StatusUnauthorized, value.MapOf(
		"error", "unauthorized",
		"message", message,
		"code", http.StatusUnauthorized,
	))
}

// WriteNotFound writes the plain 404 used for noise requests.
func WriteNotFound(w http.ResponseWriter) {
	WriteText(w, http.StatusNotFound, "Not Found")
}

// WriteRelayed copies an upstream response. Hop-by-hop headers must
// already be gone from header. Content-Length is recomputed from body,
// except for answers that never carry one (HEAD, 1xx, 204, 304), which
// keep the origin's value.
func WriteRelayed(w http.ResponseWriter, method string, status int, header http.Header, body []byte) {
	keepLength := len(body) == 0 && !bodyAllowed(method, status)

	dst := w.Header()
	for key, values := range header {
		if key == "Content-Length" && !keepLength {
			continue
		}
		for _, v := range values {
			dst.Add(key, v)
		}
	}
	if !keepLength {
		WriteBody(w, status, "", body)
		return
	}
	dst.Set("Connection", "close")
	w.WriteHeader(status)
}

func bodyAllowed(method string, status int) bool {
	switch {
	case method == http.MethodHead:
		return false
	case status >= 100 && status < 200:
		return false
	case status == http.StatusNoContent, status == http.StatusNotModified:
		return false
	}
	return true
}
