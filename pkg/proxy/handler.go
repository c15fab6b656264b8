package proxy

import (
	"net/http"
	"time"
)

// Request is a buffered request ready to be relayed upstream.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is a buffered upstream answer with hop-by-hop headers removed.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Duration   time.Duration
}

// NewRequest captures r for forwarding. The body must already be read.
func NewRequest(r *http.Request, body []byte) *Request {
	return &Request{
		Method: r.Method,
		URL:    TargetURL(r),
		Header: r.Header.Clone(),
		Body:   body,
	}
}

// TargetURL rebuilds the fully qualified URL a client asked for. Explicit
// proxy clients send an absolute URI that is used as is; otherwise the
// Host header and the path and query are joined under http.
func TargetURL(r *http.Request) string {
	if r.URL.IsAbs() {
		return r.URL.String()
	}
	return "http://" + r.Host + r.URL.RequestURI()
}

// hopByHopHeaders are meaningful for a single connection leg only.
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"TE",
	"Trailers",
	"Transfer-Encoding",
	"Upgrade",
}

// copyHeaders copies headers from src to dst.
func copyHeaders(dst, src http.Header) {
	for key, values := range src {
		for _, value := range values {
			dst.Add(key, value)
		}
	}
}

// copyRequestHeaders relays client headers except Host and Connection.
func copyRequestHeaders(dst, src http.Header) {
	copyHeaders(dst, src)
	dst.Del("Host")
	dst.Del("Connection")
}

// removeHopByHopHeaders removes headers that should not be relayed back.
func removeHopByHopHeaders(h http.Header) {
	for _, header := range hopByHopHeaders {
		h.Del(header)
	}
}

// RemoveHopByHopHeaders is exported for callers writing upstream headers
// themselves.
func RemoveHopByHopHeaders(h http.Header) {
	removeHopByHopHeaders(h)
}
