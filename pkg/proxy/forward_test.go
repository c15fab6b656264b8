package proxy

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// closedPort returns a localhost address nothing listens on.
func closedPort(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestForwardRelaysResponse(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "text/plain")
		w.Header().Set("X-Upstream", "yes")
		w.Header().Set("Keep-Alive", "timeout=5")
		w.Header().Set("Upgrade", "h2c")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, r.Method+" "+r.URL.RequestURI()+" "+string(body))
		w.(http.Flusher).Flush()
	}))
	defer upstream.Close()

	f := NewForwarder(Options{FollowRedirects: true})
	resp, err := f.Forward(context.Background(), &Request{
		Method: http.MethodPost,
		URL:    upstream.URL + "/api/items?page=2",
		Header: http.Header{"Content-Type": {"text/plain"}},
		Body:   []byte("payload"),
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "POST /api/items?page=2 payload", string(resp.Body))
	assert.Equal(t, "yes", resp.Header.Get("X-Upstream"))
	assert.Equal(t, "text/plain", resp.Header.Get("Content-Type"))
	for _, h := range hopByHopHeaders {
		assert.Empty(t, resp.Header.Values(h), h)
	}
	assert.Positive(t, resp.Duration)
}

func TestForwardStripsHostAndConnection(t *testing.T) {
	var seen *http.Request
	f := NewForwarder(Options{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		seen = r
		return &http.Response{
			StatusCode: http.StatusOK,
			Header: http.Header{
				"Transfer-Encoding": {"chunked"},
				"Connection":        {"keep-alive"},
				"X-Kept":            {"1"},
			},
			Body: io.NopCloser(strings.NewReader("ok")),
		}, nil
	})})

	resp, err := f.Forward(context.Background(), &Request{
		Method: http.MethodGet,
		URL:    "http://example.com/api",
		Header: http.Header{
			"Host":          {"evil.example"},
			"Connection":    {"keep-alive"},
			"Authorization": {"Bearer x"},
			"Accept":        {"application/json"},
		},
	})
	require.NoError(t, err)

	require.NotNil(t, seen)
	assert.Empty(t, seen.Header.Get("Host"))
	assert.Empty(t, seen.Header.Get("Connection"))
	assert.Equal(t, "Bearer x", seen.Header.Get("Authorization"))
	assert.Equal(t, "application/json", seen.Header.Get("Accept"))
	assert.Equal(t, "example.com", seen.URL.Host)

	assert.Empty(t, resp.Header.Get("Transfer-Encoding"))
	assert.Empty(t, resp.Header.Get("Connection"))
	assert.Equal(t, "1", resp.Header.Get("X-Kept"))
}

func TestForwardTransportError(t *testing.T) {
	f := NewForwarder(Options{})
	_, err := f.Forward(context.Background(), &Request{
		Method: http.MethodGet,
		URL:    "http://" + closedPort(t) + "/",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstreamTransport)
	assert.NotErrorIs(t, err, ErrUpstreamTimeout)

	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Contains(t, upErr.Cause.Error(), "connect")
}

func TestForwardTimeout(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer upstream.Close()

	f := NewForwarder(Options{Timeout: 50 * time.Millisecond})
	start := time.Now()
	_, err := f.Forward(context.Background(), &Request{Method: http.MethodGet, URL: upstream.URL})
	assert.ErrorIs(t, err, ErrUpstreamTimeout)
	assert.Less(t, time.Since(start), time.Second)
}

func TestForwardRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/end", http.StatusFound)
	})
	mux.HandleFunc("/end", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "arrived")
	})
	mux.HandleFunc("/loop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusFound)
	})
	upstream := httptest.NewServer(mux)
	defer upstream.Close()

	t.Run("followed", func(t *testing.T) {
		f := NewForwarder(Options{FollowRedirects: true})
		resp, err := f.Forward(context.Background(), &Request{Method: http.MethodGet, URL: upstream.URL + "/start"})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "arrived", string(resp.Body))
	})

	t.Run("not followed", func(t *testing.T) {
		f := NewForwarder(Options{FollowRedirects: false})
		resp, err := f.Forward(context.Background(), &Request{Method: http.MethodGet, URL: upstream.URL + "/start"})
		require.NoError(t, err)
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/end", resp.Header.Get("Location"))
	})

	t.Run("too many", func(t *testing.T) {
		f := NewForwarder(Options{FollowRedirects: true, MaxRedirects: 3})
		_, err := f.Forward(context.Background(), &Request{Method: http.MethodGet, URL: upstream.URL + "/loop"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUpstreamTransport)
		assert.Contains(t, err.Error(), "stopped after 3 redirects")
	})
}

func TestReadBody(t *testing.T) {
	data, err := ReadBody(strings.NewReader("0123456789"), 10)
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(data))

	_, err = ReadBody(strings.NewReader("0123456789a"), 10)
	assert.ErrorIs(t, err, ErrPayloadTooLarge)

	data, err = ReadBody(strings.NewReader("unbounded"), 0)
	require.NoError(t, err)
	assert.Equal(t, "unbounded", string(data))

	data, err = ReadBody(nil, 10)
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestTargetURL(t *testing.T) {
	tests := []struct {
		name   string
		target string
		host   string
		want   string
	}{
		{"absolute proxy form", "http://api.example.com/v1/users?id=3", "ignored.example", "http://api.example.com/v1/users?id=3"},
		{"origin form", "/v1/users?id=3", "api.example.com", "http://api.example.com/v1/users?id=3"},
		{"origin form no query", "/v1/users", "api.example.com:8080", "http://api.example.com:8080/v1/users"},
		{"root", "/", "example.com", "http://example.com/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tt.target, nil)
			r.Host = tt.host
			assert.Equal(t, tt.want, TargetURL(r))
		})
	}
}

func TestNewRequestClonesHeaders(t *testing.T) {
	r := httptest.NewRequest(http.MethodPut, "http://example.com/a", nil)
	r.Header.Set("X-Token", "abc")

	req := NewRequest(r, []byte("body"))
	r.Header.Set("X-Token", "changed")

	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "http://example.com/a", req.URL)
	assert.Equal(t, "abc", req.Header.Get("X-Token"))
	assert.Equal(t, "body", string(req.Body))
}
