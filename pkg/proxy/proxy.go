// Package proxy relays requests that no rule mocks to their real origin.
//
// It holds the upstream Forwarder, the CONNECT handler that tunnels or
// intercepts HTTPS, the CA used for interception and the noise filter that
// short-circuits browser and health-check chatter.
package proxy

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/pretender-dev/pretender/pkg/logging"
)

const (
	// DefaultTimeout bounds one forwarded exchange, redirects included.
	DefaultTimeout = 30 * time.Second
	// DefaultMaxRedirects is how many redirects are followed before giving up.
	DefaultMaxRedirects = 10
	// DefaultMaxBodySize is the default ceiling for request bodies (10MB).
	DefaultMaxBodySize = 10 * 1024 * 1024
)

// Errors returned by the forwarder.
var (
	ErrUpstreamTimeout   = errors.New("upstream timed out")
	ErrUpstreamTransport = errors.New("upstream transport error")
	ErrPayloadTooLarge   = errors.New("request body too large")
)

// UpstreamError wraps a failed exchange with its classification.
type UpstreamError struct {
	// Kind is ErrUpstreamTimeout or ErrUpstreamTransport.
	Kind  error
	Cause error
}

func (e *UpstreamError) Error() string {
	return e.Kind.Error() + ": " + e.Cause.Error()
}

func (e *UpstreamError) Unwrap() []error {
	return []error{e.Kind, e.Cause}
}

// Options configures a Forwarder.
type Options struct {
	// Timeout bounds the whole exchange. Zero means DefaultTimeout.
	Timeout time.Duration
	// FollowRedirects makes the forwarder chase 3xx responses itself.
	FollowRedirects bool
	// MaxRedirects caps redirect chasing. Zero means DefaultMaxRedirects.
	MaxRedirects int
	// InsecureSkipVerify disables certificate checks on upstream TLS.
	InsecureSkipVerify bool
	// Transport overrides the round tripper, mainly for tests.
	Transport http.RoundTripper
	Logger    *slog.Logger
}

// Forwarder sends requests to their origin and buffers the answer.
type Forwarder struct {
	client  *http.Client
	timeout time.Duration
	log     *slog.Logger
}

// NewForwarder creates a Forwarder. The transport never consults proxy
// environment variables so forwarded traffic cannot loop back to us.
func NewForwarder(opts Options) *Forwarder {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = DefaultMaxRedirects
	}
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}

	transport := opts.Transport
	if transport == nil {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.Proxy = nil
		t.DisableCompression = true
		//nolint:gosec // G402: opt-in for self-signed origins
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: opts.InsecureSkipVerify}
		transport = t
	}

	follow, maxRedirects := opts.FollowRedirects, opts.MaxRedirects
	client := &http.Client{
		Transport: transport,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if !follow {
				return http.ErrUseLastResponse
			}
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}

	return &Forwarder{client: client, timeout: opts.Timeout, log: log}
}

// Forward performs req against its URL. The returned response carries the
// origin's status, its headers minus hop-by-hop ones, and the full body.
func (f *Forwarder) Forward(ctx context.Context, req *Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	start := time.Now()
	var body io.Reader = http.NoBody
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	outReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, &UpstreamError{Kind: ErrUpstreamTransport, Cause: err}
	}
	copyRequestHeaders(outReq.Header, req.Header)

	resp, err := f.client.Do(outReq)
	if err != nil {
		return nil, f.classify(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, f.classify(ctx, err)
	}

	out := &Response{
		StatusCode: resp.StatusCode,
		Header:     make(http.Header, len(resp.Header)),
		Body:       respBody,
		Duration:   time.Since(start),
	}
	copyHeaders(out.Header, resp.Header)
	removeHopByHopHeaders(out.Header)
	// A HEAD answer declares the length of a body it does not send.
	if len(respBody) == 0 && resp.ContentLength > 0 && out.Header.Get("Content-Length") == "" {
		out.Header.Set("Content-Length", strconv.FormatInt(resp.ContentLength, 10))
	}

	f.log.Debug("forwarded", "method", req.Method, "url", req.URL,
		"status", resp.StatusCode, "bytes", len(respBody), "duration", out.Duration)
	return out, nil
}

func (f *Forwarder) classify(ctx context.Context, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return &UpstreamError{Kind: ErrUpstreamTimeout, Cause: err}
	}
	return &UpstreamError{Kind: ErrUpstreamTransport, Cause: err}
}

// ReadBody reads r fully, failing with ErrPayloadTooLarge past limit bytes.
// A non-positive limit disables the check.
func ReadBody(r io.Reader, limit int64) ([]byte, error) {
	if r == nil {
		return nil, nil
	}
	if limit <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrPayloadTooLarge, limit)
	}
	return data, nil
}
