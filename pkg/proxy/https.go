package proxy

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pretender-dev/pretender/pkg/logging"
)

// DefaultDialTimeout bounds the TCP connect of a tunnel.
const DefaultDialTimeout = 30 * time.Second

// ErrorWriter renders an error response before a connection is hijacked.
type ErrorWriter func(w http.ResponseWriter, status int, message string)

// ConnectOptions configures a ConnectHandler.
type ConnectOptions struct {
	// CA enables TLS interception. Without it CONNECT is tunnelled.
	CA *CAManager
	// Inner serves the requests read from an intercepted session. Their
	// URL is absolute with an https scheme.
	Inner http.Handler
	// DialTimeout bounds tunnel connects. Zero means DefaultDialTimeout.
	DialTimeout time.Duration
	// WriteError renders failures. Defaults to http.Error.
	WriteError ErrorWriter
	Logger     *slog.Logger
}

// ConnectHandler answers CONNECT requests. It either splices the client
// to the target or terminates TLS with a host certificate signed by the
// CA and hands every inner request to Inner.
type ConnectHandler struct {
	ca          *CAManager
	inner       http.Handler
	dialTimeout time.Duration
	writeError  ErrorWriter
	log         *slog.Logger
}

// NewConnectHandler creates a ConnectHandler.
func NewConnectHandler(opts ConnectOptions) *ConnectHandler {
	h := &ConnectHandler{
		ca:          opts.CA,
		inner:       opts.Inner,
		dialTimeout: opts.DialTimeout,
		writeError:  opts.WriteError,
		log:         opts.Logger,
	}
	if h.dialTimeout <= 0 {
		h.dialTimeout = DefaultDialTimeout
	}
	if h.writeError == nil {
		h.writeError = func(w http.ResponseWriter, status int, message string) {
			http.Error(w, message, status)
		}
	}
	if h.log == nil {
		h.log = logging.Nop()
	}
	return h
}

// Intercepting reports whether CONNECT sessions are decrypted.
func (h *ConnectHandler) Intercepting() bool {
	return h.ca != nil && h.inner != nil
}

func (h *ConnectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodConnect {
		h.writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}

	host := r.Host
	if host == "" {
		host = r.URL.Host
	}
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, "443")
	}

	if !h.Intercepting() {
		h.tunnel(w, r, host)
		return
	}
	h.intercept(w, host)
}

// intercept terminates the client's TLS session locally.
func (h *ConnectHandler) intercept(w http.ResponseWriter, host string) {
	hostOnly, _, _ := net.SplitHostPort(host)

	// Fail before hijacking so the client still gets a proper response.
	if _, err := h.ca.GenerateHostCert(hostOnly); err != nil {
		h.log.Error("host certificate failed", "host", hostOnly, "error", err)
		h.writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	clientConn, ok := h.hijack(w)
	if !ok {
		return
	}
	if _, err := clientConn.Write([]byte("HTTP/1.1 200 Connection Established\r\n\r\n")); err != nil {
		h.log.Debug("CONNECT response failed", "host", host, "error", err)
		_ = clientConn.Close()
		return
	}

	//nolint:gosec // G402: clients of a local proxy negotiate whatever they support
	tlsConn := tls.Server(clientConn, &tls.Config{
		GetCertificate: func(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
			name := hello.ServerName
			if name == "" {
				name = hostOnly
			}
			pair, err := h.ca.GenerateHostCert(name)
			if err != nil {
				return nil, err
			}
			return pair.TLSCertificate(), nil
		},
		NextProtos: []string{"http/1.1"},
	})

	h.log.Debug("CONNECT intercepted", "host", host)
	h.serveSession(tlsConn, host)
}

// serveSession runs an HTTP/1.1 server over a single decrypted connection.
func (h *ConnectHandler) serveSession(conn net.Conn, host string) {
	authority := host
	if strings.HasSuffix(authority, ":443") {
		authority = strings.TrimSuffix(authority, ":443")
	}

	srv := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.URL.Scheme = "https"
			if r.Host != "" {
				r.URL.Host = r.Host
			} else {
				r.URL.Host = authority
			}
			h.inner.ServeHTTP(w, r)
		}),
		ReadHeaderTimeout: h.dialTimeout,
		ErrorLog:          slog.NewLogLogger(h.log.Handler(), slog.LevelDebug),
	}

	ln := newSingleConnListener(conn)
	if err := srv.Serve(ln); err != nil && !errors.Is(err, net.ErrClosed) && !errors.Is(err, http.ErrServerClosed) {
		h.log.Debug("intercepted session ended", "host", host, "error", err)
	}
	_ = srv.Close()
}

// tunnel splices client and target without looking at the bytes.
func (h *ConnectHandler) tunnel(w http.ResponseWriter, r *http.Request, host string) {
	ctx, cancel := context.WithTimeout(r.Context(), h.dialTimeout)
	defer cancel()

	var dialer net.Dialer
	targetConn, err := dialer.DialContext(ctx, "tcp", host)
	if err != nil {
		h.log.Warn("tunnel connect failed", "host", host, "error", err)
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			h.writeError(w, http.StatusGatewayTimeout, "Gateway Timeout")
			return
		}
		h.writeError(w, http.StatusBadGateway, "Proxy Error: "+err.Error())
		return
	}

	clientConn, ok := h.hijack(w)
	if !ok {
		_ = targetConn.Close()
		return
	}
	if _, err := clientConn.Write([]byte("HTTP/1.1 200 Connection Established\r\n\r\n")); err != nil {
		h.log.Debug("CONNECT response failed", "host", host, "error", err)
		_ = clientConn.Close()
		_ = targetConn.Close()
		return
	}

	h.log.Debug("CONNECT tunnelled", "host", host)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = io.Copy(targetConn, clientConn)
		_ = targetConn.Close()
	}()
	go func() {
		defer wg.Done()
		_, _ = io.Copy(clientConn, targetConn)
		_ = clientConn.Close()
	}()
	wg.Wait()
}

func (h *ConnectHandler) hijack(w http.ResponseWriter) (net.Conn, bool) {
	hijacker, ok := w.(http.Hijacker)
	if !ok {
		h.log.Error("response writer does not support hijacking")
		h.writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return nil, false
	}
	conn, rw, err := hijacker.Hijack()
	if err != nil {
		h.log.Error("hijack failed", "error", err)
		return nil, false
	}
	// Bytes the client sent right behind the CONNECT request may already
	// sit in the server's read buffer.
	if rw != nil && rw.Reader.Buffered() > 0 {
		early, _ := rw.Reader.Peek(rw.Reader.Buffered())
		conn = &bufferedConn{Conn: conn, r: io.MultiReader(bytes.NewReader(bytes.Clone(early)), conn)}
	}
	return conn, true
}

// bufferedConn replays bytes read ahead before the hijack.
type bufferedConn struct {
	net.Conn
	r io.Reader
}

func (c *bufferedConn) Read(p []byte) (int, error) {
	return c.r.Read(p)
}

// singleConnListener hands out one connection, then blocks until that
// connection is closed so http.Server.Serve returns afterwards.
type singleConnListener struct {
	conn net.Conn
	once sync.Once
	done chan struct{}
}

func newSingleConnListener(conn net.Conn) *singleConnListener {
	return &singleConnListener{conn: conn, done: make(chan struct{})}
}

func (l *singleConnListener) Accept() (net.Conn, error) {
	var c net.Conn
	l.once.Do(func() {
		c = &closeNotifyConn{Conn: l.conn, done: l.done}
	})
	if c != nil {
		return c, nil
	}
	<-l.done
	return nil, net.ErrClosed
}

func (l *singleConnListener) Close() error {
	return nil
}

func (l *singleConnListener) Addr() net.Addr {
	return l.conn.LocalAddr()
}

type closeNotifyConn struct {
	net.Conn
	once sync.Once
	done chan struct{}
}

func (c *closeNotifyConn) Close() error {
	err := c.Conn.Close()
	c.once.Do(func() { close(c.done) })
	return err
}
