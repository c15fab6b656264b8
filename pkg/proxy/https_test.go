package proxy

import (
	"bufio"
	"crypto/tls"
	"crypto/x509"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func proxyClient(t *testing.T, proxyURL string, tlsConfig *tls.Config) *http.Client {
	t.Helper()
	u, err := url.Parse(proxyURL)
	require.NoError(t, err)
	transport := &http.Transport{
		Proxy:           http.ProxyURL(u),
		TLSClientConfig: tlsConfig,
	}
	t.Cleanup(transport.CloseIdleConnections)
	return &http.Client{Transport: transport}
}

func TestConnectTunnel(t *testing.T) {
	upstream := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "origin "+r.URL.Path)
	}))
	defer upstream.Close()

	h := NewConnectHandler(ConnectOptions{})
	assert.False(t, h.Intercepting())
	proxySrv := httptest.NewServer(h)
	defer proxySrv.Close()

	roots := x509.NewCertPool()
	roots.AddCert(upstream.Certificate())
	client := proxyClient(t, proxySrv.URL, &tls.Config{RootCAs: roots})

	resp, err := client.Get(upstream.URL + "/secure")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "origin /secure", string(body))
}

type hijackRecorder struct {
	*httptest.ResponseRecorder
	conn net.Conn
	rw   *bufio.ReadWriter
}

func (h *hijackRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return h.conn, h.rw, nil
}

func TestConnectTunnelKeepsPipelinedBytes(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_, _ = io.Copy(conn, conn)
	}()

	client, server := net.Pipe()
	require.NoError(t, client.SetDeadline(time.Now().Add(5*time.Second)))

	// The server read "early" together with the request head.
	reader := bufio.NewReader(io.MultiReader(strings.NewReader("early"), server))
	_, err = reader.Peek(len("early"))
	require.NoError(t, err)
	w := &hijackRecorder{
		ResponseRecorder: httptest.NewRecorder(),
		conn:             server,
		rw:               bufio.NewReadWriter(reader, bufio.NewWriter(server)),
	}

	r := httptest.NewRequest(http.MethodConnect, "http://placeholder/", nil)
	r.Host = ln.Addr().String()
	done := make(chan struct{})
	go func() {
		defer close(done)
		NewConnectHandler(ConnectOptions{}).ServeHTTP(w, r)
	}()

	established := "HTTP/1.1 200 Connection Established\r\n\r\n"
	head := make([]byte, len(established))
	_, err = io.ReadFull(client, head)
	require.NoError(t, err)
	assert.Equal(t, established, string(head))

	echo := make([]byte, len("early"))
	_, err = io.ReadFull(client, echo)
	require.NoError(t, err)
	assert.Equal(t, "early", string(echo))

	require.NoError(t, client.Close())
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("tunnel did not finish after the client closed")
	}
}

func TestConnectTunnelDialFailure(t *testing.T) {
	var gotStatus int
	var gotMessage string
	h := NewConnectHandler(ConnectOptions{
		WriteError: func(w http.ResponseWriter, status int, message string) {
			gotStatus, gotMessage = status, message
			w.WriteHeader(status)
		},
	})

	r := httptest.NewRequest(http.MethodConnect, "http://placeholder/", nil)
	r.Host = closedPort(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, http.StatusBadGateway, gotStatus)
	assert.Contains(t, gotMessage, "Proxy Error: ")
}

func TestConnectRejectsOtherMethods(t *testing.T) {
	h := NewConnectHandler(ConnectOptions{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://example.com/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestConnectIntercept(t *testing.T) {
	ca := newTestCA(t)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Connection", "close")
		_, _ = io.WriteString(w, r.Method+" "+r.URL.String())
	})
	h := NewConnectHandler(ConnectOptions{CA: ca, Inner: inner})
	assert.True(t, h.Intercepting())
	proxySrv := httptest.NewServer(h)
	defer proxySrv.Close()

	pemBytes, err := ca.CACertPEM()
	require.NoError(t, err)
	roots := x509.NewCertPool()
	require.True(t, roots.AppendCertsFromPEM(pemBytes))
	client := proxyClient(t, proxySrv.URL, &tls.Config{RootCAs: roots})

	// The host never resolves; the session ends at the proxy.
	for _, target := range []string{
		"https://api.example.invalid/users?page=2",
		"https://api.example.invalid:8443/orders",
	} {
		resp, err := client.Get(target)
		require.NoError(t, err, target)
		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "GET "+target, string(body))
	}
}
