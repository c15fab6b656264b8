package testing

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pretender-dev/pretender/pkg/config"
	"github.com/pretender-dev/pretender/pkg/engine"
	"github.com/pretender-dev/pretender/pkg/logging"
	"github.com/pretender-dev/pretender/pkg/metrics"
)

const stopTimeout = 5 * time.Second

// Proxy is a pretender proxy scoped to one test.
type Proxy struct {
	t       testing.TB
	path    string
	metrics *metrics.Metrics

	mu      sync.Mutex
	rules   []ruleDoc
	server  *engine.Server
	started bool
	stopped bool
	client  *http.Client
}

// New creates a proxy for t. Rules are added with Mock and served after
// Start. The proxy is stopped when the test finishes.
func New(t testing.TB) *Proxy {
	t.Helper()
	p := &Proxy{
		t:       t,
		path:    filepath.Join(t.TempDir(), "mock_config.yaml"),
		metrics: metrics.New(),
	}
	t.Cleanup(p.Stop)
	return p
}

// Start writes the rule file, starts the proxy and returns its address.
// Calling Start again returns the same address.
func (p *Proxy) Start() string {
	p.t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return p.server.Addr()
	}
	if err := p.writeRulesLocked(); err != nil {
		p.t.Fatalf("pretender: write rules: %v", err)
	}

	cfg := config.Default()
	cfg.Host = "127.0.0.1"
	cfg.Port = 0
	cfg.RulesFile = p.path
	cfg.Watch = false
	cfg.RecheckInterval = 0
	cfg.ShutdownTimeout = stopTimeout

	srv, err := engine.NewServer(cfg,
		engine.WithLogger(logging.Nop()),
		engine.WithMetrics(p.metrics),
	)
	if err != nil {
		p.t.Fatalf("pretender: create proxy: %v", err)
	}
	if err := srv.Start(); err != nil {
		p.t.Fatalf("pretender: start proxy: %v", err)
	}

	p.server = srv
	p.started = true
	transport := &http.Transport{Proxy: http.ProxyURL(&url.URL{Scheme: "http", Host: srv.Addr()})}
	p.client = &http.Client{Transport: transport, Timeout: 30 * time.Second}
	return srv.Addr()
}

// Stop shuts the proxy down, waiting for delayed responses to finish.
func (p *Proxy) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started || p.stopped {
		return
	}
	p.stopped = true
	if t, ok := p.client.Transport.(*http.Transport); ok {
		t.CloseIdleConnections()
	}

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := p.server.Stop(ctx); err != nil {
		p.t.Errorf("pretender: stop proxy: %v", err)
	}
}

// Addr returns the proxy's host:port, or "" before Start.
func (p *Proxy) Addr() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.server == nil {
		return ""
	}
	return p.server.Addr()
}

// URL returns the proxy address as an http URL, suitable for
// http.ProxyURL or the HTTP_PROXY variable.
func (p *Proxy) URL() *url.URL {
	return &url.URL{Scheme: "http", Host: p.Addr()}
}

// Client returns an http.Client that sends every request through the
// proxy. It returns nil before Start.
func (p *Proxy) Client() *http.Client {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.client
}

// Server returns the underlying engine.Server.
// Most tests should not need this.
func (p *Proxy) Server() *engine.Server {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.server
}

// RulesFile returns the path of the generated rule file.
func (p *Proxy) RulesFile() string {
	return p.path
}

// Mock starts a rule for method and a URL regular expression. The rule is
// added by Reply.
func (p *Proxy) Mock(method, urlPattern string) *RuleBuilder {
	return &RuleBuilder{
		proxy: p,
		rule: ruleDoc{
			URL:      urlPattern,
			Method:   method,
			Response: responseDoc{Code: http.StatusOK},
		},
	}
}

// Reset removes every rule. Requests are forwarded upstream afterwards.
func (p *Proxy) Reset() {
	p.t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()

	p.rules = nil
	if err := p.syncLocked(); err != nil {
		p.t.Fatalf("pretender: reset rules: %v", err)
	}
}

func (p *Proxy) addRule(rule ruleDoc) {
	p.t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()

	p.rules = append(p.rules, rule)
	if err := p.syncLocked(); err != nil {
		p.t.Fatalf("pretender: add rule %s %s: %v", rule.Method, rule.URL, err)
	}
}

// syncLocked rewrites the rule file of a running proxy and reloads it.
func (p *Proxy) syncLocked() error {
	if !p.started || p.stopped {
		return nil
	}
	if err := p.writeRulesLocked(); err != nil {
		return err
	}
	return p.server.Store().Reload()
}

func (p *Proxy) writeRulesLocked() error {
	rules := p.rules
	if rules == nil {
		rules = []ruleDoc{}
	}
	data, err := yaml.Marshal(fileDoc{Mocks: rules})
	if err != nil {
		return fmt.Errorf("encode rules: %w", err)
	}
	return os.WriteFile(p.path, data, 0o600)
}
