package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pretender-dev/pretender/pkg/config"
	"github.com/pretender-dev/pretender/pkg/httputil"
	"github.com/pretender-dev/pretender/pkg/logging"
	"github.com/pretender-dev/pretender/pkg/metrics"
	"github.com/pretender-dev/pretender/pkg/proxy"
	"github.com/pretender-dev/pretender/pkg/rules"
	"github.com/pretender-dev/pretender/pkg/scheduler"
	"github.com/pretender-dev/pretender/pkg/synth"
	"github.com/pretender-dev/pretender/pkg/template"
)

// readHeaderTimeout bounds how long a client may take to send headers.
const readHeaderTimeout = 30 * time.Second

// ErrServerStopped is returned by Start on a server that was stopped.
var ErrServerStopped = errors.New("server stopped")

// Server owns the proxy listener, the optional metrics listener and every
// component behind the dispatcher. A Server runs once.
type Server struct {
	cfg       *config.ServerConfiguration
	log       *slog.Logger
	forwarder Forwarder

	store      *rules.Store
	sched      *scheduler.Scheduler
	metrics    *metrics.Metrics
	ca         *proxy.CAManager
	dispatcher *Dispatcher
	handler    http.Handler

	mu              sync.Mutex
	running         bool
	stopped         bool
	listener        net.Listener
	metricsListener net.Listener
	httpServer      *http.Server
	metricsServer   *http.Server
	watcher         *rules.Watcher
	cancel          context.CancelFunc
	group           *errgroup.Group
	groupCtx        context.Context
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the logger shared by all components.
func WithLogger(log *slog.Logger) ServerOption {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithForwarder replaces the upstream forwarder built from configuration.
func WithForwarder(f Forwarder) ServerOption {
	return func(s *Server) {
		s.forwarder = f
	}
}

// WithMetrics sets the metrics collectors. By default a fresh set is created.
func WithMetrics(m *metrics.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// NewServer builds the dispatch pipeline described by cfg. Nothing listens
// until Start.
func NewServer(cfg *config.ServerConfiguration, opts ...ServerOption) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	s := &Server{cfg: cfg, log: logging.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}

	if cfg.CA.Enabled() {
		ca := proxy.NewCAManager(cfg.CA.Cert, cfg.CA.Key)
		if err := ca.EnsureCA(); err != nil {
			return nil, fmt.Errorf("failed to prepare interception CA: %w", err)
		}
		s.ca = ca
	}

	if s.forwarder == nil {
		s.forwarder = proxy.NewForwarder(proxy.Options{
			Timeout:            cfg.Upstream.Timeout,
			FollowRedirects:    cfg.Upstream.FollowRedirects,
			MaxRedirects:       cfg.Upstream.MaxRedirects,
			InsecureSkipVerify: cfg.Upstream.InsecureSkipVerify,
			Logger:             s.log,
		})
	}

	s.store = rules.NewStore(cfg.RulesFile,
		rules.WithRecheckInterval(cfg.RecheckInterval),
		rules.WithLogger(s.log),
		rules.WithReloadHook(func(set *rules.RuleSet, err error) {
			s.metrics.ObserveReload(set.Len(), err)
		}),
	)

	s.sched = scheduler.New(cfg.Workers, cfg.QueueSize, scheduler.WithLogger(s.log))
	s.metrics.WatchScheduler(func() (int, int) {
		st := s.sched.Stats()
		return st.Queued, int(st.InFlight)
	})

	engine := template.New(template.WithFakerSeed(cfg.FakerSeed))
	s.dispatcher = NewDispatcher(DispatcherOptions{
		Rules:       s.store,
		Synth:       synth.New(engine),
		Forwarder:   s.forwarder,
		Scheduler:   s.sched,
		Noise:       proxy.NewNoiseFilter(cfg.NoisePatterns),
		MaxBodySize: cfg.MaxBodyBytes(),
		ServerName:  cfg.ServerName,
		Metrics:     s.metrics,
		Logger:      s.log,
	})
	s.handler = Chain(s.dispatcher, ChainOptions{
		Logger:     s.log,
		Metrics:    s.metrics,
		ServerName: cfg.ServerName,
	})

	// Intercepted requests re-enter the full chain with an https URL.
	s.dispatcher.connect = proxy.NewConnectHandler(proxy.ConnectOptions{
		CA:    s.ca,
		Inner: s.handler,
		WriteError: func(w http.ResponseWriter, status int, message string) {
			httputil.WriteError(w, status, message, cfg.ServerName)
		},
		Logger: s.log,
	})

	return s, nil
}

// Handler returns the proxy handler including middleware.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Store returns the rule store.
func (s *Server) Store() *rules.Store {
	return s.store
}

// CA returns the interception CA, or nil when CONNECT is tunnelled.
func (s *Server) CA() *proxy.CAManager {
	return s.ca
}

// Addr returns the proxy's listen address once started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// MetricsAddr returns the metrics listen address, or "" when disabled.
func (s *Server) MetricsAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.metricsListener == nil {
		return ""
	}
	return s.metricsListener.Addr().String()
}

// Start binds the listeners and serves in the background. The initial
// rule load happens here so a broken rule file is reported at startup.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("server is already running")
	}
	if s.stopped {
		return ErrServerStopped
	}

	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr(), err)
	}
	var metricsLn net.Listener
	if s.cfg.Metrics.Address != "" {
		metricsLn, err = net.Listen("tcp", s.cfg.Metrics.Address)
		if err != nil {
			_ = ln.Close()
			return fmt.Errorf("failed to listen on %s: %w", s.cfg.Metrics.Address, err)
		}
	}

	// Failures are logged by the store and leave an empty rule set.
	_ = s.store.Reload()

	if s.cfg.Watch {
		w, err := rules.NewWatcher(s.store, s.log)
		if err != nil {
			s.log.Warn("rule file watch disabled, relying on periodic checks", "error", err)
		} else {
			s.watcher = w
		}
	}

	errorLog := slog.NewLogLogger(s.log.Handler(), slog.LevelWarn)
	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          errorLog,
	}

	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	s.cancel = cancel
	s.group = g
	s.groupCtx = gctx
	s.listener = ln

	s.log.Info("proxy listening",
		"addr", ln.Addr().String(),
		"rules_file", s.cfg.RulesFile,
		"workers", s.cfg.Workers,
		"intercept_tls", s.ca != nil)
	g.Go(func() error {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("proxy server: %w", err)
		}
		return nil
	})

	if metricsLn != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", s.metrics.Handler(s.log))
		s.metricsServer = &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: readHeaderTimeout,
			ErrorLog:          errorLog,
		}
		s.metricsListener = metricsLn
		s.log.Info("metrics listening", "addr", metricsLn.Addr().String())
		g.Go(func() error {
			if err := s.metricsServer.Serve(metricsLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	if s.watcher != nil {
		w := s.watcher
		g.Go(func() error {
			w.Run(gctx)
			return nil
		})
	}

	s.running = true
	return nil
}

// Done is closed when a listener fails after Start.
func (s *Server) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.groupCtx == nil {
		return nil
	}
	return s.groupCtx.Done()
}

// Stop stops accepting connections, waits for in-flight requests and
// delayed responses until ctx ends, then closes whatever is left. Delayed
// responses still pending at that point are answered with 503.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil
	}
	s.stopped = true

	if !s.running {
		return s.sched.Shutdown(ctx)
	}
	s.running = false

	var errs []error

	httpErr := s.httpServer.Shutdown(ctx)
	if err := s.sched.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("scheduler drain: %w", err))
	}
	if httpErr != nil {
		errs = append(errs, fmt.Errorf("proxy shutdown: %w", httpErr))
		_ = s.httpServer.Close()
	}

	if s.metricsServer != nil {
		if err := s.metricsServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics shutdown: %w", err))
			_ = s.metricsServer.Close()
		}
	}

	s.cancel()
	if s.watcher != nil {
		if err := s.watcher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("rule watcher close: %w", err))
		}
	}
	if err := s.group.Wait(); err != nil {
		errs = append(errs, err)
	}

	s.log.Info("proxy stopped")
	return errors.Join(errs...)
}

// Run starts the server and blocks until ctx is done or a listener fails,
// then stops it within the configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		s.log.Info("shutting down", "timeout", s.cfg.ShutdownTimeout)
	case <-s.Done():
		s.log.Error("listener failed, shutting down")
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return s.Stop(stopCtx)
}
