package engine

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/pretender-dev/pretender/pkg/httputil"
	"github.com/pretender-dev/pretender/pkg/logging"
	"github.com/pretender-dev/pretender/pkg/metrics"
	"github.com/pretender-dev/pretender/pkg/proxy"
	"github.com/pretender-dev/pretender/pkg/rules"
	"github.com/pretender-dev/pretender/pkg/scheduler"
	"github.com/pretender-dev/pretender/pkg/synth"
)

// Client-visible messages for classified failures.
const (
	msgGatewayTimeout     = "Gateway Timeout"
	msgProxyError         = "Proxy Error: "
	msgInternal           = "Internal Server Error"
	msgMockResponse       = "Mock Response Error"
	msgPayloadTooLarge    = "Payload Too Large"
	msgServiceUnavailable = "Service Unavailable"
	msgMethodNotAllowed   = "Method Not Allowed"
)

// RuleMatcher classifies a request against the current rules.
// *rules.Store implements it.
type RuleMatcher interface {
	Match(url, method string, headers http.Header) rules.MatchOutcome
}

// Forwarder relays a request to its origin. *proxy.Forwarder implements it.
type Forwarder interface {
	Forward(ctx context.Context, req *proxy.Request) (*proxy.Response, error)
}

// DispatcherOptions configures a Dispatcher. Rules, Synth and Forwarder
// are required.
type DispatcherOptions struct {
	Rules     RuleMatcher
	Synth     *synth.Synthesizer
	Forwarder Forwarder
	// Scheduler runs delayed mocks. When nil the delay is served on the
	// request goroutine.
	Scheduler *scheduler.Scheduler
	Noise     *proxy.NoiseFilter
	// Connect handles CONNECT requests. When nil they are refused with 405.
	Connect     http.Handler
	MaxBodySize int64
	ServerName  string
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
}

// Dispatcher is the per-request pipeline: classify, short-circuit noise,
// match, then mock, reject or forward.
type Dispatcher struct {
	rules      RuleMatcher
	synth      *synth.Synthesizer
	forwarder  Forwarder
	sched      *scheduler.Scheduler
	noise      *proxy.NoiseFilter
	connect    http.Handler
	maxBody    int64
	serverName string
	metrics    *metrics.Metrics
	log        *slog.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	d := &Dispatcher{
		rules:      opts.Rules,
		synth:      opts.Synth,
		forwarder:  opts.Forwarder,
		sched:      opts.Scheduler,
		noise:      opts.Noise,
		connect:    opts.Connect,
		maxBody:    opts.MaxBodySize,
		serverName: opts.ServerName,
		metrics:    opts.Metrics,
		log:        opts.Logger,
	}
	if d.synth == nil {
		d.synth = synth.New(nil)
	}
	if d.maxBody <= 0 {
		d.maxBody = proxy.DefaultMaxBodySize
	}
	if d.log == nil {
		d.log = logging.Nop()
	}
	return d
}

// ServeHTTP implements http.Handler.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodConnect {
		d.serveConnect(w, r)
		return
	}

	target := proxy.TargetURL(r)
	if d.noise.IsNoise(target) {
		setOutcome(r.Context(), metrics.OutcomeNoise)
		d.log.Debug("noise request suppressed", "url", target)
		httputil.WriteNotFound(w)
		return
	}

	switch o := d.rules.Match(target, r.Method, r.Header).(type) {
	case rules.HeaderRejected:
		setOutcome(r.Context(), metrics.OutcomeRejected)
		setRule(r.Context(), o.Rule.Index)
		d.log.Info("header validation failed",
			"url", target, "rule", o.Rule.String(), "header", o.Header, "pattern", o.Pattern)
		httputil.WriteUnauthorized(w, o.Message())
	case rules.Matched:
		setRule(r.Context(), o.Rule.Index)
		d.serveMock(w, r, o)
	default:
		d.serveForward(w, r, target)
	}
}

func (d *Dispatcher) serveConnect(w http.ResponseWriter, r *http.Request) {
	if d.connect == nil {
		setOutcome(r.Context(), metrics.OutcomeErrored)
		d.writeError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
		return
	}
	setOutcome(r.Context(), metrics.OutcomeTunnelled)
	d.connect.ServeHTTP(w, r)
}

func (d *Dispatcher) serveMock(w http.ResponseWriter, r *http.Request, m rules.Matched) {
	resp := m.Response()
	if !resp.Delayed {
		result, err := d.synth.Render(resp)
		d.writeMock(w, r, m.Rule, result, err)
		return
	}

	result, err := d.renderDelayed(r.Context(), resp)
	if errors.Is(err, errDelayAbandoned) {
		setOutcome(r.Context(), metrics.OutcomeErrored)
		if r.Context().Err() != nil {
			// Client already gone; nothing can be delivered.
			return
		}
		d.log.Warn("delayed mock abandoned", "rule", m.Rule.String())
		d.writeError(w, http.StatusServiceUnavailable, msgServiceUnavailable)
		return
	}
	d.writeMock(w, r, m.Rule, result, err)
}

// errDelayAbandoned means a delayed render never ran: the scheduler shut
// down, or ctx ended before the task could be queued.
var errDelayAbandoned = errors.New("delayed render abandoned")

// renderDelayed renders resp once its delay has passed.
func (d *Dispatcher) renderDelayed(ctx context.Context, resp rules.Response) (synth.Result, error) {
	if d.sched == nil {
		timer := time.NewTimer(resp.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return synth.Result{}, errDelayAbandoned
		}
		return d.synth.Render(resp)
	}

	var (
		result    synth.Result
		renderErr error
	)
	h, err := d.sched.Submit(ctx, resp.Delay, func() {
		result, renderErr = d.synth.Render(resp)
	})
	if err != nil {
		if !errors.Is(err, scheduler.ErrSchedulerClosed) && ctx.Err() == nil {
			d.log.Error("failed to schedule delayed mock", "error", err)
		}
		return synth.Result{}, errDelayAbandoned
	}
	<-h.Done()
	if !h.Ran() {
		return synth.Result{}, errDelayAbandoned
	}
	return result, renderErr
}

func (d *Dispatcher) writeMock(w http.ResponseWriter, r *http.Request, rule *rules.Rule, result synth.Result, err error) {
	if err != nil {
		setOutcome(r.Context(), metrics.OutcomeErrored)
		d.log.Error("failed to render mock response", "rule", rule.String(), "error", err)
		d.writeError(w, http.StatusInternalServerError, msgMockResponse)
		return
	}
	setOutcome(r.Context(), metrics.OutcomeMocked)
	d.log.Debug("mocked", "rule", rule.String(), "status", result.Status)
	httputil.WriteBody(w, result.Status, synth.ContentType, result.Body)
}

func (d *Dispatcher) serveForward(w http.ResponseWriter, r *http.Request, target string) {
	body, err := proxy.ReadBody(r.Body, d.maxBody)
	if err != nil {
		setOutcome(r.Context(), metrics.OutcomeErrored)
		if errors.Is(err, proxy.ErrPayloadTooLarge) {
			d.log.Info("request body too large", "url", target, "limit", d.maxBody)
			d.writeError(w, http.StatusRequestEntityTooLarge, msgPayloadTooLarge)
			return
		}
		d.log.Warn("failed to read request body", "url", target, "error", err)
		d.writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}

	start := time.Now()
	resp, err := d.forwarder.Forward(r.Context(), proxy.NewRequest(r, body))
	if err != nil {
		setOutcome(r.Context(), metrics.OutcomeErrored)
		d.writeUpstreamError(w, target, err, time.Since(start))
		return
	}

	d.metrics.ObserveUpstream(metrics.UpstreamOK, resp.Duration)
	setOutcome(r.Context(), metrics.OutcomeForwarded)
	d.log.Debug("forwarded", "url", target, "status", resp.StatusCode, "upstream_duration", resp.Duration)
	httputil.WriteRelayed(w, r.Method, resp.StatusCode, resp.Header, resp.Body)
}

func (d *Dispatcher) writeUpstreamError(w http.ResponseWriter, target string, err error, elapsed time.Duration) {
	var upErr *proxy.UpstreamError
	switch {
	case errors.Is(err, proxy.ErrUpstreamTimeout):
		d.metrics.ObserveUpstream(metrics.UpstreamTimeout, elapsed)
		d.log.Warn("upstream timed out", "url", target, "elapsed", elapsed)
		d.writeError(w, http.StatusGatewayTimeout, msgGatewayTimeout)
	case errors.As(err, &upErr):
		d.metrics.ObserveUpstream(metrics.UpstreamError, elapsed)
		d.log.Warn("upstream request failed", "url", target, "error", upErr.Cause)
		d.writeError(w, http.StatusBadGateway, msgProxyError+upErr.Cause.Error())
	default:
		d.metrics.ObserveUpstream(metrics.UpstreamError, elapsed)
		d.log.Error("forwarding failed", "url", target, "error", err)
		d.writeError(w, http.StatusInternalServerError, msgInternal)
	}
}

func (d *Dispatcher) writeError(w http.ResponseWriter, status int, message string) {
	httputil.WriteError(w, status, message, d.serverName)
}
