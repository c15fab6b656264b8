package engine

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"

	"github.com/felixge/httpsnoop"
	"github.com/justinas/alice"

	"github.com/pretender-dev/pretender/pkg/httputil"
	"github.com/pretender-dev/pretender/pkg/logging"
	"github.com/pretender-dev/pretender/pkg/metrics"
)

// ChainOptions configures the middleware wrapped around a Dispatcher.
type ChainOptions struct {
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
	ServerName string
}

// Chain wraps h with the middleware stack.
// The order is: access log -> recover -> h
func Chain(h http.Handler, opts ChainOptions) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	return alice.New(
		accessLog(log, opts.Metrics),
		recoverPanics(log, opts.ServerName),
	).Then(h)
}

type stateKey struct{}

// requestState carries what the dispatcher decided back to the access
// log. It is only touched by the goroutine serving the request.
type requestState struct {
	outcome string
	rule    int
}

func withState(ctx context.Context) (context.Context, *requestState) {
	st := &requestState{rule: -1}
	return context.WithValue(ctx, stateKey{}, st), st
}

func stateFrom(ctx context.Context) *requestState {
	st, _ := ctx.Value(stateKey{}).(*requestState)
	return st
}

func setOutcome(ctx context.Context, outcome string) {
	if st := stateFrom(ctx); st != nil {
		st.outcome = outcome
	}
}

func setRule(ctx context.Context, index int) {
	if st := stateFrom(ctx); st != nil {
		st.rule = index
	}
}

// recoverPanics answers a panicking request with the generic 500 body
// unless a response was already started. The stack goes to the log only.
func recoverPanics(log *slog.Logger, serverName string) alice.Constructor {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := false
			ww := httpsnoop.Wrap(w, httpsnoop.Hooks{
				WriteHeader: func(next httpsnoop.WriteHeaderFunc) httpsnoop.WriteHeaderFunc {
					return func(code int) {
						started = true
						next(code)
					}
				},
				Write: func(next httpsnoop.WriteFunc) httpsnoop.WriteFunc {
					return func(b []byte) (int, error) {
						started = true
						return next(b)
					}
				},
				Hijack: func(next httpsnoop.HijackFunc) httpsnoop.HijackFunc {
					return func() (net.Conn, *bufio.ReadWriter, error) {
						started = true
						return next()
					}
				},
			})

			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				setOutcome(r.Context(), metrics.OutcomeErrored)
				log.Error("panic while handling request",
					"method", r.Method,
					"url", r.URL.String(),
					"panic", fmt.Sprint(rec),
					"stack", string(debug.Stack()))
				if !started {
					httputil.WriteError(w, http.StatusInternalServerError, msgInternal, serverName)
				}
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
