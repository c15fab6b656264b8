package engine

import (
	"log/slog"
	"net/http"

	"github.com/felixge/httpsnoop"
	"github.com/justinas/alice"

	"github.com/pretender-dev/pretender/pkg/metrics"
	"github.com/pretender-dev/pretender/pkg/proxy"
)

// accessLog writes one record per request and feeds the request metrics.
// Noise requests are logged at debug level.
func accessLog(log *slog.Logger, m *metrics.Metrics) alice.Constructor {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, st := withState(r.Context())
			r = r.WithContext(ctx)

			mt := httpsnoop.CaptureMetrics(next, w, r)

			outcome := st.outcome
			if outcome == "" {
				outcome = metrics.OutcomeErrored
			}
			m.ObserveRequest(outcome, r.Method, mt.Duration)

			level := slog.LevelInfo
			if outcome == metrics.OutcomeNoise {
				level = slog.LevelDebug
			}
			if !log.Enabled(ctx, level) {
				return
			}

			attrs := []any{
				"method", r.Method,
				"url", requestTarget(r),
				"status", mt.Code,
				"bytes", mt.Written,
				"duration", mt.Duration,
				"outcome", outcome,
			}
			if st.rule >= 0 {
				attrs = append(attrs, "rule", st.rule)
			}
			log.Log(ctx, level, "request", attrs...)
		})
	}
}

func requestTarget(r *http.Request) string {
	if r.Method == http.MethodConnect {
		return r.Host
	}
	return proxy.TargetURL(r)
}
