package testing

import (
	"testing"
	"time"

	"github.com/pretender-dev/pretender/pkg/metrics"
)

const requestsMetric = "pretender_requests_total"

// settle bounds how long assertions wait for counters to catch up. A
// request is counted after its response has been written.
const settle = time.Second

// Served returns how many requests the proxy answered with the given
// outcome, such as metrics.OutcomeMocked or metrics.OutcomeForwarded.
func (p *Proxy) Served(outcome string) int {
	families, err := p.metrics.Registry().Gather()
	if err != nil {
		p.t.Errorf("pretender: gather metrics: %v", err)
		return 0
	}
	total := 0
	for _, mf := range families {
		if mf.GetName() != requestsMetric {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "outcome" && l.GetValue() == outcome {
					total += int(m.GetCounter().GetValue())
				}
			}
		}
	}
	return total
}

// AssertServed asserts that exactly n requests ended with outcome.
func (p *Proxy) AssertServed(t testing.TB, outcome string, n int) {
	t.Helper()

	deadline := time.Now().Add(settle)
	got := p.Served(outcome)
	for got != n && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
		got = p.Served(outcome)
	}
	if got != n {
		t.Errorf("expected %d %s requests, got %d", n, outcome, got)
	}
}

// AssertMocked asserts that exactly n requests were answered by a rule.
func (p *Proxy) AssertMocked(t testing.TB, n int) {
	t.Helper()
	p.AssertServed(t, metrics.OutcomeMocked, n)
}

// AssertRejected asserts that exactly n requests failed a header constraint.
func (p *Proxy) AssertRejected(t testing.TB, n int) {
	t.Helper()
	p.AssertServed(t, metrics.OutcomeRejected, n)
}

// AssertForwarded asserts that exactly n requests were sent upstream.
func (p *Proxy) AssertForwarded(t testing.TB, n int) {
	t.Helper()
	p.AssertServed(t, metrics.OutcomeForwarded, n)
}
