package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCountersSurfaceOnMetricsEndpoint(t *testing.T) {
	reg, handler := New()

	reg.CommandError("команда неполная")
	reg.SessionStarted()
	reg.FanoutObserved(3)
	reg.InboxDropped("timeout")
	reg.LivenessTimeout()
	reg.SessionEnded()
	reg.QuoteGenerated()
	reg.QuoteDroppedBus()
	reg.AuditDropped()

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	body := rec.Body.String()
	for _, want := range []string{
		"quoteserver_command_errors_total",
		"quoteserver_sessions_started_total",
		"quoteserver_sessions_active",
		"quoteserver_fanout_delivered_total",
		"quoteserver_inbox_dropped_total",
		"quoteserver_liveness_timeouts_total",
		"quoteserver_quotes_generated_total",
		"quoteserver_quotes_dropped_bus_total",
		"quoteserver_audit_dropped_total",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected metrics output to contain %q", want)
		}
	}
}
