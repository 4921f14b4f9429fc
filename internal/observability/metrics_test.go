package observability

import (
	"strings"
	"testing"
)

func TestMetricsNilReceiverSafe(t *testing.T) {
	var m *Metrics
	m.EventIngested()
	m.EventDuplicate()
	m.EventsApplied(3)
	m.LedgerDuplicatesSkipped(1)
	m.LeaseContended()
	m.LeasesReclaimed(2)
	m.LeadsDecayed(5)
	m.WorkItemCompleted()
	m.WorkItemFailed()
	m.WorkItemDeadLettered()
	m.AutomationFired("notify_sales")
	if err := m.WritePrometheus(&strings.Builder{}); err != nil {
		t.Fatalf("nil write: %v", err)
	}
}

func TestMetricsExposition(t *testing.T) {
	m := NewMetrics()
	m.EventIngested()
	m.EventIngested()
	m.EventsApplied(4)
	m.LedgerDuplicatesSkipped(0)
	m.AutomationFired("notify_sales")
	m.queueDepth.Set(7, "queued")

	var b strings.Builder
	if err := m.WritePrometheus(&b); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := b.String()

	for _, want := range []string{
		"# TYPE leadflow_events_ingested_total counter",
		"leadflow_events_ingested_total 2.000000",
		"leadflow_events_applied_total 4.000000",
		"leadflow_ledger_duplicates_skipped_total 0.000000",
		`leadflow_automation_fired_total{action="notify_sales"} 1.000000`,
		"# TYPE leadflow_queue_depth gauge",
		`leadflow_queue_depth{status="queued"} 7.000000`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("exposition missing %q:\n%s", want, out)
		}
	}
}

func TestLabelStringEscaping(t *testing.T) {
	got := labelString([]string{"action"}, []string{`say "hi"`})
	want := `{action="say \"hi\""}`
	if got != want {
		t.Fatalf("label: want=%s got=%s", want, got)
	}
	if got := labelString(nil, nil); got != "" {
		t.Fatalf("no labels: want empty got=%q", got)
	}
	if got := labelString([]string{"status"}, nil); got != `{status="unknown"}` {
		t.Fatalf("missing value: got=%q", got)
	}
}
