package observability

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/yungbote/leadflow-backend/internal/logger"
	"github.com/yungbote/leadflow-backend/internal/repos"
)

// Metrics is the scoring engine's Prometheus surface. Exposition is
// hand-rolled text format; the counters are cheap enough that a client
// library buys nothing here.
type Metrics struct {
	eventsIngested   *Counter
	eventsDuplicate  *Counter
	eventsApplied    *Counter
	ledgerDupSkipped *Counter
	leaseContended   *Counter
	leasesReclaimed  *Counter
	leadsDecayed     *Counter
	itemsCompleted   *Counter
	itemsFailed      *Counter
	itemsDeadLetter  *Counter
	automationFired  *CounterVec
	queueDepth       *GaugeVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		eventsIngested:   NewCounter("leadflow_events_ingested_total", "Events accepted at the ingestion boundary"),
		eventsDuplicate:  NewCounter("leadflow_events_duplicate_total", "Event submissions dropped as duplicates of a known event_id"),
		eventsApplied:    NewCounter("leadflow_events_applied_total", "Events consumed by the scoring applier"),
		ledgerDupSkipped: NewCounter("leadflow_ledger_duplicates_skipped_total", "Ledger inserts absorbed by the (lead_id,event_id) unique constraint"),
		leaseContended:   NewCounter("leadflow_lease_contended_total", "Lease acquisitions that found another holder active"),
		leasesReclaimed:  NewCounter("leadflow_leases_reclaimed_total", "Stale leases cleared by the recovery sweep"),
		leadsDecayed:     NewCounter("leadflow_leads_decayed_total", "Leads discounted by the decay sweep"),
		itemsCompleted:   NewCounter("leadflow_work_items_completed_total", "Work items finished successfully"),
		itemsFailed:      NewCounter("leadflow_work_items_failed_total", "Work item attempts that errored"),
		itemsDeadLetter:  NewCounter("leadflow_work_items_dead_lettered_total", "Work items that exhausted their retries"),
		automationFired:  NewCounterVec("leadflow_automation_fired_total", "Automation executions recorded", []string{"action"}),
		queueDepth:       NewGaugeVec("leadflow_queue_depth", "Work items by status", []string{"status"}),
	}
}

func (m *Metrics) EventIngested() {
	if m == nil {
		return
	}
	m.eventsIngested.Inc()
}

func (m *Metrics) EventDuplicate() {
	if m == nil {
		return
	}
	m.eventsDuplicate.Inc()
}

func (m *Metrics) EventsApplied(n int) {
	if m == nil {
		return
	}
	m.eventsApplied.Add(float64(n))
}

func (m *Metrics) LedgerDuplicatesSkipped(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.ledgerDupSkipped.Add(float64(n))
}

func (m *Metrics) LeaseContended() {
	if m == nil {
		return
	}
	m.leaseContended.Inc()
}

func (m *Metrics) LeasesReclaimed(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.leasesReclaimed.Add(float64(n))
}

func (m *Metrics) LeadsDecayed(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.leadsDecayed.Add(float64(n))
}

func (m *Metrics) WorkItemCompleted() {
	if m == nil {
		return
	}
	m.itemsCompleted.Inc()
}

func (m *Metrics) WorkItemFailed() {
	if m == nil {
		return
	}
	m.itemsFailed.Inc()
}

func (m *Metrics) WorkItemDeadLettered() {
	if m == nil {
		return
	}
	m.itemsDeadLetter.Inc()
}

func (m *Metrics) AutomationFired(action string) {
	if m == nil {
		return
	}
	m.automationFired.Inc(action)
}

// StartQueueDepthPoller samples work-item counts by status on an interval.
func (m *Metrics) StartQueueDepthPoller(ctx context.Context, log *logger.Logger, queue repos.WorkItemRepo, interval time.Duration) {
	if m == nil || queue == nil {
		return
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				counts, err := queue.CountByStatus(ctx, nil)
				if err != nil {
					if log != nil {
						log.Warn("metrics: queue depth query failed", "error", err)
					}
					continue
				}
				for status, count := range counts {
					m.queueDepth.Set(float64(count), status)
				}
			}
		}
	}()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	writers := []interface{ WritePrometheus(io.Writer) error }{
		m.eventsIngested,
		m.eventsDuplicate,
		m.eventsApplied,
		m.ledgerDupSkipped,
		m.leaseContended,
		m.leasesReclaimed,
		m.leadsDecayed,
		m.itemsCompleted,
		m.itemsFailed,
		m.itemsDeadLetter,
		m.automationFired,
		m.queueDepth,
	}
	for _, metric := range writers {
		if err := metric.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

// ---- lightweight metric primitives (Prometheus exposition) ----

type Counter struct {
	name string
	help string
	mu   sync.RWMutex
	val  float64
}

func NewCounter(name, help string) *Counter {
	return &Counter{name: name, help: help}
}

func (c *Counter) Inc() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.val++
	c.mu.Unlock()
}

func (c *Counter) Add(v float64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.val += v
	c.mu.Unlock()
}

func (c *Counter) Value() float64 {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.val
}

func (c *Counter) WritePrometheus(w io.Writer) error {
	if c == nil {
		return nil
	}
	if _, err := fmt.Fprintf(w, "# HELP %s %s\n", c.name, c.help); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "# TYPE %s counter\n", c.name); err != nil {
		return err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, err := fmt.Fprintf(w, "%s %f\n", c.name, c.val)
	return err
}

type CounterVec struct {
	name       string
	help       string
	labelNames []string
	mu         sync.RWMutex
	values     map[string]float64
}

func NewCounterVec(name, help string, labels []string) *CounterVec {
	return &CounterVec{name: name, help: help, labelNames: labels, values: map[string]float64{}}
}

func (c *CounterVec) Inc(values ...string) {
	if c == nil {
		return
	}
	lbl := labelString(c.labelNames, values)
	c.mu.Lock()
	c.values[lbl]++
	c.mu.Unlock()
}

func (c *CounterVec) WritePrometheus(w io.Writer) error {
	if c == nil {
		return nil
	}
	if _, err := fmt.Fprintf(w, "# HELP %s %s\n", c.name, c.help); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "# TYPE %s counter\n", c.name); err != nil {
		return err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for k, v := range c.values {
		if _, err := fmt.Fprintf(w, "%s%s %f\n", c.name, k, v); err != nil {
			return err
		}
	}
	return nil
}

type Gauge struct {
	name string
	help string
	mu   sync.RWMutex
	val  float64
}

func NewGauge(name, help string) *Gauge {
	return &Gauge{name: name, help: help}
}

func (g *Gauge) Set(v float64) {
	if g == nil {
		return
	}
	g.mu.Lock()
	g.val = v
	g.mu.Unlock()
}

func (g *Gauge) WritePrometheus(w io.Writer) error {
	if g == nil {
		return nil
	}
	if _, err := fmt.Fprintf(w, "# HELP %s %s\n", g.name, g.help); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "# TYPE %s gauge\n", g.name); err != nil {
		return err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, err := fmt.Fprintf(w, "%s %f\n", g.name, g.val)
	return err
}

type GaugeVec struct {
	name       string
	help       string
	labelNames []string
	mu         sync.RWMutex
	values     map[string]float64
}

func NewGaugeVec(name, help string, labels []string) *GaugeVec {
	return &GaugeVec{name: name, help: help, labelNames: labels, values: map[string]float64{}}
}

func (g *GaugeVec) Set(v float64, values ...string) {
	if g == nil {
		return
	}
	lbl := labelString(g.labelNames, values)
	g.mu.Lock()
	g.values[lbl] = v
	g.mu.Unlock()
}

func (g *GaugeVec) WritePrometheus(w io.Writer) error {
	if g == nil {
		return nil
	}
	if _, err := fmt.Fprintf(w, "# HELP %s %s\n", g.name, g.help); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "# TYPE %s gauge\n", g.name); err != nil {
		return err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	for k, v := range g.values {
		if _, err := fmt.Fprintf(w, "%s%s %f\n", g.name, k, v); err != nil {
			return err
		}
	}
	return nil
}

func labelString(names []string, values []string) string {
	if len(names) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("{")
	for i, name := range names {
		if i > 0 {
			b.WriteString(",")
		}
		val := "unknown"
		if i < len(values) {
			val = values[i]
		}
		b.WriteString(name)
		b.WriteString("=\"")
		b.WriteString(escapeLabel(val))
		b.WriteString("\"")
	}
	b.WriteString("}")
	return b.String()
}

func escapeLabel(v string) string {
	if v == "" {
		return ""
	}
	v = strings.ReplaceAll(v, "\\", "\\\\")
	v = strings.ReplaceAll(v, "\"", "\\\"")
	v = strings.ReplaceAll(v, "\n", "\\n")
	return v
}
