package anomaly

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/viant/taskgate/internal/clock"
	"github.com/viant/taskgate/internal/logger"
	"github.com/viant/taskgate/service/audit"
	"github.com/viant/taskgate/service/notifier"
	"github.com/viant/taskgate/tracing"
)

// Report is the outcome of RunAllChecks.
type Report struct {
	Checks            []*CheckResult `json:"checks"`
	AnomaliesDetected bool           `json:"anomaliesDetected"`
	SystemHealthy     bool           `json:"systemHealthy"`
	Paused            bool           `json:"paused"`
	CheckedAt         time.Time      `json:"checkedAt"`
}

// Anomalies returns the checks that flagged an anomaly.
func (r *Report) Anomalies() []*CheckResult {
	var ret []*CheckResult
	for _, check := range r.Checks {
		if check.Anomaly {
			ret = append(ret, check)
		}
	}
	return ret
}

// AlertHandler is told about a report containing anomalies. Handlers run in
// their own goroutine; errors and panics are logged.
type AlertHandler func(ctx context.Context, report *Report) error

type namedCheck struct {
	name string
	fn   CheckFunc
}

// Option customises a Monitor.
type Option func(*Monitor)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Monitor) { m.logger = l }
}

// WithCheck registers an additional check.
func WithCheck(name string, fn CheckFunc) Option {
	return func(m *Monitor) { m.checks = append(m.checks, namedCheck{name: name, fn: fn}) }
}

// WithAlertHandler registers an alert handler.
func WithAlertHandler(handler AlertHandler) Option {
	return func(m *Monitor) { m.handlers = append(m.handlers, handler) }
}

// WithMetrics enables the anomaly counter.
func WithMetrics(metrics *tracing.Metrics) Option {
	return func(m *Monitor) { m.metrics = metrics }
}

// Monitor runs checks and owns the pause flag.
type Monitor struct {
	config   Config
	auditor  audit.Service
	logger   *slog.Logger
	metrics  *tracing.Metrics
	checks   []namedCheck
	handlers []AlertHandler

	mux         sync.RWMutex
	paused      bool
	pauseReason string

	reactMu sync.Mutex
	active  map[string]bool

	alerts     sync.WaitGroup
	shutdownCh chan struct{}
	stopOnce   sync.Once
}

// New creates a monitor; the default checks come first, in configuration order.
func New(auditor audit.Service, config Config, opts ...Option) *Monitor {
	m := &Monitor{config: config, auditor: auditor, active: map[string]bool{}, shutdownCh: make(chan struct{})}
	var builtin []namedCheck
	if config.FailureRate.Enabled {
		builtin = append(builtin, namedCheck{name: CheckFailureRate, fn: FailureRateCheck(config.FailureRate)})
	}
	if config.Volume.Enabled {
		builtin = append(builtin, namedCheck{name: CheckVolume, fn: VolumeCheck(config.Volume, clock.Now)})
	}
	for _, opt := range opts {
		opt(m)
	}
	m.checks = append(builtin, m.checks...)
	m.logger = logger.OrDefault(m.logger)
	return m
}

// Evaluate runs every check without side effects. A failing check is
// reported as a non-anomalous result carrying the error message; the first
// error is returned along with the report.
func (m *Monitor) Evaluate(ctx context.Context) (*Report, error) {
	report := &Report{CheckedAt: clock.Now()}
	var firstErr error
	for _, check := range m.checks {
		result, err := check.fn(ctx, m.auditor)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("check %s: %w", check.name, err)
			}
			result = &CheckResult{Name: check.name, Message: "check failed: " + err.Error()}
		}
		if result.Name == "" {
			result.Name = check.name
		}
		report.Checks = append(report.Checks, result)
		if result.Anomaly {
			report.AnomaliesDetected = true
		}
	}
	report.SystemHealthy = !report.AnomaliesDetected
	report.Paused = m.Paused()
	return report, firstErr
}

// RunAllChecks evaluates every check and reacts to anomalies that were not
// flagged by the previous run: it records them, pauses when configured and
// alerts. An anomaly that persists across runs is reported once, so an
// explicit Resume holds until the check clears and trips again.
func (m *Monitor) RunAllChecks(ctx context.Context) (*Report, error) {
	report, err := m.Evaluate(ctx)
	m.reactMu.Lock()
	var fresh []*CheckResult
	current := map[string]bool{}
	for _, check := range report.Anomalies() {
		current[check.Name] = true
		if !m.active[check.Name] {
			fresh = append(fresh, check)
		}
	}
	m.active = current
	m.reactMu.Unlock()
	if len(fresh) > 0 {
		m.onAnomaly(ctx, report, fresh)
	}
	report.Paused = m.Paused()
	return report, err
}

func (m *Monitor) onAnomaly(ctx context.Context, report *Report, fresh []*CheckResult) {
	var names, messages []string
	for _, check := range fresh {
		names = append(names, check.Name)
		messages = append(messages, check.Message)
		m.metrics.Add(ctx, m.metrics.Anomalies, check.Name)
	}
	m.logger.Warn("anomaly detected", "checks", names)
	if _, err := m.auditor.LogSystem(ctx, &audit.SystemPayload{
		Event:   "anomaly_detected",
		Message: strings.Join(messages, "; "),
		Details: map[string]interface{}{"checks": names},
	}); err != nil {
		m.logger.Error("audit anomaly failed", "error", err)
	}
	if m.config.PauseOnAnomaly {
		if err := m.Pause(ctx, "anomaly: "+strings.Join(names, ", ")); err != nil {
			m.logger.Error("pause failed", "error", err)
		}
	}
	for _, handler := range m.handlers {
		m.alerts.Add(1)
		go m.alert(handler, report)
	}
}

func (m *Monitor) alert(handler AlertHandler, report *Report) {
	defer m.alerts.Done()
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("alert handler panicked", "panic", r)
		}
	}()
	if err := handler(context.Background(), report); err != nil {
		m.logger.Error("alert handler failed", "error", err)
	}
}

// Pause engages the kill switch. Pausing an already paused system only logs.
func (m *Monitor) Pause(ctx context.Context, reason string) error {
	m.mux.Lock()
	already := m.paused
	m.paused = true
	if !already {
		m.pauseReason = reason
	}
	m.mux.Unlock()
	if already {
		return nil
	}
	m.logger.Warn("system paused", "reason", reason)
	_, err := m.auditor.LogSystem(ctx, &audit.SystemPayload{Event: "paused", Message: reason})
	return err
}

// Resume releases the kill switch.
func (m *Monitor) Resume(ctx context.Context) error {
	m.mux.Lock()
	was := m.paused
	m.paused = false
	m.pauseReason = ""
	m.mux.Unlock()
	if !was {
		return nil
	}
	m.logger.Info("system resumed")
	_, err := m.auditor.LogSystem(ctx, &audit.SystemPayload{Event: "resumed", Message: "system resumed"})
	return err
}

// Paused reports whether the kill switch is engaged.
func (m *Monitor) Paused() bool {
	m.mux.RLock()
	defer m.mux.RUnlock()
	return m.paused
}

// PauseReason returns why the system is paused.
func (m *Monitor) PauseReason() string {
	m.mux.RLock()
	defer m.mux.RUnlock()
	return m.pauseReason
}

// Start runs checks every Interval until ctx is done or Shutdown is called.
func (m *Monitor) Start(ctx context.Context) error {
	interval := m.config.Interval
	if interval <= 0 {
		interval = DefaultConfig().Interval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.shutdownCh:
			return nil
		case <-ticker.C:
			if _, err := m.RunAllChecks(ctx); err != nil {
				m.logger.Warn("anomaly checks failed", "error", err)
			}
		}
	}
}

// Shutdown stops the loop and waits for running alert handlers.
func (m *Monitor) Shutdown() {
	m.stopOnce.Do(func() { close(m.shutdownCh) })
	m.alerts.Wait()
}

// NotifierAlert adapts a notifier into an alert handler.
func NotifierAlert(n notifier.Notifier) AlertHandler {
	return func(ctx context.Context, report *Report) error {
		var lines []string
		meta := map[string]string{}
		for _, check := range report.Anomalies() {
			lines = append(lines, check.Message)
			meta[check.Name] = fmt.Sprintf("%g/%g", check.Value, check.Threshold)
		}
		return n.Send(ctx, notifier.Notification{
			Title:     "Anomaly detected",
			Message:   strings.Join(lines, "\n"),
			Level:     notifier.LevelCritical,
			Source:    "anomaly.detected",
			Meta:      meta,
			CreatedAt: report.CheckedAt,
		})
	}
}
