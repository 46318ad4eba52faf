package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/jrsteele09/buddy-auth"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Authentication metrics
	AuthAttemptsTotal    metric.Int64Counter
	EvaluatorFaultsTotal metric.Int64Counter
	AccessDecisionsTotal metric.Int64Counter
	AdminCommandsTotal   metric.Int64Counter

	// Session metrics
	SessionTransitionsTotal metric.Int64Counter

	// Token metrics
	TokensIssuedTotal  metric.Int64Counter
	TokensRevokedTotal metric.Int64Counter
	TokensPurgedTotal  metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = newMetrics(otel.GetMeterProvider().Meter(meterName))
	})
	return metrics
}

// newMetrics creates and registers all metric instruments
func newMetrics(meter metric.Meter) *Metrics {
	m := &Metrics{}

	m.AuthAttemptsTotal, _ = meter.Int64Counter(
		"buddy.auth.attempts.total",
		metric.WithDescription("Total number of authentication attempts"),
		metric.WithUnit("{attempt}"),
	)

	m.EvaluatorFaultsTotal, _ = meter.Int64Counter(
		"buddy.auth.evaluator.faults.total",
		metric.WithDescription("Total number of credential evaluator faults"),
		metric.WithUnit("{fault}"),
	)

	m.AccessDecisionsTotal, _ = meter.Int64Counter(
		"buddy.access.decisions.total",
		metric.WithDescription("Total number of access policy decisions"),
		metric.WithUnit("{decision}"),
	)

	m.AdminCommandsTotal, _ = meter.Int64Counter(
		"buddy.access.admin_commands.total",
		metric.WithDescription("Total number of dispatched admin commands"),
		metric.WithUnit("{command}"),
	)

	m.SessionTransitionsTotal, _ = meter.Int64Counter(
		"buddy.sessions.transitions.total",
		metric.WithDescription("Total number of session lifecycle transitions"),
		metric.WithUnit("{transition}"),
	)

	m.TokensIssuedTotal, _ = meter.Int64Counter(
		"buddy.tokens.issued.total",
		metric.WithDescription("Total number of session tokens issued"),
		metric.WithUnit("{token}"),
	)

	m.TokensRevokedTotal, _ = meter.Int64Counter(
		"buddy.tokens.revoked.total",
		metric.WithDescription("Total number of session tokens revoked"),
		metric.WithUnit("{token}"),
	)

	m.TokensPurgedTotal, _ = meter.Int64Counter(
		"buddy.tokens.purged.total",
		metric.WithDescription("Total number of expired session tokens purged"),
		metric.WithUnit("{token}"),
	)

	return m
}

// RecordAuthAttempt counts one arbiter invocation.
func (m *Metrics) RecordAuthAttempt(ctx context.Context, method string, authenticated bool) {
	if m == nil || m.AuthAttemptsTotal == nil {
		return
	}
	m.AuthAttemptsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.Bool("authenticated", authenticated),
	))
}

// RecordEvaluatorFault counts an evaluator that errored or panicked.
func (m *Metrics) RecordEvaluatorFault(ctx context.Context, evaluator string) {
	if m == nil || m.EvaluatorFaultsTotal == nil {
		return
	}
	m.EvaluatorFaultsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("evaluator", evaluator)))
}

// RecordAccessDecision counts a policy gate verdict.
func (m *Metrics) RecordAccessDecision(ctx context.Context, level string, allowed bool) {
	if m == nil || m.AccessDecisionsTotal == nil {
		return
	}
	m.AccessDecisionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("response_level", level),
		attribute.Bool("allowed", allowed),
	))
}

// RecordAdminCommand counts a dispatched admin command.
func (m *Metrics) RecordAdminCommand(ctx context.Context, command string) {
	if m == nil || m.AdminCommandsTotal == nil {
		return
	}
	m.AdminCommandsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("command", command)))
}

// RecordSessionTransition counts start, end and expiry transitions.
func (m *Metrics) RecordSessionTransition(ctx context.Context, transition string) {
	if m == nil || m.SessionTransitionsTotal == nil {
		return
	}
	m.SessionTransitionsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("transition", transition)))
}

// RecordTokens adds n to the counter for the given token event (issued, revoked, purged).
func (m *Metrics) RecordTokens(ctx context.Context, event string, n int) {
	if m == nil || n <= 0 {
		return
	}
	var counter metric.Int64Counter
	switch event {
	case "issued":
		counter = m.TokensIssuedTotal
	case "revoked":
		counter = m.TokensRevokedTotal
	case "purged":
		counter = m.TokensPurgedTotal
	}
	if counter == nil {
		return
	}
	counter.Add(ctx, int64(n))
}
