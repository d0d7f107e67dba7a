package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// AuthMetrics are the security relevant counters exported on /metrics
type AuthMetrics struct {
	registrations  metric.Int64Counter
	logins         metric.Int64Counter
	refreshes      metric.Int64Counter
	reuseDetected  metric.Int64Counter
	passwordResets metric.Int64Counter
}

// NewAuthMetrics registers the counters on the given meter
func NewAuthMetrics(meter metric.Meter) (*AuthMetrics, error) {
	var m AuthMetrics
	var err error

	if m.registrations, err = meter.Int64Counter("auth.registrations",
		metric.WithDescription("Credentials registered")); err != nil {
		return nil, err
	}
	if m.logins, err = meter.Int64Counter("auth.logins",
		metric.WithDescription("Login attempts by result")); err != nil {
		return nil, err
	}
	if m.refreshes, err = meter.Int64Counter("auth.refreshes",
		metric.WithDescription("Refresh attempts by result")); err != nil {
		return nil, err
	}
	if m.reuseDetected, err = meter.Int64Counter("auth.refresh_reuse_detected",
		metric.WithDescription("Sessions revoked after a refresh secret mismatch")); err != nil {
		return nil, err
	}
	if m.passwordResets, err = meter.Int64Counter("auth.password_resets",
		metric.WithDescription("Completed password resets")); err != nil {
		return nil, err
	}

	return &m, nil
}

// NopAuthMetrics discards every measurement
func NopAuthMetrics() *AuthMetrics {
	m, _ := NewAuthMetrics(noop.NewMeterProvider().Meter("noop"))
	return m
}

func withResult(result string) metric.AddOption {
	return metric.WithAttributes(attribute.String("result", result))
}

func (m *AuthMetrics) registered(ctx context.Context) {
	m.registrations.Add(ctx, 1)
}

func (m *AuthMetrics) login(ctx context.Context, result string) {
	m.logins.Add(ctx, 1, withResult(result))
}

func (m *AuthMetrics) refresh(ctx context.Context, result string) {
	m.refreshes.Add(ctx, 1, withResult(result))
}

func (m *AuthMetrics) reuse(ctx context.Context) {
	m.reuseDetected.Add(ctx, 1)
}

func (m *AuthMetrics) passwordReset(ctx context.Context) {
	m.passwordResets.Add(ctx, 1)
}
