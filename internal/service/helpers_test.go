package service

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/wegift/auth-service/internal/domain"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type profileClientMock struct {
	mock.Mock
}

func (m *profileClientMock) CreateProfile(ctx context.Context, profile domain.Profile) error {
	return m.Called(ctx, profile).Error(0)
}

// captureMailer records links per recipient
type captureMailer struct {
	mu          sync.Mutex
	err         error
	activations map[string][]string
	resets      map[string][]string
}

func newCaptureMailer() *captureMailer {
	return &captureMailer{
		activations: make(map[string][]string),
		resets:      make(map[string][]string),
	}
}

func (m *captureMailer) SendActivation(_ context.Context, email, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.activations[email] = append(m.activations[email], link)
	return nil
}

func (m *captureMailer) SendPasswordReset(_ context.Context, email, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.resets[email] = append(m.resets[email], link)
	return nil
}

func (m *captureMailer) lastToken(links map[string][]string, email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	sent := links[email]
	if len(sent) == 0 {
		return ""
	}
	u, err := url.Parse(sent[len(sent)-1])
	if err != nil {
		return ""
	}
	return u.Query().Get("token")
}

func (m *captureMailer) activationToken(email string) string {
	return m.lastToken(m.activations, email)
}

func (m *captureMailer) resetToken(email string) string {
	return m.lastToken(m.resets, email)
}

func counterTotal(rm metricdata.ResourceMetrics, name string) int64 {
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
			}
		}
	}
	return total
}
