package client

import (
	"context"
	"net/http"

	"go.uber.org/zap"
)

const (
	templateActivation    = "account-activation"
	templatePasswordReset = "password-reset"
)

type sendEmailRequest struct {
	Template string            `json:"template"`
	To       string            `json:"to"`
	Data     map[string]string `json:"data"`
}

// NotificationMailer sends templated emails through the notification service
type NotificationMailer struct {
	internalClient
}

// NewNotificationMailer creates a mailer for the notification service at baseURL
func NewNotificationMailer(baseURL, internalToken string, httpClient *http.Client) *NotificationMailer {
	return &NotificationMailer{internalClient{
		service: "notification",
		baseURL: baseURL,
		token:   internalToken,
		http:    httpClient,
	}}
}

func (m *NotificationMailer) SendActivation(ctx context.Context, email, link string) error {
	return m.send(ctx, templateActivation, email, link)
}

func (m *NotificationMailer) SendPasswordReset(ctx context.Context, email, link string) error {
	return m.send(ctx, templatePasswordReset, email, link)
}

func (m *NotificationMailer) send(ctx context.Context, template, email, link string) error {
	return m.postJSON(ctx, "/internal/emails", sendEmailRequest{
		Template: template,
		To:       email,
		Data:     map[string]string{"link": link},
	})
}

// LogMailer writes emails to the log instead of sending them. Used in
// development when no notification service is configured.
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendActivation(_ context.Context, email, link string) error {
	m.logger.Info("activation email", zap.String("to", email), zap.String("link", link))
	return nil
}

func (m *LogMailer) SendPasswordReset(_ context.Context, email, link string) error {
	m.logger.Info("password reset email", zap.String("to", email), zap.String("link", link))
	return nil
}
