// Package notify delivers user-facing notifications. Delivery is handed to an
// external mail worker through a queue; the service only learns whether the
// hand-off succeeded.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Skotchmaster/storefront/internal/logging"
)

const TemplatePasswordReset = "password_reset"

type Mailer interface {
	SendPasswordReset(ctx context.Context, address, resetURL string) error
}

// SendError is the failure reported by a Mailer. Callers forward Status and
// Message to the client unchanged.
type SendError struct {
	Status  int
	Message string
	Err     error
}

func (e *SendError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *SendError) Unwrap() error { return e.Err }

type publisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

type Email struct {
	To       string            `json:"to"`
	Template string            `json:"template"`
	Vars     map[string]string `json:"vars"`
	QueuedAt time.Time         `json:"queued_at"`
}

// QueueMailer writes mail jobs to a Kafka topic consumed by the mail worker.
type QueueMailer struct {
	Producer publisher
	Topic    string
}

func NewQueueMailer(p publisher, topic string) *QueueMailer {
	return &QueueMailer{Producer: p, Topic: topic}
}

func (m *QueueMailer) SendPasswordReset(ctx context.Context, address, resetURL string) error {
	job := Email{
		To:       address,
		Template: TemplatePasswordReset,
		Vars:     map[string]string{"reset_url": resetURL},
		QueuedAt: time.Now().UTC(),
	}
	if err := m.Producer.PublishEvent(ctx, m.Topic, address, job); err != nil {
		return &SendError{
			Status:  http.StatusServiceUnavailable,
			Message: "could not send password reset email",
			Err:     err,
		}
	}
	return nil
}

// LogMailer only logs the message. Used when no broker is configured.
// The link carries a live reset token, so it is logged at debug level only.
type LogMailer struct{}

func (LogMailer) SendPasswordReset(ctx context.Context, address, resetURL string) error {
	l := logging.FromContext(ctx)
	l.Info("password_reset_email", "to", address)
	l.Debug("password_reset_link", "to", address, "url", resetURL)
	return nil
}
