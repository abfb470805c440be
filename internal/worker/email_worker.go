package worker

// email_worker.go
// Sends notification e-mails submitted to QueueEmail through the SMTP mailer,
// behind a circuit breaker so a dead relay fails fast.

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/ishpreet160/CertFlow/internal/apierror"
	"github.com/ishpreet160/CertFlow/internal/infra"
)

const JobEmail = "email"

// EmailJobPayload is the job envelope sent to QueueEmail.
type EmailJobPayload struct {
	Kind    string `json:"kind"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// MailSender delivers one plain-text message.
type MailSender interface {
	Send(to, subject, body string) error
}

type EmailWorker struct {
	mailer MailSender
	cb     *infra.CircuitBreaker
}

func NewEmailWorker(mailer MailSender, cb *infra.CircuitBreaker) *EmailWorker {
	return &EmailWorker{mailer: mailer, cb: cb}
}

// Process implements Handler. Failures come back as NotificationErrors.
func (w *EmailWorker) Process(_ context.Context, raw json.RawMessage) error {
	var payload EmailJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return apierror.Notification("invalid email payload", err)
	}
	if payload.To == "" {
		log.Warn().Str("kind", payload.Kind).Msg("email_worker: empty recipient, skipping")
		return nil
	}
	err := w.cb.Execute(func() error {
		return w.mailer.Send(payload.To, payload.Subject, payload.Body)
	})
	if err != nil {
		return apierror.Notification(fmt.Sprintf("send %s email", payload.Kind), err)
	}
	log.Info().Str("to", payload.To).Str("kind", payload.Kind).Msg("email_worker: sent")
	return nil
}
