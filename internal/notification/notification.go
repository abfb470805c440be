// Package notification composes the e-mails attached to certificate events
// and hands them to the background queue. Nothing here blocks or fails the
// caller: a message that cannot be queued is logged and dropped.
package notification

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ishpreet160/CertFlow/internal/apierror"
	"github.com/ishpreet160/CertFlow/internal/lifecycle"
	"github.com/ishpreet160/CertFlow/internal/worker"
)

const signature = "Thank you,\nProject Experience Portal"

// Queue accepts jobs without blocking.
type Queue interface {
	Submit(queue, jobType string, payload any) error
}

// Recipient is who a message is addressed to.
type Recipient struct {
	Name  string
	Email string
}

type Notifier struct {
	queue       Queue
	frontendURL string
}

func New(queue Queue, frontendURL string) *Notifier {
	return &Notifier{queue: queue, frontendURL: strings.TrimRight(frontendURL, "/")}
}

// CertificateSubmitted confirms a new submission to its owner.
func (n *Notifier) CertificateSubmitted(to Recipient, title string) {
	n.send(worker.EmailJobPayload{
		Kind:    "submitted",
		To:      to.Email,
		Subject: "Certificate Submission Successful",
		Body: fmt.Sprintf("Hello %s,\n\nYour certificate '%s' has been successfully submitted for review.\n"+
			"We'll notify you once it's approved or rejected.\n\n%s", to.Name, title, signature),
	})
}

// CertificateReviewed tells the owner about an approve or reject decision.
func (n *Notifier) CertificateReviewed(to Recipient, title string, status lifecycle.Status) {
	s := string(status)
	n.send(worker.EmailJobPayload{
		Kind:    s,
		To:      to.Email,
		Subject: fmt.Sprintf("Your Certificate was %s", strings.ToUpper(s[:1])+s[1:]),
		Body:    fmt.Sprintf("Hello %s,\n\nYour certificate '%s' was %s.\n\n%s", to.Name, title, s, signature),
	})
}

// PasswordReset mails a reset link carrying token.
func (n *Notifier) PasswordReset(to Recipient, token string, validMinutes int) {
	n.send(worker.EmailJobPayload{
		Kind:    "password_reset",
		To:      to.Email,
		Subject: "Password Reset Request",
		Body: fmt.Sprintf("Hello %s,\n\nYou requested a password reset. Open the link below to set a new password:\n\n"+
			"%s/reset-password/%s\n\nThis link expires in %d minutes.\n\n%s",
			to.Name, n.frontendURL, token, validMinutes, signature),
	})
}

func (n *Notifier) send(msg worker.EmailJobPayload) {
	if err := n.queue.Submit(worker.QueueEmail, worker.JobEmail, msg); err != nil {
		log.Error().
			Err(apierror.Notification("enqueue email", err)).
			Str("to", msg.To).
			Str("kind", msg.Kind).
			Msg("notification: dropped")
	}
}
