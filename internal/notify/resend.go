// Package notify sends candidate emails through Resend.
package notify

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/resend/resend-go/v2"

	"hirelane/pipeline-service/internal/pipeline"
)

// Sender is the part of the Resend client used here.
type Sender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// Resend implements pipeline.Notifier.
type Resend struct {
	emails Sender
	from   string
}

// NewResend returns a notifier using the Resend API key.
func NewResend(apiKey, from string) *Resend {
	return NewResendWithSender(resend.NewClient(apiKey).Emails, from)
}

// NewResendWithSender returns a notifier on an existing sender.
func NewResendWithSender(s Sender, from string) *Resend {
	return &Resend{emails: s, from: from}
}

var _ pipeline.Notifier = (*Resend)(nil)

func (r *Resend) SendAssignmentInvite(ctx context.Context, msg pipeline.AssignmentInvite) error {
	return r.send(ctx, msg.CandidateID, msg.To, fmt.Sprintf("Next step for %s: assignment", msg.JobTitle), assignmentTmpl, msg)
}

func (r *Resend) SendRejection(ctx context.Context, msg pipeline.Rejection) error {
	return r.send(ctx, msg.CandidateID, msg.To, fmt.Sprintf("Update on your application for %s", msg.JobTitle), rejectionTmpl, msg)
}

func (r *Resend) SendApprovalInvite(ctx context.Context, msg pipeline.ApprovalInvite) error {
	return r.send(ctx, msg.CandidateID, msg.To, fmt.Sprintf("Interview invitation: %s", msg.JobTitle), approvalTmpl, msg)
}

func (r *Resend) send(ctx context.Context, candidateID, to, subject string, t *template.Template, data any) error {
	html, err := render(t, data)
	if err != nil {
		return err
	}
	sent, err := r.emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    r.from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
	})
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	slog.Info("email sent", "candidateId", candidateID, "subject", subject, "messageId", sent.Id)
	return nil
}
