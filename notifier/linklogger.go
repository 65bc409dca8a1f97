package notifier

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
)

// DefaultFrontendURL is where confirmation and reset links point when none is set.
const DefaultFrontendURL = "http://localhost:3000"

// LinkLogger implements authsystem.Notifier by logging the link the user would
// receive. It stands in for a mail sender during development.
type LinkLogger struct {
	frontendURL string
	logger      *slog.Logger
}

// NewLinkLogger returns a LinkLogger. An empty frontendURL uses
// DefaultFrontendURL; a nil logger uses slog.Default.
func NewLinkLogger(frontendURL string, logger *slog.Logger) *LinkLogger {
	frontendURL = strings.TrimRight(strings.TrimSpace(frontendURL), "/")
	if frontendURL == "" {
		frontendURL = DefaultFrontendURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LinkLogger{
		frontendURL: frontendURL,
		logger:      logger.With("component", "notifier"),
	}
}

// NotifyConfirmation logs the confirmation link for email. It never fails.
func (l *LinkLogger) NotifyConfirmation(ctx context.Context, email, name, token string) error {
	l.logger.InfoContext(ctx, "confirmation email",
		"to", email,
		"name", name,
		"link", l.ConfirmationLink(token),
	)
	return nil
}

// NotifyPasswordReset logs the reset link for email. It never fails.
func (l *LinkLogger) NotifyPasswordReset(ctx context.Context, email, name, token string) error {
	l.logger.InfoContext(ctx, "password reset email",
		"to", email,
		"name", name,
		"link", l.ResetLink(token),
	)
	return nil
}

// ConfirmationLink is {frontend}/confirm-email?token=...
func (l *LinkLogger) ConfirmationLink(token string) string {
	return l.frontendURL + "/confirm-email?token=" + url.QueryEscape(token)
}

// ResetLink is {frontend}/reset-password?token=...
func (l *LinkLogger) ResetLink(token string) string {
	return l.frontendURL + "/reset-password?token=" + url.QueryEscape(token)
}
