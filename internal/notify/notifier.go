package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	"github.com/hackgods/standby-scheduling/pkg/logging"
)

// EmailNotifier delivers standby messages by email.
type EmailNotifier struct {
	sender EmailSender
}

func NewEmailNotifier(sender EmailSender) *EmailNotifier {
	return &EmailNotifier{sender: sender}
}

func (n *EmailNotifier) Send(ctx context.Context, to, subject, body string) error {
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("notify: empty recipient")
	}
	return n.sender.Send(ctx, EmailMessage{To: to, Subject: subject, Body: body})
}

type ProviderConfig struct {
	Provider       string // stub, sendgrid, ses
	SendGridAPIKey string
	FromEmail      string
	FromName       string
	AWSRegion      string
}

// NewEmailSender picks the sender for cfg.Provider.
func NewEmailSender(ctx context.Context, cfg ProviderConfig, logger *logging.Logger) (EmailSender, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "stub":
		return NewStubEmailSender(logger), nil
	case "sendgrid":
		s := NewSendGridSender(SendGridConfig{APIKey: cfg.SendGridAPIKey, FromEmail: cfg.FromEmail, FromName: cfg.FromName}, logger)
		if s == nil {
			return nil, fmt.Errorf("notify: sendgrid requires an API key")
		}
		return s, nil
	case "ses":
		awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, fmt.Errorf("notify: load aws config: %w", err)
		}
		return NewSESSender(sesv2.NewFromConfig(awsCfg), SESConfig{FromEmail: cfg.FromEmail, FromName: cfg.FromName}, logger), nil
	default:
		return nil, fmt.Errorf("notify: unknown email provider %q", cfg.Provider)
	}
}
