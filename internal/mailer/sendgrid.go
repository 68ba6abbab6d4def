package mailer

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"workshop-billing-backend/internal/logger"

	"github.com/rs/zerolog"
	sendgrid "github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

var ErrNotConfigured = errors.New("mail transport not configured")

const (
	defaultBaseURL = "https://api.sendgrid.com"
	mailSendPath   = "/v3/mail/send"
)

type Config struct {
	APIKey   string
	From     string
	FromName string
	// BaseURL overrides the SendGrid API host.
	BaseURL string
}

type InvoiceEmail struct {
	To             string
	CC             string
	ClientName     string
	InvoiceID      uint
	Subject        string
	HTML           string
	PDF            []byte
	AttachmentName string
}

// SendGrid delivers invoice emails through the SendGrid v3 API. Failures
// are returned as is; nothing is retried.
type SendGrid struct {
	cfg Config
	log zerolog.Logger
}

func NewSendGrid(cfg Config) *SendGrid {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	return &SendGrid{cfg: cfg, log: logger.WithComponent("mailer")}
}

func (s *SendGrid) SendInvoice(ctx context.Context, e InvoiceEmail) (string, error) {
	if s.cfg.APIKey == "" {
		return "", ErrNotConfigured
	}

	m := mail.NewV3Mail()
	m.SetFrom(mail.NewEmail(s.cfg.FromName, s.cfg.From))
	m.Subject = e.Subject
	m.AddContent(mail.NewContent("text/html", e.HTML))

	personalization := mail.NewPersonalization()
	personalization.AddTos(mail.NewEmail(e.ClientName, e.To))
	if e.CC != "" && e.CC != e.To {
		personalization.AddCCs(mail.NewEmail("", e.CC))
	}
	m.AddPersonalizations(personalization)

	if len(e.PDF) > 0 {
		a := mail.NewAttachment()
		a.SetContent(base64.StdEncoding.EncodeToString(e.PDF))
		a.SetType("application/pdf")
		a.SetFilename(e.AttachmentName)
		a.SetDisposition("attachment")
		m.AddAttachment(a)
	}

	request := sendgrid.GetRequest(s.cfg.APIKey, mailSendPath, s.cfg.BaseURL)
	request.Method = http.MethodPost
	request.Body = mail.GetRequestBody(m)

	response, err := sendgrid.MakeRequestWithContext(ctx, request)
	if err != nil {
		return "", fmt.Errorf("sendgrid: %w", err)
	}
	if response.StatusCode >= 300 {
		return "", fmt.Errorf("sendgrid: status %d: %s", response.StatusCode, response.Body)
	}

	var messageID string
	if ids := response.Headers["X-Message-Id"]; len(ids) > 0 {
		messageID = ids[0]
	}
	s.log.Info().Uint("invoice_id", e.InvoiceID).Str("to", e.To).Str("message_id", messageID).Msg("invoice email sent")
	return messageID, nil
}
