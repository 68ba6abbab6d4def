package billing

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"workshop-billing-backend/internal/apperrors"
	"workshop-billing-backend/internal/document"
	"workshop-billing-backend/internal/mailer"
	"workshop-billing-backend/internal/models"

	"github.com/go-playground/validator/v10"
	"gorm.io/datatypes"
)

var validate = validator.New()

// Document assembles the printable view of an invoice.
func (s *Service) Document(ctx context.Context, id uint) (document.View, *models.Invoice, error) {
	inv, err := s.FindOne(ctx, id)
	if err != nil {
		return document.View{}, nil, err
	}
	return document.Assemble(inv, s.issuer, s.calc), inv, nil
}

// RenderPDF returns the invoice PDF and the filename offered for download.
func (s *Service) RenderPDF(ctx context.Context, id uint) ([]byte, string, error) {
	view, inv, err := s.Document(ctx, id)
	if err != nil {
		return nil, "", err
	}
	pdf, err := document.RenderPDF(view)
	if err != nil {
		return nil, "", err
	}

	clientName := ""
	if inv.Client != nil {
		clientName = inv.Client.Name
	}
	return pdf, document.DownloadFilename(inv.ID, clientName), nil
}

// SendByEmail mails the invoice with its PDF attached and records the
// delivery. A caller-supplied PDF is sent as is; otherwise one is rendered.
// Transport failures are returned, never retried.
func (s *Service) SendByEmail(ctx context.Context, id uint, in EmailInput) (*models.InvoiceDelivery, error) {
	const op = "billing.SendByEmail"

	in.To = strings.TrimSpace(in.To)
	in.CC = strings.TrimSpace(in.CC)
	if err := validate.Var(in.To, "required,email"); err != nil {
		return nil, apperrors.Validation(op, "a valid recipient email is required")
	}
	if err := validate.Var(in.CC, "omitempty,email"); err != nil {
		return nil, apperrors.Validation(op, "cc must be a valid email")
	}
	if s.mailer == nil {
		return nil, apperrors.Unavailable(op, mailer.ErrNotConfigured, "email delivery is not configured")
	}

	view, inv, err := s.Document(ctx, id)
	if err != nil {
		return nil, err
	}

	var pdf []byte
	if in.PDFBase64 != "" {
		if pdf, err = decodePDF(in.PDFBase64); err != nil {
			return nil, apperrors.Validation(op, "attached PDF is not valid base64")
		}
	} else if pdf, err = document.RenderPDF(view); err != nil {
		return nil, err
	}

	html, err := document.RenderEmailHTML(document.NewEmailData(view, in.Message, len(pdf)))
	if err != nil {
		return nil, err
	}

	subject := strings.TrimSpace(in.Subject)
	if subject == "" {
		subject = fmt.Sprintf("Factura %s - %s", view.Number, s.issuer.DisplayName)
	}

	messageID, err := s.mailer.SendInvoice(ctx, mailer.InvoiceEmail{
		To:             in.To,
		CC:             in.CC,
		ClientName:     view.Client.Name,
		InvoiceID:      inv.ID,
		Subject:        subject,
		HTML:           html,
		PDF:            pdf,
		AttachmentName: document.AttachmentFilename(inv.ID),
	})
	if err != nil {
		s.log.Error().Err(err).Uint("invoice_id", inv.ID).Str("to", in.To).Msg("invoice email failed")
		return nil, apperrors.Unavailable(op, err, "could not send invoice email")
	}

	details, err := encodeDetails(deliveryDetails{
		Number:        view.Number,
		Total:         view.Breakdown.GrandTotal.StringFixed(2),
		Attachment:    document.AttachmentFilename(inv.ID),
		AttachmentLen: len(pdf),
		SuppliedPDF:   in.PDFBase64 != "",
	})
	if err != nil {
		s.log.Warn().Err(err).Uint("invoice_id", inv.ID).Msg("delivery details dropped")
	}
	delivery := &models.InvoiceDelivery{
		InvoiceID: inv.ID,
		Recipient: in.To,
		CC:        in.CC,
		Subject:   subject,
		MessageID: messageID,
		Details:   details,
	}
	if err := s.store.Deliveries().Create(ctx, delivery); err != nil {
		// The mail is already out; losing the audit row is not worth failing for.
		s.log.Error().Err(err).Uint("invoice_id", inv.ID).Msg("failed to record invoice delivery")
	}

	s.log.Info().Uint("invoice_id", inv.ID).Str("to", in.To).Str("message_id", messageID).Msg("invoice emailed")
	return delivery, nil
}

type deliveryDetails struct {
	Number        string `json:"number"`
	Total         string `json:"total"`
	Attachment    string `json:"attachment"`
	AttachmentLen int    `json:"attachment_len"`
	SuppliedPDF   bool   `json:"supplied_pdf"`
}

func encodeDetails(v interface{}) (datatypes.JSON, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode delivery details: %w", err)
	}
	return datatypes.JSON(raw), nil
}

// decodePDF accepts plain base64 or a data URL.
func decodePDF(raw string) ([]byte, error) {
	if i := strings.Index(raw, ","); strings.HasPrefix(raw, "data:") && i >= 0 {
		raw = raw[i+1:]
	}
	return base64.StdEncoding.DecodeString(strings.TrimSpace(raw))
}
