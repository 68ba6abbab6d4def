package document

import (
	"bytes"
	"fmt"
	"html/template"
)

type EmailData struct {
	IssuerName    string
	ClientName    string
	InvoiceNumber string
	Date          string
	PaymentMethod string
	Total         string
	Message       string
	AttachmentKB  string
}

// NewEmailData fills the email body fields from a view.
func NewEmailData(v View, message string, attachmentSize int) EmailData {
	return EmailData{
		IssuerName:    v.Issuer.DisplayName,
		ClientName:    v.Client.Name,
		InvoiceNumber: v.Number,
		Date:          v.Date.Format("02/01/2006"),
		PaymentMethod: v.PaymentMethod,
		Total:         Money(v.Breakdown.GrandTotal),
		Message:       message,
		AttachmentKB:  fmt.Sprintf("%.1f", float64(attachmentSize)/1024),
	}
}

var emailTemplate = template.Must(template.New("invoice-email").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #212121; max-width: 600px; margin: 0 auto;">
  <div style="background: #8b0000; color: #fff; padding: 16px 24px;">
    <h2 style="margin: 0;">{{.IssuerName}}</h2>
    <p style="margin: 4px 0 0;">Factura {{.InvoiceNumber}}</p>
  </div>
  <div style="padding: 24px;">
    <p>Hola {{.ClientName}},</p>
    {{if .Message}}<p>{{.Message}}</p>{{end}}
    <table style="width: 100%; border-collapse: collapse; margin: 16px 0;">
      <tr><td style="padding: 4px 0;">Número</td><td style="text-align: right;">{{.InvoiceNumber}}</td></tr>
      <tr><td style="padding: 4px 0;">Fecha</td><td style="text-align: right;">{{.Date}}</td></tr>
      <tr><td style="padding: 4px 0;">Método de pago</td><td style="text-align: right;">{{.PaymentMethod}}</td></tr>
      <tr><td style="padding: 4px 0;"><strong>Total</strong></td><td style="text-align: right;"><strong>{{.Total}}</strong></td></tr>
    </table>
    <p style="color: #6e6e6e; font-size: 12px;">Adjunto: factura en PDF ({{.AttachmentKB}} KB)</p>
  </div>
  <div style="border-top: 1px solid #ddd; padding: 12px 24px; font-size: 11px; color: #6e6e6e;">
    {{.IssuerName}}
  </div>
</body>
</html>
`))

func RenderEmailHTML(data EmailData) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render invoice email: %w", err)
	}
	return buf.String(), nil
}
