package document

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"workshop-billing-backend/internal/models"
	"workshop-billing-backend/internal/services/tax"

	"github.com/shopspring/decimal"
)

const placeholder = "N/A"

type Issuer struct {
	Name        string
	DisplayName string
	TaxID       string
	Regime      string
	Phone       string
	Email       string
}

func DefaultIssuer() Issuer {
	return Issuer{
		Name:        "MOTOROOM TALLER MECÁNICO",
		DisplayName: "Motoroom Taller Mecánico",
		TaxID:       "70434575-0",
		Regime:      "Régimen Simple",
		Phone:       "3122012588",
		Email:       "facturacion@motoroom.com",
	}
}

type Party struct {
	Name           string
	Identification string
	Phone          string
	Email          string
	Address        string
}

type VehicleInfo struct {
	Plate   string
	Brand   string
	Model   string
	Year    string
	Mileage string
}

type LineView struct {
	Index       int
	Description string
	Category    string
	Quantity    string
	UnitPrice   string
	Subtotal    string
}

// View is the printable snapshot of an invoice.
type View struct {
	InvoiceID     uint
	Number        string
	Date          time.Time
	PaymentMethod string
	PaymentState  string
	Mechanic      string
	Notes         string
	Client        Party
	Vehicle       *VehicleInfo
	Lines         []LineView
	Breakdown     tax.Breakdown
	Issuer        Issuer
}

func (v View) ShowTax() bool {
	return v.Breakdown.Taxed && v.Breakdown.Tax.IsPositive()
}

// Assemble builds the view of inv. The invoice must carry its lines; client,
// vehicle, mechanic and order are used when loaded. The vehicle falls back to
// the one on the originating order.
func Assemble(inv *models.Invoice, issuer Issuer, calc *tax.Calculator) View {
	breakdown := calc.Compute(models.InvoiceItems(inv.Lines), inv.PaymentMethod)

	v := View{
		InvoiceID:     inv.ID,
		Number:        Number(inv.ID),
		Date:          inv.CreatedAt,
		PaymentMethod: PaymentMethodLabel(inv.PaymentMethod),
		PaymentState:  PaymentStateLabel(inv.PaymentState),
		Notes:         inv.Notes,
		Client:        party(inv.Client),
		Breakdown:     breakdown,
		Issuer:        issuer,
	}

	v.Mechanic = placeholder
	if inv.Mechanic != nil {
		v.Mechanic = orNA(inv.Mechanic.Name)
	}

	vehicle := inv.Vehicle
	if vehicle == nil && inv.Order != nil {
		vehicle = inv.Order.Vehicle
	}
	if vehicle != nil {
		v.Vehicle = &VehicleInfo{
			Plate:   orNA(vehicle.Plate),
			Brand:   orNA(vehicle.Brand),
			Model:   orNA(vehicle.Model),
			Year:    intOrNA(vehicle.Year),
			Mileage: intOrNA(vehicle.Mileage),
		}
	}

	v.Lines = make([]LineView, len(breakdown.Lines))
	for i, l := range breakdown.Lines {
		v.Lines[i] = LineView{
			Index:       i + 1,
			Description: l.Item.Description,
			Category:    CategoryLabel(l.Category),
			Quantity:    l.Item.Quantity.String(),
			UnitPrice:   Money(l.Item.UnitPrice),
			Subtotal:    Money(l.Subtotal),
		}
	}

	return v
}

func party(c *models.Client) Party {
	if c == nil {
		return Party{Name: placeholder, Identification: placeholder, Phone: placeholder, Email: placeholder, Address: placeholder}
	}
	return Party{
		Name:           orNA(c.Name),
		Identification: orNA(c.Identification),
		Phone:          orNA(c.Phone),
		Email:          orNA(c.Email),
		Address:        orNA(c.Address),
	}
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return placeholder
	}
	return s
}

func intOrNA(n int) string {
	if n == 0 {
		return placeholder
	}
	return fmt.Sprint(n)
}

// Money formats an amount with two decimals and a currency prefix.
func Money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

func Number(id uint) string {
	return fmt.Sprintf("F-%06d", id)
}

func PaymentMethodLabel(m models.PaymentMethod) string {
	switch m {
	case models.PaymentCash:
		return "Efectivo"
	case models.PaymentCreditCard:
		return "Tarjeta de Crédito"
	case models.PaymentDebitCard:
		return "Tarjeta de Débito"
	case models.PaymentTransfer:
		return "Transferencia"
	case models.PaymentCheck:
		return "Cheque"
	case models.PaymentOther:
		return "Otro"
	}
	return string(m)
}

func PaymentStateLabel(s models.PaymentState) string {
	if s == models.StatePaid {
		return "PAGADO"
	}
	return "NO PAGADO"
}

func CategoryLabel(c models.LineCategory) string {
	switch c {
	case models.CategoryService:
		return "SERVICIO"
	case models.CategoryOther:
		return "OTRO"
	}
	return "PRODUCTO"
}

var whitespace = regexp.MustCompile(`\s+`)

// DownloadFilename is the name offered when the PDF is downloaded.
func DownloadFilename(invoiceID uint, clientName string) string {
	name := whitespace.ReplaceAllString(strings.TrimSpace(clientName), "-")
	if name == "" {
		return AttachmentFilename(invoiceID)
	}
	return fmt.Sprintf("factura-%d-%s.pdf", invoiceID, name)
}

// AttachmentFilename is the name used for the emailed PDF.
func AttachmentFilename(invoiceID uint) string {
	return fmt.Sprintf("factura-%d.pdf", invoiceID)
}
