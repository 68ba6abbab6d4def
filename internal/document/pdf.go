package document

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// Page geometry in points (A4).
const (
	pageWidth    = 595.28
	pageHeight   = 841.89
	margin       = 40.0
	contentWidth = pageWidth - 2*margin
	bandHeight   = 70.0
	rowHeight    = 18.0
	// rows stop this far above the bottom edge; the rest goes to a new page
	bottomLimit = 120.0
)

var (
	brandRed  = [3]int{139, 0, 0}
	lightGrey = [3]int{245, 245, 245}
	darkText  = [3]int{33, 33, 33}
	mutedText = [3]int{110, 110, 110}
)

var columns = []struct {
	title string
	width float64
	align string
}{
	{"#", 25, "C"},
	{"DESCRIPCIÓN", 215, "L"},
	{"TIPO", 65, "C"},
	{"CANT", 45, "C"},
	{"PRECIO", 80, "R"},
	{"SUBTOTAL", 85.28, "R"},
}

type pdfWriter struct {
	pdf *gofpdf.Fpdf
	tr  func(string) string
}

// RenderPDF lays out the invoice. The creation date is pinned to the invoice
// date, so the same view always renders the same bytes.
func RenderPDF(v View) ([]byte, error) {
	pdf := build(v)
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render invoice %d: %w", v.InvoiceID, err)
	}
	return buf.Bytes(), nil
}

func build(v View) *gofpdf.Fpdf {
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, margin)
	// Fonts and resources are otherwise written in map order.
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(v.Date)
	pdf.SetModificationDate(v.Date)
	pdf.SetTitle("Factura "+v.Number, true)
	pdf.SetAuthor(v.Issuer.DisplayName, true)

	w := &pdfWriter{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}

	pdf.SetFooterFunc(func() {
		pdf.SetY(pageHeight - 30)
		w.font("", 8, mutedText)
		w.cell(contentWidth, 10, fmt.Sprintf("%s • %s", v.Issuer.DisplayName, v.Date.Format("02/01/2006")), "C", false)
	})

	pdf.AddPage()
	w.header(v)
	w.issuer(v)
	w.invoiceBox(v)
	w.clientBox(v)
	w.vehicleBox(v)

	y := w.table(v, 300)
	w.totals(v, y+10)

	return pdf
}

func (w *pdfWriter) font(style string, size float64, color [3]int) {
	w.pdf.SetFont("Helvetica", style, size)
	w.pdf.SetTextColor(color[0], color[1], color[2])
}

func (w *pdfWriter) cell(width, height float64, text, align string, fill bool) {
	w.pdf.CellFormat(width, height, w.tr(text), "", 0, align, fill, 0, "")
}

func (w *pdfWriter) text(x, y float64, text string) {
	w.pdf.SetXY(x, y)
	w.pdf.CellFormat(0, 12, w.tr(text), "", 0, "L", false, 0, "")
}

func (w *pdfWriter) header(v View) {
	pdf := w.pdf
	pdf.SetFillColor(brandRed[0], brandRed[1], brandRed[2])
	pdf.Rect(0, 0, pageWidth, bandHeight, "F")

	w.font("B", 24, [3]int{255, 255, 255})
	w.text(margin, 18, "FACTURA")
	w.font("", 9, [3]int{255, 255, 255})
	w.text(margin, 44, "DOCUMENTO TRIBUTARIO")

	w.font("B", 12, [3]int{255, 255, 255})
	pdf.SetXY(pageWidth-margin-200, 28)
	w.cell(200, 14, v.Number, "R", false)
}

func (w *pdfWriter) issuer(v View) {
	w.font("B", 12, darkText)
	w.text(margin, 85, v.Issuer.Name)
	w.font("", 9, mutedText)
	w.text(margin, 102, fmt.Sprintf("NIT: %s • %s", v.Issuer.TaxID, v.Issuer.Regime))
	w.text(margin, 115, "Cel: "+v.Issuer.Phone)
	w.text(margin, 128, "Email: "+v.Issuer.Email)
}

func (w *pdfWriter) box(x, y, width, height float64, title string, rows []string) {
	pdf := w.pdf
	pdf.SetFillColor(lightGrey[0], lightGrey[1], lightGrey[2])
	pdf.SetDrawColor(200, 200, 200)
	pdf.Rect(x, y, width, height, "FD")

	w.font("B", 9, brandRed)
	w.text(x+8, y+6, title)
	w.font("", 8.5, darkText)
	for i, r := range rows {
		w.text(x+8, y+22+float64(i)*12, r)
	}
}

func (w *pdfWriter) invoiceBox(v View) {
	rows := []string{
		"No: " + v.Number,
		"Fecha: " + v.Date.Format("02/01/2006"),
		"Método: " + v.PaymentMethod,
		"Estado: " + v.PaymentState,
		"Mecánico: " + v.Mechanic,
	}
	w.box(pageWidth-margin-215, 82, 215, 95, "DATOS FACTURA", rows)
}

func (w *pdfWriter) clientBox(v View) {
	w.box(margin, 190, 250, 95, "CLIENTE", []string{
		"Nombre: " + v.Client.Name,
		"ID: " + v.Client.Identification,
		"Teléfono: " + v.Client.Phone,
		"Email: " + v.Client.Email,
		"Dirección: " + v.Client.Address,
	})
}

func (w *pdfWriter) vehicleBox(v View) {
	x := pageWidth - margin - 250
	if v.Vehicle == nil {
		w.box(x, 190, 250, 95, "VEHÍCULO", []string{"Sin vehículo asignado"})
		return
	}
	w.box(x, 190, 250, 95, "VEHÍCULO", []string{
		"Placa: " + v.Vehicle.Plate,
		"Marca: " + v.Vehicle.Brand,
		"Modelo: " + v.Vehicle.Model,
		"Año: " + v.Vehicle.Year,
		"Km: " + v.Vehicle.Mileage,
	})
}

func (w *pdfWriter) tableHeader(y float64) float64 {
	pdf := w.pdf
	pdf.SetFillColor(brandRed[0], brandRed[1], brandRed[2])
	w.font("B", 8.5, [3]int{255, 255, 255})
	pdf.SetXY(margin, y)
	for _, c := range columns {
		w.cell(c.width, rowHeight+2, c.title, c.align, true)
	}
	return y + rowHeight + 2
}

// table draws the line items starting at y and returns where it stopped.
// A new page starts whenever the next row would cross the bottom limit.
func (w *pdfWriter) table(v View, y float64) float64 {
	pdf := w.pdf
	y = w.tableHeader(y)

	for i, l := range v.Lines {
		if y+rowHeight > pageHeight-bottomLimit {
			pdf.AddPage()
			y = w.tableHeader(margin)
		}

		if i%2 == 1 {
			pdf.SetFillColor(lightGrey[0], lightGrey[1], lightGrey[2])
		} else {
			pdf.SetFillColor(255, 255, 255)
		}
		w.font("", 8.5, darkText)
		pdf.SetXY(margin, y)

		desc := l.Description
		if len([]rune(desc)) > 45 {
			desc = string([]rune(desc)[:42]) + "..."
		}
		values := []string{fmt.Sprint(l.Index), desc, l.Category, l.Quantity, l.UnitPrice, l.Subtotal}
		for j, c := range columns {
			w.cell(c.width, rowHeight, values[j], c.align, true)
		}
		y += rowHeight
	}

	return y
}

func (w *pdfWriter) totals(v View, y float64) {
	pdf := w.pdf
	if y+70 > pageHeight-margin-30 {
		pdf.AddPage()
		y = margin
	}

	labelX := pageWidth - margin - 250
	b := v.Breakdown

	w.font("", 9.5, darkText)
	pdf.SetXY(labelX, y)
	w.cell(150, 16, "SUBTOTAL:", "R", false)
	w.cell(100, 16, Money(b.Subtotal), "R", false)
	y += 16

	if v.ShowTax() {
		pdf.SetXY(labelX, y)
		w.cell(150, 16, "IVA SERVICIOS (19%):", "R", false)
		w.cell(100, 16, Money(b.Tax), "R", false)
		y += 16
	}

	pdf.SetFillColor(brandRed[0], brandRed[1], brandRed[2])
	w.font("B", 11, [3]int{255, 255, 255})
	pdf.SetXY(labelX, y+4)
	w.cell(150, 20, "TOTAL GENERAL:", "R", true)
	w.cell(100, 20, Money(b.GrandTotal), "R", true)

	if v.Notes != "" {
		w.font("I", 8.5, mutedText)
		pdf.SetXY(margin, y+34)
		pdf.MultiCell(contentWidth, 11, w.tr("Notas: "+v.Notes), "", "L", false)
	}
}
