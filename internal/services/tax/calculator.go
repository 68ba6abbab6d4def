package tax

import (
	"workshop-billing-backend/internal/models"

	"github.com/shopspring/decimal"
)

// ServiceRate is charged on service lines paid by credit card.
var ServiceRate = decimal.RequireFromString("0.19")

type LineBreakdown struct {
	Item     models.LineItem     `json:"item"`
	Category models.LineCategory `json:"category"`
	Base     decimal.Decimal     `json:"base"`
	Tax      decimal.Decimal     `json:"tax"`
	Subtotal decimal.Decimal     `json:"subtotal"`
}

type Breakdown struct {
	Lines            []LineBreakdown `json:"lines"`
	ServicesSubtotal decimal.Decimal `json:"services_subtotal"`
	ProductsSubtotal decimal.Decimal `json:"products_subtotal"`
	Tax              decimal.Decimal `json:"tax"`
	ServicesTotal    decimal.Decimal `json:"services_total"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	GrandTotal       decimal.Decimal `json:"grand_total"`
	Taxed            bool            `json:"taxed"`
}

type Calculator struct {
	classifier *Classifier
}

func NewCalculator(classifier *Classifier) *Calculator {
	if classifier == nil {
		classifier = DefaultClassifier()
	}
	return &Calculator{classifier: classifier}
}

func (c *Calculator) Classifier() *Classifier {
	return c.classifier
}

// Compute is pure: the same items and method always give the same result.
func (c *Calculator) Compute(items []models.LineItem, method models.PaymentMethod) Breakdown {
	taxed := method == models.PaymentCreditCard
	b := Breakdown{
		Lines:            make([]LineBreakdown, 0, len(items)),
		ServicesSubtotal: decimal.Zero,
		ProductsSubtotal: decimal.Zero,
		Tax:              decimal.Zero,
		Taxed:            taxed,
	}

	for _, it := range items {
		category := c.classifier.Classify(it)
		base := it.Base()
		line := LineBreakdown{Item: it, Category: category, Base: base, Tax: decimal.Zero, Subtotal: base}

		if category == models.CategoryService {
			b.ServicesSubtotal = b.ServicesSubtotal.Add(base)
			if taxed {
				line.Tax = base.Mul(ServiceRate)
				line.Subtotal = base.Add(line.Tax)
				b.Tax = b.Tax.Add(line.Tax)
			}
		} else {
			// PRODUCT and OTHER are never taxed.
			b.ProductsSubtotal = b.ProductsSubtotal.Add(base)
		}
		b.Lines = append(b.Lines, line)
	}

	b.ServicesTotal = b.ServicesSubtotal.Add(b.Tax)
	b.Subtotal = b.ServicesSubtotal.Add(b.ProductsSubtotal)
	b.GrandTotal = b.ProductsSubtotal.Add(b.ServicesTotal)
	return b
}
