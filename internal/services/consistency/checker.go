// Package consistency checks the stored billing data for drift between
// invoices, their lines, orders and stock. It never repairs anything.
package consistency

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"workshop-billing-backend/internal/logger"
	"workshop-billing-backend/internal/models"
	"workshop-billing-backend/internal/repository"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
)

type FindingKind string

const (
	TotalMismatch    FindingKind = "total_mismatch"
	NegativeStock    FindingKind = "negative_stock"
	DuplicateInvoice FindingKind = "duplicate_invoice"
)

type Finding struct {
	Kind      FindingKind `json:"kind"`
	InvoiceID uint        `json:"invoice_id,omitempty"`
	ProductID uint        `json:"product_id,omitempty"`
	OrderID   uint        `json:"order_id,omitempty"`
	Detail    string      `json:"detail"`
}

func (f Finding) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Detail)
}

type Checker struct {
	store repository.Store
	now   func() time.Time
	log   zerolog.Logger
}

func NewChecker(store repository.Store) *Checker {
	return &Checker{store: store, now: time.Now, log: logger.WithComponent("consistency")}
}

// Run performs one pass and records it as a DiagnosticRun. The returned
// error is a *multierror.Error holding every Finding, or nil when the data
// is clean. Storage failures are returned as-is and mark the run failed.
func (c *Checker) Run(ctx context.Context) (*models.DiagnosticRun, error) {
	run := &models.DiagnosticRun{Status: models.DiagnosticRunning, StartedAt: c.now()}
	if err := c.store.DiagnosticRuns().Create(ctx, run); err != nil {
		return nil, err
	}

	findings, err := c.collect(ctx, run)
	if err != nil {
		run.Status = models.DiagnosticFailed
		c.finish(ctx, run)
		c.log.Error().Err(err).Str("run_id", run.ID.String()).Msg("diagnostic run failed")
		return run, err
	}

	var result *multierror.Error
	for _, f := range findings {
		result = multierror.Append(result, f)
		switch f.Kind {
		case TotalMismatch:
			run.TotalMismatches++
		case NegativeStock:
			run.NegativeStock++
		case DuplicateInvoice:
			run.DuplicateInvoice++
		}
	}

	run.Status = models.DiagnosticClean
	if len(findings) > 0 {
		run.Status = models.DiagnosticFindings
		b, _ := json.Marshal(findings)
		run.Findings = datatypes.JSON(b)
	}
	c.finish(ctx, run)

	c.log.Info().
		Str("run_id", run.ID.String()).
		Str("status", string(run.Status)).
		Int("invoices", run.InvoicesChecked).
		Int("products", run.ProductsChecked).
		Int("findings", len(findings)).
		Msg("diagnostic run complete")

	return run, result.ErrorOrNil()
}

func (c *Checker) finish(ctx context.Context, run *models.DiagnosticRun) {
	done := c.now()
	run.CompletedAt = &done
	if err := c.store.DiagnosticRuns().Update(ctx, run); err != nil {
		c.log.Warn().Err(err).Str("run_id", run.ID.String()).Msg("could not record diagnostic run")
	}
}

func (c *Checker) collect(ctx context.Context, run *models.DiagnosticRun) ([]Finding, error) {
	invoices, err := c.store.Invoices().List(ctx, repository.InvoiceFilter{}, repository.WithLines)
	if err != nil {
		return nil, err
	}
	products, err := c.store.Products().List(ctx, repository.ProductFilter{})
	if err != nil {
		return nil, err
	}
	run.InvoicesChecked = len(invoices)
	run.ProductsChecked = len(products)

	var findings []Finding
	findings = append(findings, checkTotals(invoices)...)
	findings = append(findings, checkStock(products)...)
	findings = append(findings, checkDuplicates(invoices)...)
	return findings, nil
}

func checkTotals(invoices []models.Invoice) []Finding {
	var out []Finding
	for _, inv := range invoices {
		sum := models.SumItems(models.InvoiceItems(inv.Lines))
		if !sum.Equal(inv.Total) {
			out = append(out, Finding{
				Kind:      TotalMismatch,
				InvoiceID: inv.ID,
				Detail:    fmt.Sprintf("invoice %d total %s, lines sum to %s", inv.ID, inv.Total.StringFixed(2), sum.StringFixed(2)),
			})
		}
	}
	return out
}

func checkStock(products []models.Product) []Finding {
	var out []Finding
	for _, p := range products {
		if p.Stock.IsNegative() {
			out = append(out, Finding{
				Kind:      NegativeStock,
				ProductID: p.ID,
				Detail:    fmt.Sprintf("product %d (%s) has stock %s", p.ID, p.Name, p.Stock.String()),
			})
		}
	}
	return out
}

func checkDuplicates(invoices []models.Invoice) []Finding {
	byOrder := map[uint][]uint{}
	for _, inv := range invoices {
		if inv.OrderID != nil {
			byOrder[*inv.OrderID] = append(byOrder[*inv.OrderID], inv.ID)
		}
	}

	orderIDs := make([]uint, 0, len(byOrder))
	for id, ids := range byOrder {
		if len(ids) > 1 {
			orderIDs = append(orderIDs, id)
		}
	}
	sort.Slice(orderIDs, func(i, j int) bool { return orderIDs[i] < orderIDs[j] })

	var out []Finding
	for _, id := range orderIDs {
		ids := byOrder[id]
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		out = append(out, Finding{
			Kind:    DuplicateInvoice,
			OrderID: id,
			Detail:  fmt.Sprintf("order %d has %d active invoices %v", id, len(ids), ids),
		})
	}
	return out
}
