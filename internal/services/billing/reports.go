package billing

import (
	"context"
	"time"

	"workshop-billing-backend/internal/apperrors"
	"workshop-billing-backend/internal/models"
	"workshop-billing-backend/internal/repository"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

type Stats struct {
	Total       int64           `json:"total"`
	Paid        int64           `json:"paid"`
	Unpaid      int64           `json:"unpaid"`
	PaidPercent decimal.Decimal `json:"paid_percent"`
	Collected   decimal.Decimal `json:"collected"`
	Pending     decimal.Decimal `json:"pending"`
}

// Stats counts active invoices by payment state.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	totals, err := s.store.Invoices().TotalsByState(ctx)
	if err != nil {
		return Stats{}, err
	}

	st := Stats{PaidPercent: decimal.Zero, Collected: decimal.Zero, Pending: decimal.Zero}
	for _, t := range totals {
		st.Total += t.Count
		switch t.State {
		case models.StatePaid:
			st.Paid += t.Count
			st.Collected = st.Collected.Add(t.Sum)
		case models.StateUnpaid:
			st.Unpaid += t.Count
			st.Pending = st.Pending.Add(t.Sum)
		}
	}
	if st.Total > 0 {
		st.PaidPercent = decimal.NewFromInt(st.Paid).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(st.Total)).
			Round(2)
	}
	return st, nil
}

type LaborEntry struct {
	InvoiceID  uint            `json:"invoice_id"`
	Date       time.Time       `json:"date"`
	ClientName string          `json:"client_name"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Amount     decimal.Decimal `json:"amount"`
}

type LaborReport struct {
	Mechanic    models.Mechanic `json:"mechanic"`
	Service     models.Service  `json:"service"`
	From        time.Time       `json:"from"`
	To          time.Time       `json:"to"`
	Entries     []LaborEntry    `json:"entries"`
	Count       int             `json:"count"`
	TotalBilled decimal.Decimal `json:"total_billed"`
}

// LaborReport lists a mechanic's invoices in [From, To] that bill the named
// service. To covers the whole of its day.
func (s *Service) LaborReport(ctx context.Context, q LaborQuery) (*LaborReport, error) {
	const op = "billing.LaborReport"

	if q.MechanicID == 0 {
		return nil, apperrors.Validation(op, "mechanic is required")
	}
	if q.ServiceName == "" {
		return nil, apperrors.Validation(op, "service name is required")
	}
	if q.From.IsZero() || q.To.IsZero() || q.To.Before(q.From) {
		return nil, apperrors.Validation(op, "a valid date range is required")
	}

	var (
		service  *models.Service
		mechanic *models.Mechanic
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		service, err = s.store.Services().FindActiveByName(gctx, q.ServiceName)
		return err
	})
	g.Go(func() error {
		var err error
		mechanic, err = s.store.Mechanics().Get(gctx, q.MechanicID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	from := q.From
	to := endOfDay(q.To)
	invoices, err := s.store.Invoices().List(ctx, repository.InvoiceFilter{
		MechanicID: mechanic.ID,
		From:       &from,
		To:         &to,
	}, repository.WithLines, repository.WithClient)
	if err != nil {
		return nil, err
	}

	report := &LaborReport{
		Mechanic:    *mechanic,
		Service:     *service,
		From:        from,
		To:          to,
		Entries:     []LaborEntry{},
		TotalBilled: decimal.Zero,
	}
	for _, inv := range invoices {
		line, ok := serviceLine(inv.Lines, service.ID)
		if !ok {
			continue
		}
		entry := LaborEntry{
			InvoiceID: inv.ID,
			Date:      inv.CreatedAt,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Amount:    line.Quantity.Mul(line.UnitPrice),
		}
		if inv.Client != nil {
			entry.ClientName = inv.Client.Name
		}
		report.Entries = append(report.Entries, entry)
		report.TotalBilled = report.TotalBilled.Add(entry.Amount)
	}
	report.Count = len(report.Entries)
	return report, nil
}

func serviceLine(lines []models.InvoiceLine, serviceID uint) (models.InvoiceLine, bool) {
	for _, l := range lines {
		if l.ServiceID != nil && *l.ServiceID == serviceID {
			return l, true
		}
	}
	return models.InvoiceLine{}, false
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}
