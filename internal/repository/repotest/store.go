// Package repotest provides an in-memory repository.Store for exercising the
// engines without a database. Transactions snapshot the whole state and put
// it back when the callback fails.
package repotest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"workshop-billing-backend/internal/apperrors"
	"workshop-billing-backend/internal/models"
	"workshop-billing-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type state struct {
	seq        uint
	invoices   map[uint]models.Invoice
	orders     map[uint]models.Order
	products   map[uint]models.Product
	services   map[uint]models.Service
	clients    map[uint]models.Client
	vehicles   map[uint]models.Vehicle
	mechanics  map[uint]models.Mechanic
	users      map[uint]models.User
	movements  []models.StockMovement
	deliveries []models.InvoiceDelivery
	runs       map[uuid.UUID]models.DiagnosticRun
}

func newState() *state {
	return &state{
		invoices:  map[uint]models.Invoice{},
		orders:    map[uint]models.Order{},
		products:  map[uint]models.Product{},
		services:  map[uint]models.Service{},
		clients:   map[uint]models.Client{},
		vehicles:  map[uint]models.Vehicle{},
		mechanics: map[uint]models.Mechanic{},
		users:     map[uint]models.User{},
		runs:      map[uuid.UUID]models.DiagnosticRun{},
	}
}

func (s *state) clone() *state {
	c := newState()
	c.seq = s.seq
	for k, v := range s.invoices {
		v.Lines = append([]models.InvoiceLine(nil), v.Lines...)
		c.invoices[k] = v
	}
	for k, v := range s.orders {
		v.Lines = append([]models.OrderLine(nil), v.Lines...)
		c.orders[k] = v
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.services {
		c.services[k] = v
	}
	for k, v := range s.clients {
		c.clients[k] = v
	}
	for k, v := range s.vehicles {
		c.vehicles[k] = v
	}
	for k, v := range s.mechanics {
		c.mechanics[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.runs {
		c.runs[k] = v
	}
	c.movements = append([]models.StockMovement(nil), s.movements...)
	c.deliveries = append([]models.InvoiceDelivery(nil), s.deliveries...)
	return c
}

func (s *state) nextID() uint {
	s.seq++
	return s.seq
}

type memDB struct {
	mu   sync.Mutex
	txMu sync.Mutex
	st   *state
	now  func() time.Time
}

// Store implements repository.Store in memory.
type Store struct {
	db   *memDB
	inTx bool
}

var _ repository.Store = (*Store)(nil)

func New() *Store {
	return &Store{db: &memDB{st: newState(), now: time.Now}}
}

// SetClock pins the timestamps the store assigns.
func (s *Store) SetClock(now func() time.Time) {
	s.db.now = now
}

func (s *Store) Transaction(ctx context.Context, fn func(tx repository.Store) error) (err error) {
	if s.inTx {
		return fn(s)
	}

	s.db.txMu.Lock()
	defer s.db.txMu.Unlock()

	s.db.mu.Lock()
	snapshot := s.db.st.clone()
	s.db.mu.Unlock()

	rollback := func() {
		s.db.mu.Lock()
		s.db.st = snapshot
		s.db.mu.Unlock()
	}

	defer func() {
		if r := recover(); r != nil {
			rollback()
			panic(r)
		}
	}()

	if err = fn(&Store{db: s.db, inTx: true}); err != nil {
		rollback()
	}
	return err
}

func (s *Store) with(fn func(st *state)) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	fn(s.db.st)
}

func (s *Store) Invoices() repository.InvoiceStore             { return invoices{s} }
func (s *Store) Orders() repository.OrderStore                 { return orders{s} }
func (s *Store) Products() repository.ProductStore             { return products{s} }
func (s *Store) Services() repository.ServiceStore             { return services{s} }
func (s *Store) Clients() repository.ClientStore               { return clients{s} }
func (s *Store) Vehicles() repository.VehicleStore             { return vehicles{s} }
func (s *Store) Mechanics() repository.MechanicStore           { return mechanics{s} }
func (s *Store) Users() repository.UserStore                   { return users{s} }
func (s *Store) StockMovements() repository.StockMovementStore { return movements{s} }
func (s *Store) Deliveries() repository.DeliveryStore          { return deliveries{s} }
func (s *Store) DiagnosticRuns() repository.DiagnosticRunStore { return runs{s} }

func hasRel(rels []repository.Relation, want repository.Relation) bool {
	for _, r := range rels {
		if r == want {
			return true
		}
	}
	return false
}

// ---- invoices

type invoices struct{ s *Store }

func (r invoices) attach(st *state, inv models.Invoice, rels []repository.Relation) models.Invoice {
	if hasRel(rels, repository.WithLines) {
		inv.Lines = append([]models.InvoiceLine(nil), inv.Lines...)
	} else {
		inv.Lines = nil
	}
	if hasRel(rels, repository.WithClient) {
		if c, ok := st.clients[inv.ClientID]; ok {
			inv.Client = &c
		}
	}
	if hasRel(rels, repository.WithVehicle) && inv.VehicleID != nil {
		if v, ok := st.vehicles[*inv.VehicleID]; ok {
			inv.Vehicle = &v
		}
	}
	if hasRel(rels, repository.WithMechanic) && inv.MechanicID != nil {
		if m, ok := st.mechanics[*inv.MechanicID]; ok {
			inv.Mechanic = &m
		}
	}
	if hasRel(rels, repository.WithOrder) && inv.OrderID != nil {
		if o, ok := st.orders[*inv.OrderID]; ok {
			o.Lines = nil
			if hasRel(rels, repository.WithOrderVehicle) && o.VehicleID != nil {
				if v, ok := st.vehicles[*o.VehicleID]; ok {
					o.Vehicle = &v
				}
			}
			inv.Order = &o
		}
	}
	return inv
}

func (r invoices) Get(ctx context.Context, id uint, rels ...repository.Relation) (out *models.Invoice, err error) {
	r.s.with(func(st *state) {
		inv, ok := st.invoices[id]
		if !ok || inv.DeletedAt.Valid {
			err = apperrors.NotFound("invoices.Get", "invoice %d not found", id)
			return
		}
		inv = r.attach(st, inv, rels)
		out = &inv
	})
	return out, err
}

func (r invoices) GetForUpdate(ctx context.Context, id uint) (*models.Invoice, error) {
	return r.Get(ctx, id, repository.WithLines)
}

func (r invoices) GetWithDeleted(ctx context.Context, id uint) (out *models.Invoice, err error) {
	r.s.with(func(st *state) {
		inv, ok := st.invoices[id]
		if !ok {
			err = apperrors.NotFound("invoices.GetWithDeleted", "invoice %d not found", id)
			return
		}
		inv = r.attach(st, inv, []repository.Relation{repository.WithLines})
		out = &inv
	})
	return out, err
}

func activeForOrder(st *state, orderID, excludeID uint) bool {
	for id, inv := range st.invoices {
		if id == excludeID || inv.DeletedAt.Valid || inv.OrderID == nil {
			continue
		}
		if *inv.OrderID == orderID {
			return true
		}
	}
	return false
}

func (r invoices) ActiveForOrder(ctx context.Context, orderID uint, excludeID uint) (found bool, err error) {
	r.s.with(func(st *state) {
		found = activeForOrder(st, orderID, excludeID)
	})
	return found, nil
}

func (r invoices) Create(ctx context.Context, inv *models.Invoice) (err error) {
	r.s.with(func(st *state) {
		if inv.OrderID != nil && activeForOrder(st, *inv.OrderID, 0) {
			err = apperrors.Conflict("invoices.Create", "invoice already exists")
			return
		}
		inv.ID = st.nextID()
		now := r.s.db.now()
		if inv.CreatedAt.IsZero() {
			inv.CreatedAt = now
		}
		inv.UpdatedAt = now
		for i := range inv.Lines {
			inv.Lines[i].ID = st.nextID()
			inv.Lines[i].InvoiceID = inv.ID
		}
		stored := *inv
		stored.Client, stored.Order, stored.Mechanic, stored.Vehicle = nil, nil, nil, nil
		stored.Lines = append([]models.InvoiceLine(nil), inv.Lines...)
		st.invoices[inv.ID] = stored
	})
	return err
}

func (r invoices) Update(ctx context.Context, inv *models.Invoice) (err error) {
	r.s.with(func(st *state) {
		cur, ok := st.invoices[inv.ID]
		if !ok || cur.DeletedAt.Valid {
			err = apperrors.NotFound("invoices.Update", "invoice %d not found", inv.ID)
			return
		}
		cur.ClientID = inv.ClientID
		cur.OrderID = inv.OrderID
		cur.MechanicID = inv.MechanicID
		cur.VehicleID = inv.VehicleID
		cur.Total = inv.Total
		cur.PaymentMethod = inv.PaymentMethod
		cur.PaymentState = inv.PaymentState
		cur.PaidAt = inv.PaidAt
		cur.Notes = inv.Notes
		cur.UpdatedAt = r.s.db.now()
		st.invoices[inv.ID] = cur
	})
	return err
}

func (r invoices) ReplaceLines(ctx context.Context, invoiceID uint, lines []models.InvoiceLine) (err error) {
	r.s.with(func(st *state) {
		cur, ok := st.invoices[invoiceID]
		if !ok {
			err = apperrors.NotFound("invoices.ReplaceLines", "invoice %d not found", invoiceID)
			return
		}
		for i := range lines {
			lines[i].ID = st.nextID()
			lines[i].InvoiceID = invoiceID
		}
		cur.Lines = append([]models.InvoiceLine(nil), lines...)
		st.invoices[invoiceID] = cur
	})
	return err
}

func (r invoices) SoftDelete(ctx context.Context, id uint) (err error) {
	r.s.with(func(st *state) {
		cur, ok := st.invoices[id]
		if !ok || cur.DeletedAt.Valid {
			err = apperrors.NotFound("invoices.SoftDelete", "invoice %d not found", id)
			return
		}
		cur.DeletedAt = gorm.DeletedAt{Time: r.s.db.now(), Valid: true}
		st.invoices[id] = cur
	})
	return err
}

func (r invoices) Restore(ctx context.Context, id uint) (err error) {
	r.s.with(func(st *state) {
		cur, ok := st.invoices[id]
		if !ok || !cur.DeletedAt.Valid {
			err = apperrors.NotFound("invoices.Restore", "deleted invoice %d not found", id)
			return
		}
		if cur.OrderID != nil && activeForOrder(st, *cur.OrderID, id) {
			err = apperrors.Conflict("invoices.Restore", "invoice already exists")
			return
		}
		cur.DeletedAt = gorm.DeletedAt{}
		st.invoices[id] = cur
	})
	return err
}

func (r invoices) List(ctx context.Context, f repository.InvoiceFilter, rels ...repository.Relation) (out []models.Invoice, err error) {
	r.s.with(func(st *state) {
		for _, inv := range st.invoices {
			if inv.DeletedAt.Valid {
				continue
			}
			if f.State != "" && inv.PaymentState != f.State {
				continue
			}
			if f.ClientID != 0 && inv.ClientID != f.ClientID {
				continue
			}
			if f.MechanicID != 0 && (inv.MechanicID == nil || *inv.MechanicID != f.MechanicID) {
				continue
			}
			if f.From != nil && inv.CreatedAt.Before(*f.From) {
				continue
			}
			if f.To != nil && inv.CreatedAt.After(*f.To) {
				continue
			}
			out = append(out, r.attach(st, inv, rels))
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r invoices) TotalsByState(ctx context.Context) (out []repository.StateTotal, err error) {
	r.s.with(func(st *state) {
		byState := map[models.PaymentState]*repository.StateTotal{}
		for _, inv := range st.invoices {
			if inv.DeletedAt.Valid {
				continue
			}
			t, ok := byState[inv.PaymentState]
			if !ok {
				t = &repository.StateTotal{State: inv.PaymentState, Sum: decimal.Zero}
				byState[inv.PaymentState] = t
			}
			t.Count++
			t.Sum = t.Sum.Add(inv.Total)
		}
		for _, t := range byState {
			out = append(out, *t)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].State < out[j].State })
	return out, nil
}

// ---- orders

type orders struct{ s *Store }

func (r orders) attach(st *state, o models.Order, rels []repository.Relation) models.Order {
	if hasRel(rels, repository.WithLines) {
		o.Lines = append([]models.OrderLine(nil), o.Lines...)
	} else {
		o.Lines = nil
	}
	if hasRel(rels, repository.WithClient) {
		if c, ok := st.clients[o.ClientID]; ok {
			o.Client = &c
		}
	}
	if hasRel(rels, repository.WithVehicle) && o.VehicleID != nil {
		if v, ok := st.vehicles[*o.VehicleID]; ok {
			o.Vehicle = &v
		}
	}
	if hasRel(rels, repository.WithMechanic) && o.MechanicID != nil {
		if m, ok := st.mechanics[*o.MechanicID]; ok {
			o.Mechanic = &m
		}
	}
	return o
}

func (r orders) Get(ctx context.Context, id uint, rels ...repository.Relation) (out *models.Order, err error) {
	r.s.with(func(st *state) {
		o, ok := st.orders[id]
		if !ok {
			err = apperrors.NotFound("orders.Get", "order %d not found", id)
			return
		}
		o = r.attach(st, o, rels)
		out = &o
	})
	return out, err
}

func (r orders) GetForUpdate(ctx context.Context, id uint) (*models.Order, error) {
	return r.Get(ctx, id, repository.WithLines)
}

func (r orders) Create(ctx context.Context, o *models.Order) (err error) {
	r.s.with(func(st *state) {
		o.ID = st.nextID()
		now := r.s.db.now()
		o.CreatedAt, o.UpdatedAt = now, now
		for i := range o.Lines {
			o.Lines[i].ID = st.nextID()
			o.Lines[i].OrderID = o.ID
		}
		stored := *o
		stored.Client, stored.Vehicle, stored.Mechanic = nil, nil, nil
		stored.Lines = append([]models.OrderLine(nil), o.Lines...)
		st.orders[o.ID] = stored
	})
	return err
}

func (r orders) Update(ctx context.Context, o *models.Order) (err error) {
	r.s.with(func(st *state) {
		cur, ok := st.orders[o.ID]
		if !ok {
			err = apperrors.NotFound("orders.Update", "order %d not found", o.ID)
			return
		}
		cur.ClientID = o.ClientID
		cur.VehicleID = o.VehicleID
		cur.MechanicID = o.MechanicID
		cur.State = o.State
		cur.Total = o.Total
		cur.Notes = o.Notes
		cur.UpdatedAt = r.s.db.now()
		st.orders[o.ID] = cur
	})
	return err
}

func (r orders) SetState(ctx context.Context, id uint, next models.OrderState) (err error) {
	r.s.with(func(st *state) {
		cur, ok := st.orders[id]
		if !ok {
			err = apperrors.NotFound("orders.SetState", "order %d not found", id)
			return
		}
		cur.State = next
		st.orders[id] = cur
	})
	return err
}

func (r orders) AddLine(ctx context.Context, line *models.OrderLine) (err error) {
	r.s.with(func(st *state) {
		cur, ok := st.orders[line.OrderID]
		if !ok {
			err = apperrors.NotFound("orders.AddLine", "order %d not found", line.OrderID)
			return
		}
		line.ID = st.nextID()
		cur.Lines = append(cur.Lines, *line)
		st.orders[line.OrderID] = cur
	})
	return err
}

func (r orders) ReplaceLines(ctx context.Context, orderID uint, lines []models.OrderLine) (err error) {
	r.s.with(func(st *state) {
		cur, ok := st.orders[orderID]
		if !ok {
			err = apperrors.NotFound("orders.ReplaceLines", "order %d not found", orderID)
			return
		}
		for i := range lines {
			lines[i].ID = st.nextID()
			lines[i].OrderID = orderID
		}
		cur.Lines = append([]models.OrderLine(nil), lines...)
		st.orders[orderID] = cur
	})
	return err
}

func (r orders) Delete(ctx context.Context, id uint) (err error) {
	r.s.with(func(st *state) {
		if _, ok := st.orders[id]; !ok {
			err = apperrors.NotFound("orders.Delete", "order %d not found", id)
			return
		}
		delete(st.orders, id)
	})
	return err
}

func (r orders) List(ctx context.Context, f repository.OrderFilter, rels ...repository.Relation) (out []models.Order, err error) {
	r.s.with(func(st *state) {
		for _, o := range st.orders {
			if f.State != "" && o.State != f.State {
				continue
			}
			if f.ClientID != 0 && o.ClientID != f.ClientID {
				continue
			}
			if f.MechanicID != 0 && (o.MechanicID == nil || *o.MechanicID != f.MechanicID) {
				continue
			}
			out = append(out, r.attach(st, o, rels))
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// ---- catalog

type products struct{ s *Store }

func (r products) Get(ctx context.Context, id uint) (out *models.Product, err error) {
	r.s.with(func(st *state) {
		p, ok := st.products[id]
		if !ok {
			err = apperrors.NotFound("products.Get", "product %d not found", id)
			return
		}
		out = &p
	})
	return out, err
}

func (r products) GetForUpdate(ctx context.Context, id uint) (*models.Product, error) {
	return r.Get(ctx, id)
}

func (r products) AdjustStock(ctx context.Context, id uint, delta decimal.Decimal) (err error) {
	r.s.with(func(st *state) {
		p, ok := st.products[id]
		if !ok {
			err = apperrors.NotFound("products.AdjustStock", "product %d not found", id)
			return
		}
		p.Stock = p.Stock.Add(delta)
		st.products[id] = p
	})
	return err
}

func (r products) List(ctx context.Context, f repository.ProductFilter) (out []models.Product, err error) {
	r.s.with(func(st *state) {
		for _, p := range st.products {
			if f.InStock && !p.Stock.IsPositive() {
				continue
			}
			if f.NegativeStock && !p.Stock.IsNegative() {
				continue
			}
			out = append(out, p)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type services struct{ s *Store }

func (r services) Get(ctx context.Context, id uint) (out *models.Service, err error) {
	r.s.with(func(st *state) {
		sv, ok := st.services[id]
		if !ok {
			err = apperrors.NotFound("services.Get", "service %d not found", id)
			return
		}
		out = &sv
	})
	return out, err
}

func (r services) FindActiveByName(ctx context.Context, name string) (out *models.Service, err error) {
	r.s.with(func(st *state) {
		var best *models.Service
		for _, sv := range st.services {
			sv := sv
			if !sv.Active || !strings.Contains(strings.ToLower(sv.Name), strings.ToLower(name)) {
				continue
			}
			if best == nil || sv.ID < best.ID {
				best = &sv
			}
		}
		if best == nil {
			err = apperrors.NotFound("services.FindActiveByName", "service %s not found", name)
			return
		}
		out = best
	})
	return out, err
}

func (r services) ListActive(ctx context.Context) (out []models.Service, err error) {
	r.s.with(func(st *state) {
		for _, sv := range st.services {
			if sv.Active {
				out = append(out, sv)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ---- parties

type clients struct{ s *Store }

func (r clients) Get(ctx context.Context, id uint) (out *models.Client, err error) {
	r.s.with(func(st *state) {
		c, ok := st.clients[id]
		if !ok {
			err = apperrors.NotFound("clients.Get", "client %d not found", id)
			return
		}
		out = &c
	})
	return out, err
}

func (r clients) Create(ctx context.Context, c *models.Client) (err error) {
	r.s.with(func(st *state) {
		for _, existing := range st.clients {
			if c.Identification != "" && existing.Identification == c.Identification {
				err = apperrors.Conflict("clients.Create", "client already exists")
				return
			}
		}
		c.ID = st.nextID()
		c.CreatedAt = r.s.db.now()
		st.clients[c.ID] = *c
	})
	return err
}

type vehicles struct{ s *Store }

func (r vehicles) Get(ctx context.Context, id uint) (out *models.Vehicle, err error) {
	r.s.with(func(st *state) {
		v, ok := st.vehicles[id]
		if !ok {
			err = apperrors.NotFound("vehicles.Get", "vehicle %d not found", id)
			return
		}
		out = &v
	})
	return out, err
}

func (r vehicles) PlateExists(ctx context.Context, plate string) (found bool, err error) {
	r.s.with(func(st *state) {
		for _, v := range st.vehicles {
			if v.Plate == plate {
				found = true
				return
			}
		}
	})
	return found, nil
}

func (r vehicles) Create(ctx context.Context, v *models.Vehicle) (err error) {
	r.s.with(func(st *state) {
		for _, existing := range st.vehicles {
			if existing.Plate == v.Plate {
				err = apperrors.Conflict("vehicles.Create", "vehicle already exists")
				return
			}
		}
		v.ID = st.nextID()
		v.CreatedAt = r.s.db.now()
		st.vehicles[v.ID] = *v
	})
	return err
}

type mechanics struct{ s *Store }

func (r mechanics) Get(ctx context.Context, id uint) (out *models.Mechanic, err error) {
	r.s.with(func(st *state) {
		m, ok := st.mechanics[id]
		if !ok {
			err = apperrors.NotFound("mechanics.Get", "mechanic %d not found", id)
			return
		}
		out = &m
	})
	return out, err
}

func (r mechanics) FindByUserID(ctx context.Context, userID uint) (out *models.Mechanic, err error) {
	r.s.with(func(st *state) {
		for _, m := range st.mechanics {
			if m.UserID != nil && *m.UserID == userID {
				m := m
				out = &m
				return
			}
		}
		err = apperrors.NotFound("mechanics.FindByUserID", "mechanic for user %d not found", userID)
	})
	return out, err
}

type users struct{ s *Store }

func (r users) FindByUsername(ctx context.Context, username string) (out *models.User, err error) {
	r.s.with(func(st *state) {
		for _, u := range st.users {
			if u.Username == username {
				u := u
				out = &u
				return
			}
		}
		err = apperrors.NotFound("users.FindByUsername", "user %s not found", username)
	})
	return out, err
}

// ---- audit

type movements struct{ s *Store }

func (r movements) Create(ctx context.Context, m *models.StockMovement) error {
	r.s.with(func(st *state) {
		if m.ID == uuid.Nil {
			m.ID = uuid.New()
		}
		m.CreatedAt = r.s.db.now()
		st.movements = append(st.movements, *m)
	})
	return nil
}

type deliveries struct{ s *Store }

func (r deliveries) Create(ctx context.Context, d *models.InvoiceDelivery) error {
	r.s.with(func(st *state) {
		if d.ID == uuid.Nil {
			d.ID = uuid.New()
		}
		d.CreatedAt = r.s.db.now()
		st.deliveries = append(st.deliveries, *d)
	})
	return nil
}

func (r deliveries) ListByInvoice(ctx context.Context, invoiceID uint) (out []models.InvoiceDelivery, err error) {
	r.s.with(func(st *state) {
		for _, d := range st.deliveries {
			if d.InvoiceID == invoiceID {
				out = append(out, d)
			}
		}
	})
	return out, nil
}

type runs struct{ s *Store }

func (r runs) Create(ctx context.Context, run *models.DiagnosticRun) error {
	r.s.with(func(st *state) {
		if run.ID == uuid.Nil {
			run.ID = uuid.New()
		}
		if run.StartedAt.IsZero() {
			run.StartedAt = r.s.db.now()
		}
		st.runs[run.ID] = *run
	})
	return nil
}

func (r runs) Update(ctx context.Context, run *models.DiagnosticRun) error {
	r.s.with(func(st *state) {
		st.runs[run.ID] = *run
	})
	return nil
}

func (r runs) Get(ctx context.Context, id uuid.UUID) (out *models.DiagnosticRun, err error) {
	r.s.with(func(st *state) {
		run, ok := st.runs[id]
		if !ok {
			err = apperrors.NotFound("diagnostic_runs.Get", "diagnostic run %s not found", id)
			return
		}
		out = &run
	})
	return out, err
}
