package repotest

import (
	"workshop-billing-backend/internal/models"

	"github.com/shopspring/decimal"
)

// Seed helpers. Each assigns an id and returns the stored row.

func (s *Store) AddClient(c models.Client) models.Client {
	s.with(func(st *state) {
		c.ID = st.nextID()
		st.clients[c.ID] = c
	})
	return c
}

func (s *Store) AddVehicle(v models.Vehicle) models.Vehicle {
	s.with(func(st *state) {
		v.ID = st.nextID()
		st.vehicles[v.ID] = v
	})
	return v
}

func (s *Store) AddMechanic(m models.Mechanic) models.Mechanic {
	s.with(func(st *state) {
		m.ID = st.nextID()
		st.mechanics[m.ID] = m
	})
	return m
}

func (s *Store) AddUser(u models.User) models.User {
	s.with(func(st *state) {
		u.ID = st.nextID()
		st.users[u.ID] = u
	})
	return u
}

func (s *Store) AddProduct(p models.Product) models.Product {
	s.with(func(st *state) {
		p.ID = st.nextID()
		st.products[p.ID] = p
	})
	return p
}

func (s *Store) AddService(sv models.Service) models.Service {
	s.with(func(st *state) {
		sv.ID = st.nextID()
		st.services[sv.ID] = sv
	})
	return sv
}

// AddOrder stores o as-is. A zero id is assigned from the sequence.
func (s *Store) AddOrder(o models.Order) models.Order {
	s.with(func(st *state) {
		if o.ID == 0 {
			o.ID = st.nextID()
		} else if o.ID > st.seq {
			st.seq = o.ID
		}
		for i := range o.Lines {
			o.Lines[i].ID = st.nextID()
			o.Lines[i].OrderID = o.ID
		}
		o.Lines = append([]models.OrderLine(nil), o.Lines...)
		st.orders[o.ID] = o
	})
	return o
}

// AddInvoice stores inv as-is, including a set DeletedAt.
func (s *Store) AddInvoice(inv models.Invoice) models.Invoice {
	s.with(func(st *state) {
		inv.ID = st.nextID()
		if inv.CreatedAt.IsZero() {
			inv.CreatedAt = s.db.now()
		}
		for i := range inv.Lines {
			inv.Lines[i].ID = st.nextID()
			inv.Lines[i].InvoiceID = inv.ID
		}
		inv.Lines = append([]models.InvoiceLine(nil), inv.Lines...)
		st.invoices[inv.ID] = inv
	})
	return inv
}

// Inspection helpers. They ignore soft deletion.

func (s *Store) Product(id uint) (p models.Product) {
	s.with(func(st *state) { p = st.products[id] })
	return p
}

func (s *Store) Stock(id uint) decimal.Decimal {
	return s.Product(id).Stock
}

func (s *Store) Order(id uint) (o models.Order, ok bool) {
	s.with(func(st *state) { o, ok = st.orders[id] })
	return o, ok
}

func (s *Store) Invoice(id uint) (inv models.Invoice, ok bool) {
	s.with(func(st *state) { inv, ok = st.invoices[id] })
	return inv, ok
}

func (s *Store) InvoiceCount() (n int) {
	s.with(func(st *state) { n = len(st.invoices) })
	return n
}

func (s *Store) Movements() (out []models.StockMovement) {
	s.with(func(st *state) { out = append(out, st.movements...) })
	return out
}

func (s *Store) DeliveryLog() (out []models.InvoiceDelivery) {
	s.with(func(st *state) { out = append(out, st.deliveries...) })
	return out
}

// SetStock overwrites a product's stock, bypassing the ledger.
func (s *Store) SetStock(id uint, stock decimal.Decimal) {
	s.with(func(st *state) {
		p := st.products[id]
		p.Stock = stock
		st.products[id] = p
	})
}
