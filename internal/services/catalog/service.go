package catalog

import (
	"context"

	"workshop-billing-backend/internal/models"
	"workshop-billing-backend/internal/repository"

	"golang.org/x/sync/errgroup"
)

// Availability is what can be put on a new order or invoice right now.
type Availability struct {
	Products []models.Product `json:"products"`
	Services []models.Service `json:"services"`
}

type Service struct {
	store repository.Store
}

func NewService(store repository.Store) *Service {
	return &Service{store: store}
}

// Available lists products with stock left and active services.
func (s *Service) Available(ctx context.Context) (*Availability, error) {
	var out Availability

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		products, err := s.store.Products().List(gctx, repository.ProductFilter{InStock: true})
		out.Products = products
		return err
	})
	g.Go(func() error {
		services, err := s.store.Services().ListActive(gctx)
		out.Services = services
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if out.Products == nil {
		out.Products = []models.Product{}
	}
	if out.Services == nil {
		out.Services = []models.Service{}
	}
	return &out, nil
}
