package lines

import (
	"context"
	"errors"
	"testing"

	"workshop-billing-backend/internal/apperrors"
	"workshop-billing-backend/internal/models"
	"workshop-billing-backend/internal/repository/repotest"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func uptr(v uint) *uint { return &v }

func TestNormalize(t *testing.T) {
	pid, sid := uptr(1), uptr(2)

	tests := []struct {
		name    string
		line    models.LineItem
		want    models.LineCategory
		wantErr bool
	}{
		{name: "product ref fills tag", line: models.LineItem{Quantity: d("1"), UnitPrice: d("1"), ProductID: pid}, want: models.CategoryProduct},
		{name: "service ref fills tag", line: models.LineItem{Quantity: d("1"), UnitPrice: d("1"), ServiceID: sid}, want: models.CategoryService},
		{name: "untagged free text stays untagged", line: models.LineItem{Description: "Mano de obra", Quantity: d("1.5"), UnitPrice: d("0")}, want: ""},
		{name: "tagged other kept", line: models.LineItem{Description: "Mano de obra", Quantity: d("1"), UnitPrice: d("20"), Category: models.CategoryOther}, want: models.CategoryOther},
		{name: "tagged service without ref", line: models.LineItem{Description: "Lavado", Quantity: d("1"), UnitPrice: d("5"), Category: models.CategoryService}, want: models.CategoryService},
		{name: "zero quantity", line: models.LineItem{Description: "x", Quantity: d("0"), UnitPrice: d("1")}, wantErr: true},
		{name: "negative price", line: models.LineItem{Description: "x", Quantity: d("1"), UnitPrice: d("-1")}, wantErr: true},
		{name: "both refs", line: models.LineItem{Quantity: d("1"), UnitPrice: d("1"), ProductID: pid, ServiceID: sid}, wantErr: true},
		{name: "other with ref", line: models.LineItem{Quantity: d("1"), UnitPrice: d("1"), Category: models.CategoryOther, ProductID: pid}, wantErr: true},
		{name: "product tag with service ref", line: models.LineItem{Quantity: d("1"), UnitPrice: d("1"), Category: models.CategoryProduct, ServiceID: sid}, wantErr: true},
		{name: "no description no ref", line: models.LineItem{Quantity: d("1"), UnitPrice: d("1")}, wantErr: true},
		{name: "unknown tag", line: models.LineItem{Description: "x", Quantity: d("1"), UnitPrice: d("1"), Category: "GIFT"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Normalize("test", []models.LineItem{tt.line})
			if tt.wantErr {
				assert.True(t, errors.Is(err, apperrors.ErrValidation), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, out[0].Category)
		})
	}
}

func TestNormalizeRequiresLines(t *testing.T) {
	_, err := Normalize("test", nil)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestNormalizeTrimsDescription(t *testing.T) {
	out, err := Normalize("test", []models.LineItem{{Description: "  Lavado  ", Quantity: d("1"), UnitPrice: d("5")}})
	require.NoError(t, err)
	assert.Equal(t, "Lavado", out[0].Description)
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	p := store.AddProduct(models.Product{Name: "Filtro de aceite", Stock: d("4")})
	active := store.AddService(models.Service{Name: "Sincronización", Active: true})
	retired := store.AddService(models.Service{Name: "Carburación", Active: false})

	out, err := Resolve(ctx, store, "test", []models.LineItem{
		{Quantity: d("1"), UnitPrice: d("10"), ProductID: uptr(p.ID)},
		{Description: "Sincronización completa", Quantity: d("1"), UnitPrice: d("60"), ServiceID: uptr(active.ID)},
		{Description: "Mano de obra", Quantity: d("1"), UnitPrice: d("20")},
	})
	require.NoError(t, err)
	assert.Equal(t, "Filtro de aceite", out[0].Description)
	assert.Equal(t, "Sincronización completa", out[1].Description)

	_, err = Resolve(ctx, store, "test", []models.LineItem{{Quantity: d("1"), UnitPrice: d("1"), ServiceID: uptr(retired.ID)}})
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
	assert.Contains(t, apperrors.Message(err), "Carburación")

	_, err = Resolve(ctx, store, "test", []models.LineItem{{Quantity: d("1"), UnitPrice: d("1"), ProductID: uptr(999)}})
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}
