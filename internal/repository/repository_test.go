package repository

import (
	"context"
	"errors"
	"testing"

	"workshop-billing-backend/internal/apperrors"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestInvoiceRepository_ActiveForOrder(t *testing.T) {
	const query = `^SELECT count\(\*\) FROM "invoices" WHERE order_id = \$1 AND id <> \$2 AND "invoices"\."deleted_at" IS NULL$`

	tests := []struct {
		name  string
		count int
		want  bool
	}{
		{name: "live invoice present", count: 1, want: true},
		{name: "only deleted or excluded", count: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			mock.ExpectQuery(query).
				WithArgs(7, 3).
				WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(tt.count))

			got, err := NewInvoiceRepository(db).ActiveForOrder(context.Background(), 7, 3)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestInvoiceRepository_SoftDeleteAndRestore(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	repo := NewInvoiceRepository(db)

	mock.ExpectExec(`^UPDATE "invoices" SET "deleted_at"=\$1 WHERE "invoices"\."id" = \$2 AND "invoices"\."deleted_at" IS NULL$`).
		WithArgs(sqlmock.AnyArg(), 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SoftDelete(ctx, 5))

	// Restore must bypass the soft-delete scope and only touch deleted rows.
	mock.ExpectExec(`^UPDATE "invoices" SET "deleted_at"=\$1,"updated_at"=\$2 WHERE id = \$3 AND deleted_at IS NOT NULL$`).
		WithArgs(nil, sqlmock.AnyArg(), 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Restore(ctx, 5))

	mock.ExpectExec(`^UPDATE "invoices" SET "deleted_at"=\$1,"updated_at"=\$2 WHERE id = \$3 AND deleted_at IS NOT NULL$`).
		WithArgs(nil, sqlmock.AnyArg(), 6).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.Restore(ctx, 6)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound), "got %v", err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_StockUpdates(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	repo := NewProductRepository(db)

	mock.ExpectQuery(`^SELECT \* FROM "products" WHERE "products"\."id" = \$1 ORDER BY "products"\."id" LIMIT \$2 FOR UPDATE$`).
		WithArgs(4, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price", "stock"}).AddRow(4, "Filtro de aceite", "12.00", "3.500"))

	p, err := repo.GetForUpdate(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, "Filtro de aceite", p.Name)
	assert.True(t, decimal.RequireFromString("3.5").Equal(p.Stock))

	delta := decimal.RequireFromString("-2")
	mock.ExpectExec(`^UPDATE "products" SET "stock"=stock \+ \$1,"updated_at"=\$2 WHERE id = \$3$`).
		WithArgs(delta, sqlmock.AnyArg(), 4).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.AdjustStock(ctx, 4, delta))

	mock.ExpectExec(`^UPDATE "products" SET "stock"=stock \+ \$1`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err = repo.AdjustStock(ctx, 99, delta)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound), "got %v", err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_TransactionRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`^SELECT \* FROM "products" WHERE "products"\."id" = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))
	mock.ExpectRollback()

	err := store.Transaction(context.Background(), func(tx Store) error {
		_, err := tx.Products().Get(context.Background(), 8)
		return err
	})
	assert.True(t, errors.Is(err, apperrors.ErrNotFound), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
