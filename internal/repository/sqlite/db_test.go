package sqlite

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/home-store/internal/domain"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()

	db, err := NewDB(ctx, DefaultConfig(":memory:"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate(ctx))
	return db
}

func createTestUser(t *testing.T, db *DB, username string) *domain.User {
	t.Helper()
	user := domain.NewUser(username, username+"@example.com", "hash")
	require.NoError(t, NewUserRepository(db).Create(context.Background(), user))
	return user
}

func createTestProduct(t *testing.T, db *DB, slug, price, discount string) *domain.Product {
	t.Helper()
	product := &domain.Product{
		Name:     slug,
		Slug:     slug,
		Price:    decimal.RequireFromString(price),
		Discount: decimal.RequireFromString(discount),
		Quantity: 10,
	}
	require.NoError(t, NewProductRepository(db).Create(context.Background(), product))
	return product
}

func TestMigrate_IsIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Migrate(ctx))

	version, err := db.CurrentVersion(ctx)
	require.NoError(t, err)

	migrations, err := Migrations()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)
	assert.Equal(t, migrations[len(migrations)-1].Version, version)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "alice")

	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `UPDATE users SET first_name = 'Changed' WHERE id = ?`, user.ID)
		require.NoError(t, err)
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	got, err := NewUserRepository(db).GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, got.FirstName)
}

func TestHealth(t *testing.T) {
	db := newTestDB(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, db.Health(ctx))
}
