package db

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturaIA/hoadon-extractor/internal/models"
)

func TestDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "")
	assert.Empty(t, DatabaseURL())

	t.Setenv("DB_HOST", "pg")
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "hoadon")
	t.Setenv("DB_PORT", "")
	assert.Equal(t, "postgresql://app:secret@pg:5432/hoadon?sslmode=disable", DatabaseURL())

	t.Setenv("DATABASE_URL", "postgres://x")
	assert.Equal(t, "postgres://x", DatabaseURL())
}

func TestInvoiceColumns(t *testing.T) {
	rec := models.NewRecord("a.pdf")
	rec.Seller = "CÔNG TY A"
	rec.PreTax = models.Resolved(1000000)
	rec.Total = models.RawAmount("không nhận diện được")

	inv := &Invoice{Record: rec, Source: "text", Valid: true}
	cols, err := inv.columns()
	require.NoError(t, err)
	require.Len(t, cols, 15)

	assert.Equal(t, "CÔNG TY A", cols[3])
	require.NotNil(t, cols[6])
	assert.Equal(t, int64(1000000), *cols[6].(*int64))
	assert.Nil(t, cols[7].(*int64))
	assert.Nil(t, cols[8].(*int64))
	assert.JSONEq(t, "[]", cols[10].(string))
	assert.JSONEq(t, "[]", cols[11].(string))
	assert.Equal(t, "text", cols[14])
}

func TestNoDatabase(t *testing.T) {
	Pool = nil
	ctx := context.Background()

	assert.ErrorIs(t, SaveExtraction(ctx, &Invoice{Record: models.NewRecord("a.pdf")}), ErrNoDatabase)
	_, err := GetInvoice(ctx, "a", uuid.NewString())
	assert.ErrorIs(t, err, ErrNoDatabase)
	_, _, err = ListInvoices(ctx, "a", 10, 0)
	assert.ErrorIs(t, err, ErrNoDatabase)
	_, err = GetMonthlyStats(ctx, "a")
	assert.ErrorIs(t, err, ErrNoDatabase)
	_, err = GetUserByEmail(ctx, "a@b.c")
	assert.ErrorIs(t, err, ErrNoDatabase)
}
