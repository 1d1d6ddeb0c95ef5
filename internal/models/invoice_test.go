package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturaIA/hoadon-extractor/internal/money"
)

func TestAmount_States(t *testing.T) {
	var a Amount
	assert.True(t, a.IsAbsent())
	_, ok := a.Value()
	assert.False(t, ok)
	assert.Equal(t, money.VND(7), a.Or(7))

	raw := RawAmount("1.080.000")
	assert.Equal(t, AmountRaw, raw.Kind())
	assert.Equal(t, "1.080.000", raw.Raw())

	res := raw.Resolve()
	v, ok := res.Value()
	require.True(t, ok)
	assert.Equal(t, money.VND(1080000), v)

	assert.True(t, RawAmount("10").Resolve().IsAbsent())
	assert.True(t, RawAmount("").IsAbsent())
}

func TestAmount_JSON(t *testing.T) {
	rec := NewRecord("a.pdf")
	rec.Total = Resolved(1080000)

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"total":"1.080.000"`)
	assert.Contains(t, string(data), `"preTax":null`)

	var back InvoiceRecord
	require.NoError(t, json.Unmarshal(data, &back))
	v, ok := back.Total.Value()
	require.True(t, ok)
	assert.Equal(t, money.VND(1080000), v)
	assert.True(t, back.PreTax.IsAbsent())

	var label Amount
	require.NoError(t, json.Unmarshal([]byte(`"10"`), &label))
	assert.Equal(t, "10", label.Raw())
}

func TestMarkUnrecognized(t *testing.T) {
	rec := NewRecord("scan.pdf")
	rec.Team = "A"
	rec.MarkUnrecognized("không nhận diện được")

	row := rec.Row()
	require.Len(t, row, len(Columns))
	assert.Equal(t, "scan.pdf", row[0])
	for i, cell := range row[1:] {
		assert.Equal(t, "không nhận diện được", cell, Columns[i+1])
	}
	assert.Equal(t, "A", rec.Team)
}

func TestCleanup(t *testing.T) {
	rec := NewRecord("x.pdf")
	rec.Seller = " CÔNG TY\tTNHH\r\n  ABC\u00ad "
	rec.Cleanup()
	assert.Equal(t, "CÔNG TY TNHH ABC", rec.Seller)
}

func TestBucket(t *testing.T) {
	rec := NewRecord("x.pdf")
	*rec.Bucket(8) = Resolved(80000)
	assert.Equal(t, "80.000", rec.Tax8.String())
	assert.Nil(t, rec.Bucket(7))
}
