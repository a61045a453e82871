package pdf

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/recepcion-despacho/internal/application/fulfillment"
	"github.com/jhoicas/recepcion-despacho/internal/domain/entity"
)

func TestFormatMoney(t *testing.T) {
	cases := map[string]string{
		"0":       "0",
		"999":     "999",
		"25000":   "25.000",
		"1000000": "1.000.000",
		"12500.6": "12.501",
		"-4500":   "-4.500",
	}
	for in, want := range cases {
		assert.Equal(t, want, formatMoney(decimal.RequireFromString(in)), in)
	}
}

func TestSlipTitle(t *testing.T) {
	assert.Equal(t, "Comprobante de recepción", slipTitle(entity.FlowInbound))
	assert.Equal(t, "Comprobante de despacho", slipTitle(entity.FlowOutbound))
}

func TestGenerateSlip_ProducePDF(t *testing.T) {
	g := NewMarotoSlipGenerator("Bodegas S.A.S.")
	data := fulfillment.SlipData{
		Flow:      entity.FlowInbound,
		BatchID:   "7d1f0c9e-0000-4000-8000-000000000001",
		Order:     &entity.Order{ID: "po-1", Status: entity.OrderStatusPartial, OrderedFor: "Proveedor"},
		Warehouse: &entity.Warehouse{ID: "wh-1", Name: "Principal"},
		CreatedAt: time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC),
		CreatedBy: "user-1",
		Lines: []fulfillment.SlipLine{
			{SKU: "SKU-1", ProductName: "Tornillo", Quantity: 4, UnitCost: decimal.NewFromInt(250), TotalCost: decimal.NewFromInt(1000)},
			{SKU: "SKU-2", ProductName: "Tuerca", Quantity: 1, UnitCost: decimal.NewFromInt(100), TotalCost: decimal.NewFromInt(100), Cancelled: true},
		},
		TotalUnits: 4,
		TotalCost:  decimal.NewFromInt(1000),
	}

	out, err := g.GenerateSlip(context.Background(), data)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")), "debe ser un documento PDF")

	data.Flow = entity.FlowOutbound
	data.Order = nil
	data.Warehouse = nil
	out, err = g.GenerateSlip(context.Background(), data)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}
