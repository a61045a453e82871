package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa un producto o SKU del inventario.
type Product struct {
	ID          string
	SKU         string // código único
	Barcode     string
	Name        string
	UnitMeasure string
	Cost        decimal.Decimal // costo promedio ponderado
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
