package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento de inventario.
const (
	MovementTypeIN  = "IN"  // entrada
	MovementTypeOUT = "OUT" // salida
)

// InventoryMovement es un registro durable de entrada o salida. Solo se agrega;
// la anulación la hace un proceso externo y se observa al releer (Cancelled).
type InventoryMovement struct {
	ID          string
	BatchID     string // un lote por confirmación
	OrderID     string // vacío si el movimiento no está ligado a una orden
	ProductID   string
	WarehouseID string
	LocationID  string
	Type        string
	Quantity    int64 // siempre positivo; el tipo indica el sentido
	UnitCost    decimal.Decimal
	TotalCost   decimal.Decimal
	Barcode     string
	CreatedAt   time.Time
	CreatedBy   string
	Cancelled   bool
}
