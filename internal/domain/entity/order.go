package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Flow identifica la instancia del motor: entradas contra órdenes de compra o salidas contra órdenes de despacho.
type Flow string

const (
	FlowInbound  Flow = "INBOUND"  // orden de compra -> entrada
	FlowOutbound Flow = "OUTBOUND" // orden de despacho -> salida
)

// MovementType devuelve el tipo de movimiento que genera el flujo.
func (f Flow) MovementType() string {
	if f == FlowOutbound {
		return MovementTypeOUT
	}
	return MovementTypeIN
}

// Valid indica si el flujo es uno de los soportados.
func (f Flow) Valid() bool {
	return f == FlowInbound || f == FlowOutbound
}

// Estados de una orden.
const (
	OrderStatusOpen      = "OPEN"
	OrderStatusPartial   = "PARTIAL"
	OrderStatusCompleted = "COMPLETED"
	OrderStatusCancelled = "CANCELLED"
)

// Order representa una orden de compra (entrada) o de despacho (salida) con sus líneas.
// Es inmutable durante la sesión salvo su estado, que solo cambia al recargarla.
type Order struct {
	ID         string
	Flow       Flow
	Status     string
	OrderedBy  string
	OrderedFor string // proveedor (compra) o cliente (despacho)
	CreatedAt  time.Time
	Lines      []LineItem
}

// LineItem es una línea de la orden: un producto y la cantidad requerida.
type LineItem struct {
	ID               string
	OrderID          string
	ProductID        string
	LocationID       string // ubicación destino (obligatoria en despachos)
	RequiredQuantity int64
	UnitCost         decimal.Decimal
}

// Line devuelve la línea del producto indicado.
func (o *Order) Line(productID string) (*LineItem, bool) {
	for i := range o.Lines {
		if o.Lines[i].ProductID == productID {
			return &o.Lines[i], true
		}
	}
	return nil, false
}

// IsClosed indica si la orden ya no admite movimientos.
func (o *Order) IsClosed() bool {
	return o.Status == OrderStatusCompleted || o.Status == OrderStatusCancelled
}

// DeliveryResult es la respuesta validada del RPC atómico de incremento.
type DeliveryResult struct {
	NewTotal      int64
	LineComplete  bool
	OrderComplete bool
}
