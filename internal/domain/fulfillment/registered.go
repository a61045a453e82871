// Package fulfillment contiene la lógica pura de conciliación de órdenes:
// agregación de lo registrado, validación de candidatos y cálculo de avance.
package fulfillment

import "github.com/jhoicas/recepcion-despacho/internal/domain/entity"

// IntegrityWarning señala una línea cuyos movimientos durables suman más de lo requerido.
// El valor registrado se recorta igual; la advertencia permite revisar el dato en origen.
type IntegrityWarning struct {
	OrderID   string `json:"order_id"`
	ProductID string `json:"product_id"`
	Required  int64  `json:"required"`
	RawTotal  int64  `json:"raw_total"`
}

// AggregateRegistered calcula, por producto de la orden, la cantidad registrada:
// min(suma de movimientos no anulados, cantidad requerida).
// Un movimiento está anulado si viene marcado o si su ID está en cancelledIDs.
func AggregateRegistered(
	order *entity.Order,
	movements []*entity.InventoryMovement,
	cancelledIDs []string,
) (map[string]int64, []IntegrityWarning) {
	cancelled := make(map[string]struct{}, len(cancelledIDs))
	for _, id := range cancelledIDs {
		cancelled[id] = struct{}{}
	}

	sums := make(map[string]int64)
	for _, m := range movements {
		if m == nil || m.Cancelled || m.Quantity <= 0 {
			continue
		}
		if _, ok := cancelled[m.ID]; ok {
			continue
		}
		if m.OrderID != "" && m.OrderID != order.ID {
			continue
		}
		sums[m.ProductID] += m.Quantity
	}

	registered := make(map[string]int64, len(order.Lines))
	var warnings []IntegrityWarning
	for _, line := range order.Lines {
		raw := sums[line.ProductID]
		registered[line.ProductID] = Clamp(raw, line.RequiredQuantity)
		if raw > line.RequiredQuantity {
			warnings = append(warnings, IntegrityWarning{
				OrderID:   order.ID,
				ProductID: line.ProductID,
				Required:  line.RequiredQuantity,
				RawTotal:  raw,
			})
		}
	}
	return registered, warnings
}

// Clamp recorta v al rango [0, max].
func Clamp(v, max int64) int64 {
	if max < 0 {
		max = 0
	}
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
