package repository

import (
	"context"

	"github.com/jhoicas/recepcion-despacho/internal/domain/entity"
)

// InventoryMovementRepository define el puerto de persistencia para movimientos de inventario.
type InventoryMovementRepository interface {
	// InsertBatch inserta todos los movimientos y devuelve cuántas filas se insertaron.
	InsertBatch(ctx context.Context, movements []*entity.InventoryMovement) (int64, error)
	// ListByOrder devuelve todos los movimientos de la orden, anulados incluidos.
	ListByOrder(ctx context.Context, orderID string) ([]*entity.InventoryMovement, error)
	// ListCancelledIDs devuelve los IDs de movimientos anulados de la orden.
	ListCancelledIDs(ctx context.Context, orderID string) ([]string, error)
	// ListByBatch devuelve los movimientos de un lote confirmado.
	ListByBatch(ctx context.Context, batchID string) ([]*entity.InventoryMovement, error)
}
