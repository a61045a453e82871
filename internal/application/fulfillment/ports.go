package fulfillment

import (
	"context"

	"github.com/jhoicas/recepcion-despacho/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando el repositorio
// de movimientos atado a esa tx. Si fn devuelve error se hace Rollback.
type TxRunner interface {
	Run(ctx context.Context, fn func(movRepo repository.InventoryMovementRepository) error) error
}

// Deps puertos que necesita una instancia del motor (todos del mismo flujo).
type Deps struct {
	Orders     repository.OrderRepository
	Movements  repository.InventoryMovementRepository
	Delivery   repository.DeliveryApplier
	Products   repository.ProductRepository
	Warehouses repository.WarehouseRepository
	Stock      repository.StockRepository
	TxRunner   TxRunner
}
