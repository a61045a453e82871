package repository

import (
	"context"

	"github.com/jhoicas/recepcion-despacho/internal/domain/entity"
)

// OrderRepository define el puerto de lectura de órdenes (compra o despacho según el flujo del adaptador).
type OrderRepository interface {
	// GetWithLines devuelve la orden con sus líneas, o nil si no existe.
	GetWithLines(ctx context.Context, id string) (*entity.Order, error)
}

// DeliveryApplier es el contrato del RPC atómico del backend: suma delta a lo registrado
// de la línea y devuelve el nuevo total y si la línea/orden quedaron completas.
// Debe ser atómico frente a otros llamadores concurrentes.
type DeliveryApplier interface {
	ApplyDelivery(ctx context.Context, orderID, productID string, delta int64) (*entity.DeliveryResult, error)
}
