package repository

import (
	"context"

	"github.com/jhoicas/recepcion-despacho/internal/domain/entity"
)

// StockRepository define el puerto para consultar stock por bodega+producto.
type StockRepository interface {
	// Get devuelve el stock actual; cantidad cero si no hay fila.
	Get(ctx context.Context, productID, warehouseID string) (*entity.Stock, error)
}
