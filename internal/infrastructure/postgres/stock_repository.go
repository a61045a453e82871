package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/recepcion-despacho/internal/domain/entity"
	"github.com/jhoicas/recepcion-despacho/internal/domain/repository"
)

var _ repository.StockRepository = (*StockRepo)(nil)

// StockRepo implementación de StockRepository sobre PostgreSQL (usable con pool o tx).
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

// Get obtiene el stock actual de un producto en una bodega. La columna es NUMERIC;
// se trunca a unidades enteras.
func (r *StockRepo) Get(ctx context.Context, productID, warehouseID string) (*entity.Stock, error) {
	query := `
		SELECT quantity, updated_at
		FROM stock WHERE product_id = $1 AND warehouse_id = $2`
	s := entity.Stock{ProductID: productID, WarehouseID: warehouseID}
	var qty decimal.Decimal
	err := r.q.QueryRow(ctx, query, productID, warehouseID).Scan(&qty, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &s, nil
		}
		return nil, fmt.Errorf("get stock: %w", err)
	}
	s.Quantity = qty.IntPart()
	return &s, nil
}
