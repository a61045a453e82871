package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/recepcion-despacho/internal/application/fulfillment"
	"github.com/jhoicas/recepcion-despacho/internal/domain/entity"
)

// NewFlowDeps arma los adaptadores de un flujo sobre el pool.
func NewFlowDeps(pool *pgxpool.Pool, flow entity.Flow) (fulfillment.Deps, error) {
	tables, err := TablesFor(flow)
	if err != nil {
		return fulfillment.Deps{}, err
	}
	return fulfillment.Deps{
		Orders:     NewOrderRepository(pool, tables),
		Movements:  NewInventoryMovementRepository(pool, tables),
		Delivery:   NewDeliveryRPC(pool, tables),
		Products:   NewProductRepository(pool),
		Warehouses: NewWarehouseRepository(pool),
		Stock:      NewStockRepository(pool),
		TxRunner:   NewTxRunner(pool, tables),
	}, nil
}
