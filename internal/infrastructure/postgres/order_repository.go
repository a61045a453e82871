package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/recepcion-despacho/internal/domain/entity"
	"github.com/jhoicas/recepcion-despacho/internal/domain/repository"
)

var _ repository.OrderRepository = (*OrderRepo)(nil)

// OrderRepo lee órdenes de compra o de despacho según las tablas del flujo.
type OrderRepo struct {
	q      Querier
	tables FlowTables
}

// NewOrderRepository construye el adaptador. Pasar pool o tx (Querier).
func NewOrderRepository(q Querier, tables FlowTables) *OrderRepo {
	return &OrderRepo{q: q, tables: tables}
}

// GetWithLines obtiene la orden y sus líneas; nil si no existe.
func (r *OrderRepo) GetWithLines(ctx context.Context, id string) (*entity.Order, error) {
	query := fmt.Sprintf(`
		SELECT id, status, ordered_by, ordered_for, created_at
		FROM %s WHERE id = $1`, r.tables.Orders)
	o := entity.Order{Flow: r.tables.Flow}
	var orderedBy, orderedFor *string
	err := r.q.QueryRow(ctx, query, id).Scan(&o.ID, &o.Status, &orderedBy, &orderedFor, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	o.OrderedBy = derefString(orderedBy)
	o.OrderedFor = derefString(orderedFor)

	lines, err := r.listLines(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Lines = lines
	return &o, nil
}

func (r *OrderRepo) listLines(ctx context.Context, orderID string) ([]entity.LineItem, error) {
	query := fmt.Sprintf(`
		SELECT id, order_id, product_id, location_id, required_quantity, unit_cost
		FROM %s WHERE order_id = $1 ORDER BY position, id`, r.tables.Lines)
	rows, err := r.q.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order lines: %w", err)
	}
	defer rows.Close()
	var lines []entity.LineItem
	for rows.Next() {
		var l entity.LineItem
		var locationID *string
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &locationID, &l.RequiredQuantity, &l.UnitCost); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		l.LocationID = derefString(locationID)
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
