package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/recepcion-despacho/internal/domain/entity"
	"github.com/jhoicas/recepcion-despacho/internal/domain/repository"
)

var _ repository.InventoryMovementRepository = (*InventoryMovementRepo)(nil)

// InventoryMovementRepo persiste entradas o salidas según las tablas del flujo (usable con pool o tx).
type InventoryMovementRepo struct {
	q      Querier
	tables FlowTables
}

// NewInventoryMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInventoryMovementRepository(q Querier, tables FlowTables) *InventoryMovementRepo {
	return &InventoryMovementRepo{q: q, tables: tables}
}

// InsertBatch envía todos los INSERT en un solo pgx.Batch y suma las filas afectadas.
// Un id repetido no falla (ON CONFLICT DO NOTHING) pero no cuenta como insertado.
func (r *InventoryMovementRepo) InsertBatch(ctx context.Context, movements []*entity.InventoryMovement) (int64, error) {
	if len(movements) == 0 {
		return 0, nil
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (id, batch_id, order_id, product_id, warehouse_id, location_id, quantity, unit_cost, total_cost, barcode, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING`, r.tables.Movements)

	batch := &pgx.Batch{}
	for _, m := range movements {
		if m.ID == "" {
			m.ID = uuid.New().String()
		}
		batch.Queue(query,
			m.ID, m.BatchID, nullString(m.OrderID), m.ProductID, m.WarehouseID, nullString(m.LocationID),
			m.Quantity, m.UnitCost, m.TotalCost, nullString(m.Barcode), m.CreatedAt, nullString(m.CreatedBy),
		)
	}

	br := r.q.SendBatch(ctx, batch)
	defer br.Close()
	var inserted int64
	for range movements {
		tag, err := br.Exec()
		if err != nil {
			return inserted, mapPgError("insert movement", err)
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}

// ListByOrder lista los movimientos de la orden, marcando los anulados.
func (r *InventoryMovementRepo) ListByOrder(ctx context.Context, orderID string) ([]*entity.InventoryMovement, error) {
	return r.list(ctx, "m.order_id = $1", orderID)
}

// ListByBatch lista los movimientos de un lote confirmado.
func (r *InventoryMovementRepo) ListByBatch(ctx context.Context, batchID string) ([]*entity.InventoryMovement, error) {
	return r.list(ctx, "m.batch_id = $1", batchID)
}

// ListCancelledIDs devuelve los ids de movimientos anulados de la orden.
func (r *InventoryMovementRepo) ListCancelledIDs(ctx context.Context, orderID string) ([]string, error) {
	query := fmt.Sprintf(`SELECT movement_id FROM %s WHERE order_id = $1`, r.tables.Cancellations)
	rows, err := r.q.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("list cancellations: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan cancellation: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *InventoryMovementRepo) list(ctx context.Context, where string, arg string) ([]*entity.InventoryMovement, error) {
	query := fmt.Sprintf(`
		SELECT m.id, m.batch_id, m.order_id, m.product_id, m.warehouse_id, m.location_id, m.quantity,
		       m.unit_cost, m.total_cost, m.barcode, m.created_at, m.created_by, c.movement_id IS NOT NULL
		FROM %s m
		LEFT JOIN %s c ON c.movement_id = m.id
		WHERE %s
		ORDER BY m.created_at, m.id`, r.tables.Movements, r.tables.Cancellations, where)
	rows, err := r.q.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()

	movType := r.tables.Flow.MovementType()
	var list []*entity.InventoryMovement
	for rows.Next() {
		var (
			m                                       entity.InventoryMovement
			orderID, locationID, barcode, createdBy *string
		)
		if err := rows.Scan(&m.ID, &m.BatchID, &orderID, &m.ProductID, &m.WarehouseID, &locationID, &m.Quantity,
			&m.UnitCost, &m.TotalCost, &barcode, &m.CreatedAt, &createdBy, &m.Cancelled); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		m.OrderID = derefString(orderID)
		m.LocationID = derefString(locationID)
		m.Barcode = derefString(barcode)
		m.CreatedBy = derefString(createdBy)
		m.Type = movType
		list = append(list, &m)
	}
	return list, rows.Err()
}
