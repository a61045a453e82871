package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/recepcion-despacho/internal/domain/entity"
	"github.com/jhoicas/recepcion-despacho/internal/domain/repository"
)

var _ repository.DeliveryApplier = (*DeliveryRPC)(nil)

// DeliveryRPC invoca la función de BD que suma lo recibido/despachado a la línea
// bajo bloqueo de fila y actualiza el estado de la orden.
type DeliveryRPC struct {
	q      Querier
	tables FlowTables
}

// NewDeliveryRPC construye el adaptador del RPC atómico.
func NewDeliveryRPC(q Querier, tables FlowTables) *DeliveryRPC {
	return &DeliveryRPC{q: q, tables: tables}
}

// ApplyDelivery suma delta a la línea (order, product) y devuelve el nuevo total.
func (r *DeliveryRPC) ApplyDelivery(ctx context.Context, orderID, productID string, delta int64) (*entity.DeliveryResult, error) {
	query := fmt.Sprintf(`SELECT new_total, line_complete, order_complete FROM %s($1, $2, $3)`, r.tables.ApplyFunc)
	var (
		newTotal      *int64
		lineComplete  *bool
		orderComplete *bool
	)
	err := r.q.QueryRow(ctx, query, orderID, productID, delta).Scan(&newTotal, &lineComplete, &orderComplete)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: sin respuesta para la línea %s", r.tables.ApplyFunc, productID)
		}
		return nil, mapPgError(r.tables.ApplyFunc, err)
	}
	return deliveryResult(newTotal, lineComplete, orderComplete)
}

// deliveryResult valida la forma de la respuesta; new_total es obligatorio.
func deliveryResult(newTotal *int64, lineComplete, orderComplete *bool) (*entity.DeliveryResult, error) {
	if newTotal == nil {
		return nil, errors.New("respuesta del RPC sin new_total")
	}
	if *newTotal < 0 {
		return nil, fmt.Errorf("respuesta del RPC con new_total negativo: %d", *newTotal)
	}
	res := &entity.DeliveryResult{NewTotal: *newTotal}
	if lineComplete != nil {
		res.LineComplete = *lineComplete
	}
	if orderComplete != nil {
		res.OrderComplete = *orderComplete
	}
	return res, nil
}
