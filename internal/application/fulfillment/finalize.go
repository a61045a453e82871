package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/recepcion-despacho/internal/domain"
	"github.com/jhoicas/recepcion-despacho/internal/domain/entity"
	domfulfillment "github.com/jhoicas/recepcion-despacho/internal/domain/fulfillment"
	"github.com/jhoicas/recepcion-despacho/internal/domain/repository"
)

// LineResult resultado del RPC atómico para una línea del carrito.
type LineResult struct {
	ProductID     string `json:"product_id"`
	Quantity      int64  `json:"quantity"`
	NewTotal      int64  `json:"new_total"`
	LineComplete  bool   `json:"line_complete"`
	OrderComplete bool   `json:"order_complete"`
	Error         string `json:"error,omitempty"`
}

// FinalizeResult resultado estructurado de una confirmación. Nunca se lanza un pánico:
// las fallas de persistencia y las parciales llegan en Err.
type FinalizeResult struct {
	BatchID        string
	State          CommitState
	Inserted       int64
	Lines          []LineResult
	FailedLines    []string // productIDs cuyo RPC falló
	Partial        bool
	OrderCompleted bool
	Warnings       []domfulfillment.IntegrityWarning
	Err            error
}

// ErrorMessage texto del error (vacío si no hubo).
func (r FinalizeResult) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// commitInput copia del estado de la sesión tomada al iniciar la confirmación.
type commitInput struct {
	sessionID   string
	actorID     string
	order       *entity.Order
	destination entity.Destination
	cart        []entity.CartItem
}

// commitOutput incluye la orden recargada para que la sesión la adopte.
type commitOutput struct {
	FinalizeResult
	order *entity.Order
}

// Finalize persiste el carrito como movimientos y concilia la orden con el backend.
// Si la inserción falla, carrito y avance de sesión quedan intactos para reintentar.
func (s *Session) Finalize(ctx context.Context, actorID string) FinalizeResult {
	s.mu.Lock()
	s.touch()
	if s.state == StateCommitting {
		s.mu.Unlock()
		return FinalizeResult{State: StateCommitting, Err: domain.ErrCommitInProgress}
	}
	if err := s.finalizePreconditionsLocked(actorID); err != nil {
		s.fail(err)
		state := s.state
		s.mu.Unlock()
		return FinalizeResult{State: state, Err: err}
	}
	in := commitInput{
		sessionID:   s.id,
		actorID:     actorID,
		order:       s.order,
		destination: s.destination,
		cart:        append([]entity.CartItem(nil), s.cart...),
	}
	s.state = StateCommitting
	s.mu.Unlock()

	out := s.engine.commit(ctx, in)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = out.State
	if out.State == StateFailed {
		s.fail(out.Err)
		return out.FinalizeResult
	}
	s.clearSessionLocked()
	if out.order != nil {
		s.order = out.order
		s.warnings = out.Warnings
	}
	if out.Partial {
		s.fail(out.Err)
	} else {
		s.currentErr = ""
	}
	return out.FinalizeResult
}

func (s *Session) finalizePreconditionsLocked(actorID string) error {
	if len(s.cart) == 0 {
		return fmt.Errorf("%w: el carrito está vacío", domain.ErrPreconditionMissing)
	}
	if !s.destination.IsSet() {
		return fmt.Errorf("%w: no hay bodega seleccionada", domain.ErrPreconditionMissing)
	}
	if actorID == "" {
		return fmt.Errorf("%w: falta el usuario que confirma", domain.ErrPreconditionMissing)
	}
	if s.mode == ModeFree {
		return nil
	}
	if s.order == nil {
		return fmt.Errorf("%w: no hay orden seleccionada", domain.ErrPreconditionMissing)
	}
	registered := s.engine.cache.Snapshot(s.order.ID)
	if domfulfillment.IsRegisteredComplete(s.order, registered) {
		return fmt.Errorf("%w: la orden %s ya está completa", domain.ErrOrderConstraint, s.order.ID)
	}
	// Otra sesión del mismo flujo pudo registrar contra la orden desde que se armó el carrito.
	for _, item := range s.cart {
		if err := domfulfillment.CheckCandidate(s.order, item.ProductID, registered[item.ProductID], 0, item.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// commit coordina la confirmación: inserción en lote, RPC por línea, recarga y relectura.
func (e *Engine) commit(ctx context.Context, in commitInput) commitOutput {
	batchID := e.newID()
	out := commitOutput{FinalizeResult: FinalizeResult{BatchID: batchID}}
	log := e.log.With().
		Str("flow", string(e.flow)).
		Str("session_id", in.sessionID).
		Str("batch_id", batchID).
		Logger()

	orderID := ""
	if in.order != nil {
		orderID = in.order.ID
	}
	if in.order != nil {
		unlock := e.lockOrder(orderID)
		defer unlock()
		// Otra sesión (o instancia) pudo confirmar contra la orden mientras esta esperaba el candado.
		if _, err := e.loader.Refresh(ctx, in.order); err != nil {
			log.Warn().Err(err).Str("order_id", orderID).Msg("relectura previa fallida; se valida con la caché actual")
		}
		if err := e.recheckCart(in); err != nil {
			log.Warn().Err(err).Str("order_id", orderID).Msg("carrito rechazado al confirmar")
			out.State = StateFailed
			out.Err = err
			return out
		}
	}
	movements := e.buildMovements(in, batchID, orderID)

	// 1. Inserción en lote dentro de una transacción; un conteo distinto hace Rollback.
	txCtx, cancel := backendContext(ctx, e.timeout)
	err := e.deps.TxRunner.Run(txCtx, func(movRepo repository.InventoryMovementRepository) error {
		n, err := movRepo.InsertBatch(txCtx, movements)
		if err != nil {
			return err
		}
		out.Inserted = n
		if n == 0 {
			return fmt.Errorf("%w: %w", domain.ErrPersistence, domain.ErrNoRowsInserted)
		}
		if n != int64(len(movements)) {
			return fmt.Errorf("%w: se insertaron %d de %d movimientos", domain.ErrPersistence, n, len(movements))
		}
		return nil
	})
	cancel()
	if err != nil {
		if !errors.Is(err, domain.ErrPersistence) {
			err = fmt.Errorf("%w: %w", domain.ErrPersistence, err)
		}
		log.Error().Err(err).Str("order_id", orderID).Int("movements", len(movements)).Msg("inserción de movimientos fallida")
		out.State = StateFailed
		out.Inserted = 0
		out.Err = err
		return out
	}
	log.Info().Str("order_id", orderID).Int64("inserted", out.Inserted).Msg("movimientos insertados")

	if in.order == nil {
		out.State = StateCommitted
		return out
	}

	// 2. RPC atómico por línea, en orden y uno a la vez.
	for _, item := range in.cart {
		lr := LineResult{ProductID: item.ProductID, Quantity: item.Quantity}
		res, err := e.applyDelivery(ctx, orderID, item.ProductID, item.Quantity)
		if err != nil {
			lr.Error = err.Error()
			out.FailedLines = append(out.FailedLines, item.ProductID)
			out.Lines = append(out.Lines, lr)
			log.Error().Err(err).
				Str("order_id", orderID).
				Str("product_id", item.ProductID).
				Int64("quantity", item.Quantity).
				Msg("conciliación de línea fallida")
			continue
		}
		required := int64(0)
		if line, ok := in.order.Line(item.ProductID); ok {
			required = line.RequiredQuantity
		}
		e.cache.Set(orderID, item.ProductID, domfulfillment.Clamp(res.NewTotal, required))

		lr.NewTotal = res.NewTotal
		lr.LineComplete = res.LineComplete
		lr.OrderComplete = res.OrderComplete
		out.Lines = append(out.Lines, lr)
		if res.OrderComplete {
			out.OrderCompleted = true
		}
		log.Info().
			Str("order_id", orderID).
			Str("product_id", item.ProductID).
			Int64("quantity", item.Quantity).
			Int64("new_total", res.NewTotal).
			Bool("line_complete", res.LineComplete).
			Bool("order_complete", res.OrderComplete).
			Msg("línea conciliada")
	}

	// 3. Si la orden quedó completa se recarga para reflejar su estado terminal.
	order := in.order
	if out.OrderCompleted {
		reloaded, err := e.loader.FetchOrder(ctx, orderID)
		if err != nil {
			log.Warn().Err(err).Str("order_id", orderID).Msg("no se pudo recargar la orden completada")
		} else {
			order = reloaded
		}
	}

	// 4. Relectura completa de movimientos: la caché queda igual al almacenamiento durable.
	warnings, err := e.loader.Refresh(ctx, order)
	if err != nil {
		log.Warn().Err(err).Str("order_id", orderID).Msg("relectura de movimientos fallida; se conservan los valores del RPC")
	} else {
		out.Warnings = warnings
	}
	out.order = order
	out.State = StateCommitted

	if len(out.FailedLines) > 0 {
		out.Partial = true
		out.Err = fmt.Errorf("%w: %s; revise la conciliación de la orden %s",
			domain.ErrPartialRPC, strings.Join(out.FailedLines, ", "), orderID)
	}
	return out
}

// recheckCart valida cada línea del carrito contra la caché vigente de la orden.
func (e *Engine) recheckCart(in commitInput) error {
	registered := e.cache.Snapshot(in.order.ID)
	for _, item := range in.cart {
		if err := domfulfillment.CheckCandidate(in.order, item.ProductID, registered[item.ProductID], 0, item.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// applyDelivery llama al RPC con timeout y valida la forma de la respuesta.
func (e *Engine) applyDelivery(ctx context.Context, orderID, productID string, qty int64) (*entity.DeliveryResult, error) {
	ctx, cancel := backendContext(ctx, e.timeout)
	defer cancel()
	res, err := e.deps.Delivery.ApplyDelivery(ctx, orderID, productID, qty)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	if res == nil || res.NewTotal < 0 {
		return nil, fmt.Errorf("%w: respuesta inesperada del backend", domain.ErrPersistence)
	}
	return res, nil
}

func (e *Engine) buildMovements(in commitInput, batchID, orderID string) []*entity.InventoryMovement {
	now := e.now()
	movType := e.flow.MovementType()
	out := make([]*entity.InventoryMovement, 0, len(in.cart))
	for _, item := range in.cart {
		warehouseID := item.WarehouseID
		if warehouseID == "" {
			warehouseID = in.destination.WarehouseID
		}
		out = append(out, &entity.InventoryMovement{
			ID:          e.newID(),
			BatchID:     batchID,
			OrderID:     orderID,
			ProductID:   item.ProductID,
			WarehouseID: warehouseID,
			LocationID:  item.LocationID,
			Type:        movType,
			Quantity:    item.Quantity,
			UnitCost:    item.UnitCost,
			TotalCost:   item.UnitCost.Mul(decimal.NewFromInt(item.Quantity)),
			Barcode:     item.Barcode,
			CreatedAt:   now,
			CreatedBy:   in.actorID,
		})
	}
	return out
}
