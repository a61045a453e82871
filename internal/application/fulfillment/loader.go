package fulfillment

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/recepcion-despacho/internal/domain"
	"github.com/jhoicas/recepcion-despacho/internal/domain/entity"
	domfulfillment "github.com/jhoicas/recepcion-despacho/internal/domain/fulfillment"
	"github.com/jhoicas/recepcion-despacho/internal/domain/repository"
	"github.com/jhoicas/recepcion-despacho/pkg/logger"
)

// Snapshot orden cargada y advertencias de integridad detectadas al agregar sus movimientos.
type Snapshot struct {
	Order    *entity.Order
	Warnings []domfulfillment.IntegrityWarning
}

// Loader carga la orden y reconstruye su entrada en la caché de registrados.
type Loader struct {
	flow      entity.Flow
	orders    repository.OrderRepository
	movements repository.InventoryMovementRepository
	cache     *RegisteredCache
	log       *logger.Logger
	timeout   time.Duration
}

// NewLoader construye el cargador de órdenes.
func NewLoader(
	flow entity.Flow,
	orders repository.OrderRepository,
	movements repository.InventoryMovementRepository,
	cache *RegisteredCache,
	log *logger.Logger,
	timeout time.Duration,
) *Loader {
	return &Loader{
		flow:      flow,
		orders:    orders,
		movements: movements,
		cache:     cache,
		log:       log,
		timeout:   timeout,
	}
}

// Load obtiene la orden con sus líneas y reconstruye lo registrado desde los movimientos.
func (l *Loader) Load(ctx context.Context, orderID string) (*Snapshot, error) {
	order, err := l.FetchOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	warnings, err := l.Refresh(ctx, order)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Order: order, Warnings: warnings}, nil
}

// FetchOrder lee la orden y valida su forma; no toca la caché.
func (l *Loader) FetchOrder(ctx context.Context, orderID string) (*entity.Order, error) {
	if orderID == "" {
		return nil, domain.ErrInvalidInput
	}
	ctx, cancel := backendContext(ctx, l.timeout)
	defer cancel()

	order, err := l.orders.GetWithLines(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: cargar orden %s: %w", domain.ErrPersistence, orderID, err)
	}
	if order == nil || order.Flow != l.flow {
		return nil, domain.ErrNotFound
	}
	seen := make(map[string]struct{}, len(order.Lines))
	for _, line := range order.Lines {
		if line.RequiredQuantity < 0 || line.ProductID == "" {
			return nil, fmt.Errorf("%w: línea %s de la orden %s con datos inválidos", domain.ErrPersistence, line.ID, orderID)
		}
		if _, dup := seen[line.ProductID]; dup {
			return nil, fmt.Errorf("%w: producto %s repetido en la orden %s", domain.ErrPersistence, line.ProductID, orderID)
		}
		seen[line.ProductID] = struct{}{}
	}
	return order, nil
}

// Refresh relee todos los movimientos de la orden y, en paralelo, las marcas de anulación;
// luego reemplaza la entrada de la caché.
func (l *Loader) Refresh(ctx context.Context, order *entity.Order) ([]domfulfillment.IntegrityWarning, error) {
	ctx, cancel := backendContext(ctx, l.timeout)
	defer cancel()

	var (
		movements []*entity.InventoryMovement
		cancelled []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		movements, err = l.movements.ListByOrder(gctx, order.ID)
		if err != nil {
			return fmt.Errorf("listar movimientos: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		cancelled, err = l.movements.ListCancelledIDs(gctx, order.ID)
		if err != nil {
			return fmt.Errorf("listar anulaciones: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: orden %s: %w", domain.ErrPersistence, order.ID, err)
	}

	registered, warnings := domfulfillment.AggregateRegistered(order, movements, cancelled)
	l.cache.Replace(order.ID, registered)

	for _, w := range warnings {
		l.log.Warn().
			Str("flow", string(l.flow)).
			Str("order_id", w.OrderID).
			Str("product_id", w.ProductID).
			Int64("required", w.Required).
			Int64("raw_total", w.RawTotal).
			Msg("movimientos registrados superan lo requerido por la línea")
	}
	return warnings, nil
}

// backendContext aplica el timeout de llamadas al backend; sin timeout solo deriva el contexto.
func backendContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
