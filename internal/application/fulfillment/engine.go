package fulfillment

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/recepcion-despacho/internal/domain/entity"
	domfulfillment "github.com/jhoicas/recepcion-despacho/internal/domain/fulfillment"
	"github.com/jhoicas/recepcion-despacho/pkg/logger"
)

// Options parámetros de una instancia del motor.
type Options struct {
	BackendTimeout time.Duration
}

// Engine es una instancia del motor de conciliación para un flujo (entradas o salidas).
// Es dueña de la caché de registrados; las sesiones la reciben por referencia.
type Engine struct {
	flow    entity.Flow
	deps    Deps
	cache   *RegisteredCache
	loader  *Loader
	log     *logger.Logger
	timeout time.Duration
	now     func() time.Time
	newID   func() string

	// Una confirmación a la vez por orden: la revalidación del carrito y la
	// actualización de la caché no se intercalan entre sesiones.
	locksMu    sync.Mutex
	orderLocks map[string]*sync.Mutex
}

// NewEngine construye el motor. Si cache es nil se crea una nueva.
func NewEngine(flow entity.Flow, deps Deps, cache *RegisteredCache, log *logger.Logger, opts Options) *Engine {
	if cache == nil {
		cache = NewRegisteredCache()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{
		flow:    flow,
		deps:    deps,
		cache:   cache,
		loader:  NewLoader(flow, deps.Orders, deps.Movements, cache, log, opts.BackendTimeout),
		log:     log,
		timeout: opts.BackendTimeout,
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },

		orderLocks: make(map[string]*sync.Mutex),
	}
}

// lockOrder toma el candado de confirmación de la orden y devuelve la función que lo libera.
func (e *Engine) lockOrder(orderID string) func() {
	e.locksMu.Lock()
	mu, ok := e.orderLocks[orderID]
	if !ok {
		mu = &sync.Mutex{}
		e.orderLocks[orderID] = mu
	}
	e.locksMu.Unlock()
	mu.Lock()
	return mu.Unlock
}

// Flow devuelve el flujo del motor.
func (e *Engine) Flow() entity.Flow { return e.flow }

// Cache devuelve la caché de registrados del motor.
func (e *Engine) Cache() *RegisteredCache { return e.cache }

// NewSession abre una sesión de escaneo. En ModeOrder la sesión exige una orden seleccionada.
func (e *Engine) NewSession(mode Mode) *Session {
	if mode != ModeFree {
		mode = ModeOrder
	}
	now := e.now()
	return &Session{
		id:        e.newID(),
		engine:    e,
		mode:      mode,
		progress:  make(map[string]int64),
		state:     StateIdle,
		createdAt: now,
		lastUsed:  now,
	}
}

// OrderProgress carga la orden desde el backend y devuelve su avance sin sesión.
func (e *Engine) OrderProgress(ctx context.Context, orderID string) (*ProgressView, error) {
	snap, err := e.loader.Load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	p := domfulfillment.CalculateProgress(snap.Order, e.cache.Snapshot(orderID), nil, "")
	return &ProgressView{
		Progress:    p,
		OrderStatus: snap.Order.Status,
		Warnings:    snap.Warnings,
	}, nil
}
