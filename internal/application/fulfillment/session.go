package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jhoicas/recepcion-despacho/internal/domain"
	"github.com/jhoicas/recepcion-despacho/internal/domain/entity"
	domfulfillment "github.com/jhoicas/recepcion-despacho/internal/domain/fulfillment"
)

// Mode indica si la sesión registra contra una orden o movimientos libres.
type Mode string

const (
	ModeOrder Mode = "ORDER"
	ModeFree  Mode = "FREE"
)

// CommitState estado de la confirmación: idle -> committing -> committed | failed.
type CommitState string

const (
	StateIdle       CommitState = "idle"
	StateCommitting CommitState = "committing"
	StateCommitted  CommitState = "committed"
	StateFailed     CommitState = "failed"
)

// ScannedProduct producto resuelto por el último escaneo, aún no agregado al carrito.
type ScannedProduct struct {
	Product    *entity.Product
	Barcode    string
	MaxAllowed int64 // -1 si no hay límite de orden
}

// ProgressView avance de la orden más las advertencias de integridad vigentes.
type ProgressView struct {
	domfulfillment.Progress
	OrderStatus string                            `json:"order_status"`
	Warnings    []domfulfillment.IntegrityWarning `json:"warnings,omitempty"`
}

// SessionView copia del estado de la sesión para la capa de interfaz.
type SessionView struct {
	ID           string
	Flow         entity.Flow
	Mode         Mode
	OrderID      string
	OrderStatus  string
	Destination  entity.Destination
	Cart         []entity.CartItem
	Scanned      *ScannedProduct
	CurrentError string
	State        CommitState
}

// Session es una sesión de escaneo: carrito, avance de sesión y error actual.
// Las operaciones se serializan con mu; mientras hay una confirmación en curso
// el resto de mutaciones se rechazan.
type Session struct {
	mu sync.Mutex

	id     string
	engine *Engine
	mode   Mode

	order       *entity.Order
	warnings    []domfulfillment.IntegrityWarning
	destination entity.Destination
	cart        []entity.CartItem
	progress    map[string]int64 // productID -> escaneado en la sesión
	scanned     *ScannedProduct
	currentErr  string
	state       CommitState

	createdAt time.Time
	lastUsed  time.Time
}

// ID identificador de la sesión.
func (s *Session) ID() string { return s.id }

// Flow flujo del motor dueño de la sesión.
func (s *Session) Flow() entity.Flow { return s.engine.flow }

// SelectOrder carga la orden y su avance registrado. Si es una orden distinta a la actual
// se descartan carrito y avance de sesión. Si la carga falla la orden queda sin seleccionar.
func (s *Session) SelectOrder(ctx context.Context, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if s.state == StateCommitting {
		return s.fail(domain.ErrCommitInProgress)
	}
	if s.mode == ModeFree {
		return s.fail(fmt.Errorf("%w: la sesión es de movimientos libres", domain.ErrInvalidInput))
	}

	if s.order == nil || s.order.ID != orderID {
		s.clearSessionLocked()
	}
	snap, err := s.engine.loader.Load(ctx, orderID)
	if err != nil {
		s.order = nil
		s.warnings = nil
		s.clearSessionLocked()
		s.engine.log.Error().Err(err).
			Str("flow", string(s.engine.flow)).
			Str("session_id", s.id).
			Str("order_id", orderID).
			Msg("no se pudo cargar la orden")
		return s.fail(err)
	}
	if snap.Order.Status == entity.OrderStatusCancelled {
		s.order = nil
		s.warnings = nil
		return s.fail(fmt.Errorf("%w: la orden %s está anulada", domain.ErrConflict, orderID))
	}
	s.order = snap.Order
	s.warnings = snap.Warnings
	s.currentErr = ""
	if trimmed := s.fitCartLocked(); len(trimmed) > 0 {
		err := fmt.Errorf("%w: se ajustó el carrito de %s a lo pendiente de la orden",
			domain.ErrOrderConstraint, strings.Join(trimmed, ", "))
		s.engine.log.Warn().Err(err).
			Str("flow", string(s.engine.flow)).
			Str("session_id", s.id).
			Str("order_id", orderID).
			Msg("carrito excedía la orden recargada")
		s.fail(err)
		return nil
	}
	s.engine.log.Debug().
		Str("flow", string(s.engine.flow)).
		Str("session_id", s.id).
		Str("order_id", orderID).
		Int("lines", len(snap.Order.Lines)).
		Int("warnings", len(snap.Warnings)).
		Msg("orden cargada")
	return nil
}

// fitCartLocked recorta cada entrada del carrito a lo que la orden recargada aún admite
// y devuelve los productos ajustados. Una entrada sin cupo se quita.
func (s *Session) fitCartLocked() []string {
	var trimmed []string
	kept := s.cart[:0]
	for _, item := range s.cart {
		ceiling := int64(0)
		if line, ok := s.order.Line(item.ProductID); ok {
			ceiling = domfulfillment.MaxAllowed(line.RequiredQuantity, s.engine.cache.Get(s.order.ID, item.ProductID), 0)
		}
		if item.Quantity > ceiling {
			trimmed = append(trimmed, item.ProductID)
			s.applyDeltaLocked(item.ProductID, ceiling-item.Quantity)
			item.Quantity = ceiling
		}
		if item.Quantity > 0 {
			kept = append(kept, item)
		}
	}
	s.cart = kept
	return trimmed
}

// SelectDestination elige la bodega (y ubicación) donde se reciben o de donde salen los productos.
func (s *Session) SelectDestination(ctx context.Context, warehouseID, locationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if s.state == StateCommitting {
		return s.fail(domain.ErrCommitInProgress)
	}
	if warehouseID == "" {
		return s.fail(fmt.Errorf("%w: bodega requerida", domain.ErrInvalidInput))
	}
	if len(s.cart) > 0 && s.destination.WarehouseID != warehouseID {
		return s.fail(fmt.Errorf("%w: no se puede cambiar la bodega con productos en el carrito", domain.ErrConflict))
	}

	ctx, cancel := backendContext(ctx, s.engine.timeout)
	defer cancel()
	wh, err := s.engine.deps.Warehouses.GetByID(ctx, warehouseID)
	if err != nil {
		return s.fail(fmt.Errorf("%w: obtener bodega: %w", domain.ErrPersistence, err))
	}
	if wh == nil {
		return s.fail(fmt.Errorf("%w: bodega %s", domain.ErrNotFound, warehouseID))
	}
	s.destination = entity.Destination{WarehouseID: wh.ID, LocationID: locationID}
	s.currentErr = ""
	return nil
}

// Validate decide si agregar qty unidades del producto cabe en lo que la orden aún permite.
func (s *Session) Validate(productID string, qty int64) domfulfillment.ValidationResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	maxAllowed, err := s.validateLocked(productID, qty)
	return domfulfillment.ResultFromError(err, maxAllowed)
}

// validateLocked aplica el validador con la caché y todo lo que ya está en el carrito.
// En sesiones libres no hay límite de orden (max = -1).
func (s *Session) validateLocked(productID string, qty int64) (int64, error) {
	if qty <= 0 {
		return 0, fmt.Errorf("%w: la cantidad debe ser mayor que cero", domain.ErrInvalidInput)
	}
	if s.mode == ModeFree {
		return -1, nil
	}
	if s.order == nil {
		return 0, fmt.Errorf("%w: no hay orden seleccionada", domain.ErrPreconditionMissing)
	}
	registered := s.engine.cache.Get(s.order.ID, productID)
	cartTotal := s.cartTotalLocked(productID)
	if err := domfulfillment.CheckCandidate(s.order, productID, registered, cartTotal, qty); err != nil {
		return 0, err
	}
	line, _ := s.order.Line(productID)
	return domfulfillment.MaxAllowed(line.RequiredQuantity, registered, cartTotal), nil
}

// ScanBarcode resuelve un código (barra o SKU) y, si cabe al menos una unidad,
// lo deja como producto escaneado actual.
func (s *Session) ScanBarcode(ctx context.Context, code string) (*ScannedProduct, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if s.state == StateCommitting {
		return nil, s.fail(domain.ErrCommitInProgress)
	}
	if code == "" {
		return nil, s.fail(fmt.Errorf("%w: código vacío", domain.ErrInvalidInput))
	}

	product, err := s.lookupProductLocked(ctx, code, true)
	if err != nil {
		s.scanned = nil
		return nil, s.fail(err)
	}
	maxAllowed := int64(-1)
	if s.mode == ModeOrder {
		registered := int64(0)
		cartTotal := s.cartTotalLocked(product.ID)
		if s.order != nil {
			registered = s.engine.cache.Get(s.order.ID, product.ID)
		}
		if err := domfulfillment.CheckCandidate(s.order, product.ID, registered, cartTotal, 1); err != nil {
			s.scanned = nil
			return nil, s.fail(err)
		}
		line, _ := s.order.Line(product.ID)
		maxAllowed = domfulfillment.MaxAllowed(line.RequiredQuantity, registered, cartTotal)
	}
	s.scanned = &ScannedProduct{Product: product, Barcode: code, MaxAllowed: maxAllowed}
	s.currentErr = ""
	out := *s.scanned
	return &out, nil
}

// Progress devuelve el avance derivado; productFilter vacío incluye todas las líneas.
func (s *Session) Progress(productFilter string) (*ProgressView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if s.order == nil {
		return nil, fmt.Errorf("%w: no hay orden seleccionada", domain.ErrPreconditionMissing)
	}
	p := domfulfillment.CalculateProgress(s.order, s.engine.cache.Snapshot(s.order.ID), s.progress, productFilter)
	return &ProgressView{Progress: p, OrderStatus: s.order.Status, Warnings: s.warnings}, nil
}

// ResetSession descarta carrito, avance de sesión y error. La caché y los registros durables no se tocan.
func (s *Session) ResetSession() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if s.state == StateCommitting {
		return s.fail(domain.ErrCommitInProgress)
	}
	s.clearSessionLocked()
	s.currentErr = ""
	s.state = StateIdle
	return nil
}

// CurrentError devuelve el último error recuperable (vacío si no hay).
func (s *Session) CurrentError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentErr
}

// ClearError limpia el error actual.
func (s *Session) ClearError() {
	s.mu.Lock()
	s.currentErr = ""
	s.mu.Unlock()
}

// SessionProgress copia del avance de sesión por producto.
func (s *Session) SessionProgress() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.progress))
	for k, v := range s.progress {
		out[k] = v
	}
	return out
}

// Cart copia del carrito.
func (s *Session) Cart() []entity.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.CartItem(nil), s.cart...)
}

// View copia del estado completo de la sesión.
func (s *Session) View() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := SessionView{
		ID:           s.id,
		Flow:         s.engine.flow,
		Mode:         s.mode,
		Destination:  s.destination,
		Cart:         append([]entity.CartItem(nil), s.cart...),
		CurrentError: s.currentErr,
		State:        s.state,
	}
	if s.order != nil {
		v.OrderID = s.order.ID
		v.OrderStatus = s.order.Status
	}
	if s.scanned != nil {
		sc := *s.scanned
		v.Scanned = &sc
	}
	return v
}

// idleSince indica desde cuándo no se usa la sesión y si está confirmando.
func (s *Session) idleSince() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed, s.state == StateCommitting
}

func (s *Session) touch() {
	s.lastUsed = s.engine.now()
}

// fail registra err como error actual de la sesión y lo devuelve.
func (s *Session) fail(err error) error {
	if err != nil {
		s.currentErr = err.Error()
	}
	return err
}

func (s *Session) clearSessionLocked() {
	s.cart = nil
	s.progress = make(map[string]int64)
	s.scanned = nil
}

func (s *Session) cartTotalLocked(productID string) int64 {
	var total int64
	for _, item := range s.cart {
		if item.ProductID == productID {
			total += item.Quantity
		}
	}
	return total
}

// lookupProductLocked busca el producto por código (byCode) o por ID.
func (s *Session) lookupProductLocked(ctx context.Context, key string, byCode bool) (*entity.Product, error) {
	ctx, cancel := backendContext(ctx, s.engine.timeout)
	defer cancel()

	var (
		product *entity.Product
		err     error
	)
	if byCode {
		product, err = s.engine.deps.Products.GetByCode(ctx, key)
	} else {
		product, err = s.engine.deps.Products.GetByID(ctx, key)
	}
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: producto %s", domain.ErrNotFound, key)
		}
		return nil, fmt.Errorf("%w: buscar producto: %w", domain.ErrPersistence, err)
	}
	if product == nil {
		return nil, fmt.Errorf("%w: producto %s", domain.ErrNotFound, key)
	}
	return product, nil
}
