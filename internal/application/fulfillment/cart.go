package fulfillment

import (
	"context"
	"fmt"
	"slices"

	"github.com/jhoicas/recepcion-despacho/internal/domain"
	"github.com/jhoicas/recepcion-despacho/internal/domain/entity"
	domfulfillment "github.com/jhoicas/recepcion-despacho/internal/domain/fulfillment"
)

// AddInput producto y cantidad que se agregan al carrito.
type AddInput struct {
	ProductID string
	Quantity  int64
	Barcode   string
}

// AddToCart valida el candidato y lo suma al carrito (mezclando si el producto ya está)
// y al avance de sesión. Si algo falla no cambia ningún estado.
func (s *Session) AddToCart(ctx context.Context, in AddInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if s.state == StateCommitting {
		return s.fail(domain.ErrCommitInProgress)
	}
	if s.mode == ModeOrder && s.order == nil {
		return s.fail(fmt.Errorf("%w: no hay orden seleccionada", domain.ErrPreconditionMissing))
	}
	if !s.destination.IsSet() {
		return s.fail(fmt.Errorf("%w: no hay bodega seleccionada", domain.ErrPreconditionMissing))
	}
	if in.ProductID == "" {
		return s.fail(fmt.Errorf("%w: producto requerido", domain.ErrInvalidInput))
	}
	if _, err := s.validateLocked(in.ProductID, in.Quantity); err != nil {
		return s.fail(err)
	}

	var product *entity.Product
	barcode := in.Barcode
	if s.scanned != nil && s.scanned.Product.ID == in.ProductID {
		product = s.scanned.Product
		if barcode == "" {
			barcode = s.scanned.Barcode
		}
	} else {
		p, err := s.lookupProductLocked(ctx, in.ProductID, false)
		if err != nil {
			return s.fail(err)
		}
		product = p
	}

	cartTotal := s.cartTotalLocked(in.ProductID)
	var available *int64
	if s.engine.flow == entity.FlowOutbound {
		avail, err := s.availableLocked(ctx, in.ProductID)
		if err != nil {
			return s.fail(err)
		}
		if cartTotal+in.Quantity > avail {
			return s.fail(fmt.Errorf("%w: disponible %d en la bodega", domain.ErrInsufficientStock, avail-cartTotal))
		}
		available = &avail
	}

	unitCost := product.Cost
	locationID := s.destination.LocationID
	if s.order != nil {
		if line, ok := s.order.Line(in.ProductID); ok {
			unitCost = line.UnitCost
			if line.LocationID != "" {
				locationID = line.LocationID
			}
		}
	}

	if idx := s.indexOfLocked(in.ProductID); idx >= 0 {
		s.cart[idx].Quantity += in.Quantity
		if available != nil {
			s.cart[idx].Available = available
		}
		if barcode != "" {
			s.cart[idx].Barcode = barcode
		}
	} else {
		s.cart = append(s.cart, entity.CartItem{
			ProductID:   product.ID,
			SKU:         product.SKU,
			ProductName: product.Name,
			Quantity:    in.Quantity,
			Barcode:     barcode,
			WarehouseID: s.destination.WarehouseID,
			LocationID:  locationID,
			UnitCost:    unitCost,
			Available:   available,
		})
	}
	s.applyDeltaLocked(in.ProductID, in.Quantity)
	if s.scanned != nil && s.scanned.Product.ID == in.ProductID {
		s.scanned = nil
	}
	s.currentErr = ""
	return nil
}

// UpdateQuantity cambia la cantidad de la entrada index. El nuevo valor no puede superar
// lo pendiente de la línea (sin contar esta entrada) ni el stock disponible en salidas.
func (s *Session) UpdateQuantity(index int, qty int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if s.state == StateCommitting {
		return s.fail(domain.ErrCommitInProgress)
	}
	if index < 0 || index >= len(s.cart) {
		return s.fail(fmt.Errorf("%w: índice %d fuera de rango", domain.ErrInvalidInput, index))
	}
	if qty <= 0 {
		return s.fail(fmt.Errorf("%w: la cantidad debe ser mayor que cero", domain.ErrInvalidInput))
	}

	item := s.cart[index]
	if s.mode == ModeOrder {
		if s.order == nil {
			return s.fail(fmt.Errorf("%w: no hay orden seleccionada", domain.ErrPreconditionMissing))
		}
		line, ok := s.order.Line(item.ProductID)
		if !ok {
			return s.fail(domain.ErrProductNotInOrder)
		}
		registered := s.engine.cache.Get(s.order.ID, item.ProductID)
		others := s.cartTotalLocked(item.ProductID) - item.Quantity
		ceiling := domfulfillment.MaxAllowed(line.RequiredQuantity, registered, others)
		if qty > ceiling {
			return s.fail(&domfulfillment.ConstraintError{ProductID: item.ProductID, Requested: qty, MaxAllowed: ceiling})
		}
	}
	if item.Available != nil && qty > *item.Available {
		return s.fail(fmt.Errorf("%w: disponible %d en la bodega", domain.ErrInsufficientStock, *item.Available))
	}

	delta := qty - item.Quantity
	s.cart[index].Quantity = qty
	s.applyDeltaLocked(item.ProductID, delta)
	s.currentErr = ""
	return nil
}

// RemoveFromCart quita la entrada index y descuenta su cantidad del avance de sesión.
func (s *Session) RemoveFromCart(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if s.state == StateCommitting {
		return s.fail(domain.ErrCommitInProgress)
	}
	if index < 0 || index >= len(s.cart) {
		return s.fail(fmt.Errorf("%w: índice %d fuera de rango", domain.ErrInvalidInput, index))
	}
	item := s.cart[index]
	s.cart = slices.Delete(s.cart, index, index+1)
	s.applyDeltaLocked(item.ProductID, -item.Quantity)
	s.currentErr = ""
	return nil
}

// applyDeltaLocked suma delta al avance de sesión sin bajar de cero; en cero borra la clave.
func (s *Session) applyDeltaLocked(productID string, delta int64) {
	v := s.progress[productID] + delta
	if v <= 0 {
		delete(s.progress, productID)
		return
	}
	s.progress[productID] = v
}

func (s *Session) indexOfLocked(productID string) int {
	for i := range s.cart {
		if s.cart[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func (s *Session) availableLocked(ctx context.Context, productID string) (int64, error) {
	ctx, cancel := backendContext(ctx, s.engine.timeout)
	defer cancel()
	stock, err := s.engine.deps.Stock.Get(ctx, productID, s.destination.WarehouseID)
	if err != nil {
		return 0, fmt.Errorf("%w: consultar stock: %w", domain.ErrPersistence, err)
	}
	if stock == nil {
		return 0, nil
	}
	return stock.Quantity, nil
}
