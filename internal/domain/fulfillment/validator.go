package fulfillment

import (
	"errors"
	"fmt"

	"github.com/jhoicas/recepcion-despacho/internal/domain"
	"github.com/jhoicas/recepcion-despacho/internal/domain/entity"
)

// ConstraintError indica que el candidato supera lo que la línea aún permite.
type ConstraintError struct {
	ProductID  string
	Requested  int64
	MaxAllowed int64
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("la cantidad %d excede lo pendiente de la orden: máximo permitido %d", e.Requested, e.MaxAllowed)
}

// Unwrap permite errors.Is(err, domain.ErrOrderConstraint).
func (e *ConstraintError) Unwrap() error { return domain.ErrOrderConstraint }

// ValidationResult es la respuesta de Validate hacia la interfaz.
type ValidationResult struct {
	Valid      bool   `json:"valid"`
	Reason     string `json:"reason,omitempty"`
	MaxAllowed int64  `json:"max_allowed"`
}

// MaxAllowed = max(required - registered - cartTotal, 0).
func MaxAllowed(required, registered, cartTotal int64) int64 {
	v := required - registered - cartTotal
	if v < 0 {
		return 0
	}
	return v
}

// CheckCandidate decide si agregar candidate unidades del producto cabe en la orden,
// considerando lo registrado y lo que ya está en el carrito para ese producto.
func CheckCandidate(order *entity.Order, productID string, registered, cartTotal, candidate int64) error {
	if order == nil {
		return fmt.Errorf("%w: no hay orden seleccionada", domain.ErrPreconditionMissing)
	}
	line, ok := order.Line(productID)
	if !ok {
		return domain.ErrProductNotInOrder
	}
	required := line.RequiredQuantity
	registered = Clamp(registered, required)
	if registered+cartTotal+candidate > required {
		return &ConstraintError{
			ProductID:  productID,
			Requested:  candidate,
			MaxAllowed: MaxAllowed(required, registered, cartTotal),
		}
	}
	return nil
}

// ResultFromError traduce el error de CheckCandidate al contrato de Validate.
func ResultFromError(err error, maxAllowed int64) ValidationResult {
	if err == nil {
		return ValidationResult{Valid: true, MaxAllowed: maxAllowed}
	}
	res := ValidationResult{Valid: false, Reason: err.Error()}
	var ce *ConstraintError
	if errors.As(err, &ce) {
		res.MaxAllowed = ce.MaxAllowed
	}
	return res
}
