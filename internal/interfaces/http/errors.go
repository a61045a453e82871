package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/recepcion-despacho/internal/application/dto"
	"github.com/jhoicas/recepcion-despacho/internal/domain"
	domfulfillment "github.com/jhoicas/recepcion-despacho/internal/domain/fulfillment"
)

// errorStatus traduce los errores de dominio a status HTTP y código estable para la UI.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrCommitInProgress):
		return fiber.StatusConflict, "COMMIT_IN_PROGRESS"
	case errors.Is(err, domain.ErrOrderConstraint):
		return fiber.StatusUnprocessableEntity, "ORDER_CONSTRAINT"
	case errors.Is(err, domain.ErrProductNotInOrder):
		return fiber.StatusUnprocessableEntity, "PRODUCT_NOT_IN_ORDER"
	case errors.Is(err, domain.ErrPreconditionMissing):
		return fiber.StatusPreconditionFailed, "PRECONDITION_MISSING"
	case errors.Is(err, domain.ErrInsufficientStock):
		return fiber.StatusConflict, "INSUFFICIENT_STOCK"
	case errors.Is(err, domain.ErrConflict):
		return fiber.StatusConflict, "CONFLICT"
	case errors.Is(err, domain.ErrInvalidInput):
		return fiber.StatusBadRequest, "VALIDATION"
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, domain.ErrPartialRPC):
		return fiber.StatusMultiStatus, "PARTIAL_RECONCILIATION"
	case errors.Is(err, domain.ErrNoRowsInserted):
		return fiber.StatusServiceUnavailable, "NO_ROWS_INSERTED"
	case errors.Is(err, domain.ErrPersistence):
		return fiber.StatusServiceUnavailable, "PERSISTENCE"
	default:
		return fiber.StatusInternalServerError, "INTERNAL"
	}
}

// errorResponse arma el cuerpo de error; en ORDER_CONSTRAINT incluye el máximo permitido.
func errorResponse(err error, code string) dto.ErrorResponse {
	resp := dto.ErrorResponse{Code: code, Message: err.Error()}
	var ce *domfulfillment.ConstraintError
	if errors.As(err, &ce) {
		maxAllowed := ce.MaxAllowed
		resp.MaxAllowed = &maxAllowed
	}
	return resp
}
