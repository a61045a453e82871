package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/recepcion-despacho/internal/domain"
)

// Códigos SQLSTATE que el motor distingue.
const (
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeNoDataFound         = "P0002"
	// Propio de order_line_guard y de los RPC de aplicación.
	codeOrderOverflow = "RD001"
)

// pgCode devuelve el SQLSTATE del error o "" si no viene de PostgreSQL.
func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// mapPgError traduce los SQLSTATE conocidos a errores de dominio conservando el original.
func mapPgError(op string, err error) error {
	switch pgCode(err) {
	case codeCheckViolation:
		// stock.quantity >= 0: otra sesión despachó el mismo producto primero.
		return fmt.Errorf("%s: %w: %w", op, domain.ErrInsufficientStock, err)
	case codeOrderOverflow:
		// Otra instancia confirmó contra la misma línea de la orden.
		return fmt.Errorf("%s: %w: %w", op, domain.ErrOrderConstraint, err)
	case codeForeignKeyViolation, codeNoDataFound:
		return fmt.Errorf("%s: %w: %w", op, domain.ErrNotFound, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
