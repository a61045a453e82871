package repository

import (
	"context"

	"github.com/jhoicas/recepcion-despacho/internal/domain/entity"
)

// ProductRepository define el puerto de lectura de productos (DIP).
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	// GetByCode busca por código de barras o por SKU.
	GetByCode(ctx context.Context, code string) (*entity.Product, error)
}
