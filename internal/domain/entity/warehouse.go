package entity

import "time"

// Warehouse representa una bodega donde se reciben o despachan productos.
type Warehouse struct {
	ID        string
	Name      string
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Destination es la bodega (y opcionalmente la ubicación) elegida para la sesión.
type Destination struct {
	WarehouseID string
	LocationID  string
}

// IsSet indica si ya se eligió bodega.
func (d Destination) IsSet() bool {
	return d.WarehouseID != ""
}
