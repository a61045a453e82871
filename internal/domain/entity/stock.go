package entity

import "time"

// Stock representa el stock actual de un producto en una bodega.
type Stock struct {
	ProductID   string
	WarehouseID string
	Quantity    int64
	UpdatedAt   time.Time
}
