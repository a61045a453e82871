package entity

import "github.com/shopspring/decimal"

// CartItem es una entrada del carrito de escaneo (una por producto).
type CartItem struct {
	ProductID   string
	SKU         string
	ProductName string
	Quantity    int64
	Barcode     string
	WarehouseID string
	LocationID  string
	UnitCost    decimal.Decimal
	Available   *int64 // stock disponible en la bodega (solo salidas)
}
