package dto

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/recepcion-despacho/internal/application/fulfillment"
	domfulfillment "github.com/jhoicas/recepcion-despacho/internal/domain/fulfillment"
)

// CreateSessionRequest body para POST /sessions. Mode: ORDER (por defecto) o FREE.
type CreateSessionRequest struct {
	Mode string `json:"mode"`
}

// SelectOrderRequest body para PUT /sessions/:sid/order.
type SelectOrderRequest struct {
	OrderID string `json:"order_id"`
}

// SelectDestinationRequest body para PUT /sessions/:sid/destination.
type SelectDestinationRequest struct {
	WarehouseID string `json:"warehouse_id"`
	LocationID  string `json:"location_id,omitempty"`
}

// ScanRequest body para POST /sessions/:sid/scan (código de barras o SKU).
type ScanRequest struct {
	Code string `json:"code"`
}

// ValidateRequest body para POST /sessions/:sid/validate.
type ValidateRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

// AddToCartRequest body para POST /sessions/:sid/cart.
type AddToCartRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
	Barcode   string `json:"barcode,omitempty"`
}

// UpdateQuantityRequest body para PATCH /sessions/:sid/cart/:index.
type UpdateQuantityRequest struct {
	Quantity int64 `json:"quantity"`
}

// CartItemDTO entrada del carrito.
type CartItemDTO struct {
	Index       int             `json:"index"`
	ProductID   string          `json:"product_id"`
	SKU         string          `json:"sku"`
	ProductName string          `json:"product_name"`
	Quantity    int64           `json:"quantity"`
	Barcode     string          `json:"barcode,omitempty"`
	WarehouseID string          `json:"warehouse_id"`
	LocationID  string          `json:"location_id,omitempty"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	Available   *int64          `json:"available,omitempty"` // solo salidas
}

// ScannedProductDTO producto del último escaneo.
type ScannedProductDTO struct {
	ProductID  string `json:"product_id"`
	SKU        string `json:"sku"`
	Name       string `json:"name"`
	Barcode    string `json:"barcode"`
	MaxAllowed int64  `json:"max_allowed"` // -1 sin límite de orden
}

// SessionResponse estado de una sesión de escaneo.
type SessionResponse struct {
	ID           string             `json:"id"`
	Flow         string             `json:"flow"`
	Mode         string             `json:"mode"`
	OrderID      string             `json:"order_id,omitempty"`
	OrderStatus  string             `json:"order_status,omitempty"`
	WarehouseID  string             `json:"warehouse_id,omitempty"`
	LocationID   string             `json:"location_id,omitempty"`
	Cart         []CartItemDTO      `json:"cart"`
	Scanned      *ScannedProductDTO `json:"scanned,omitempty"`
	CurrentError string             `json:"current_error,omitempty"`
	State        string             `json:"state"`
}

// FinalizeResponse resultado de POST /sessions/:sid/finalize.
type FinalizeResponse struct {
	BatchID        string                            `json:"batch_id"`
	State          string                            `json:"state"`
	Inserted       int64                             `json:"inserted"`
	Lines          []fulfillment.LineResult          `json:"lines"`
	FailedLines    []string                          `json:"failed_lines,omitempty"`
	Partial        bool                              `json:"partial"`
	OrderCompleted bool                              `json:"order_completed"`
	Warnings       []domfulfillment.IntegrityWarning `json:"warnings,omitempty"`
	Code           string                            `json:"code,omitempty"`
	Error          string                            `json:"error,omitempty"`
}

// NewSessionResponse mapea la vista de la sesión.
func NewSessionResponse(v fulfillment.SessionView) SessionResponse {
	out := SessionResponse{
		ID:           v.ID,
		Flow:         string(v.Flow),
		Mode:         string(v.Mode),
		OrderID:      v.OrderID,
		OrderStatus:  v.OrderStatus,
		WarehouseID:  v.Destination.WarehouseID,
		LocationID:   v.Destination.LocationID,
		Cart:         make([]CartItemDTO, 0, len(v.Cart)),
		CurrentError: v.CurrentError,
		State:        string(v.State),
	}
	for i, item := range v.Cart {
		out.Cart = append(out.Cart, CartItemDTO{
			Index:       i,
			ProductID:   item.ProductID,
			SKU:         item.SKU,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Barcode:     item.Barcode,
			WarehouseID: item.WarehouseID,
			LocationID:  item.LocationID,
			UnitCost:    item.UnitCost,
			Available:   item.Available,
		})
	}
	if v.Scanned != nil {
		out.Scanned = NewScannedProductDTO(v.Scanned)
	}
	return out
}

// NewScannedProductDTO mapea el producto escaneado.
func NewScannedProductDTO(s *fulfillment.ScannedProduct) *ScannedProductDTO {
	if s == nil || s.Product == nil {
		return nil
	}
	return &ScannedProductDTO{
		ProductID:  s.Product.ID,
		SKU:        s.Product.SKU,
		Name:       s.Product.Name,
		Barcode:    s.Barcode,
		MaxAllowed: s.MaxAllowed,
	}
}

// NewFinalizeResponse mapea el resultado de la confirmación.
func NewFinalizeResponse(r fulfillment.FinalizeResult) FinalizeResponse {
	lines := r.Lines
	if lines == nil {
		lines = []fulfillment.LineResult{}
	}
	return FinalizeResponse{
		BatchID:        r.BatchID,
		State:          string(r.State),
		Inserted:       r.Inserted,
		Lines:          lines,
		FailedLines:    r.FailedLines,
		Partial:        r.Partial,
		OrderCompleted: r.OrderCompleted,
		Warnings:       r.Warnings,
		Error:          r.ErrorMessage(),
	}
}
