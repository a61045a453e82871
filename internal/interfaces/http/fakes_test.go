package http_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/recepcion-despacho/internal/application/fulfillment"
	"github.com/jhoicas/recepcion-despacho/internal/domain/entity"
	"github.com/jhoicas/recepcion-despacho/internal/domain/repository"
)

// memStore backend en memoria mínimo para probar los handlers de punta a punta.
type memStore struct {
	mu        sync.Mutex
	orders    map[string]*entity.Order
	products  map[string]*entity.Product
	movements []*entity.InventoryMovement
	totals    map[string]int64
	stock     int64
	zeroRows  bool
}

func newMemStore() *memStore {
	return &memStore{
		orders: map[string]*entity.Order{
			"po-1": {ID: "po-1", Flow: entity.FlowInbound, Status: entity.OrderStatusOpen, Lines: []entity.LineItem{
				{ID: "l-1", OrderID: "po-1", ProductID: "P", RequiredQuantity: 10, UnitCost: decimal.NewFromInt(500)},
			}},
			"do-1": {ID: "do-1", Flow: entity.FlowOutbound, Status: entity.OrderStatusOpen, Lines: []entity.LineItem{
				{ID: "l-2", OrderID: "do-1", ProductID: "P", RequiredQuantity: 5, UnitCost: decimal.NewFromInt(500)},
			}},
		},
		products: map[string]*entity.Product{
			"P": {ID: "P", SKU: "SKU-P", Barcode: "7701", Name: "Producto P", Cost: decimal.NewFromInt(400)},
		},
		totals: make(map[string]int64),
		stock:  3,
	}
}

func (m *memStore) GetWithLines(_ context.Context, id string) (*entity.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	cp.Lines = append([]entity.LineItem(nil), o.Lines...)
	return &cp, nil
}

func (m *memStore) ApplyDelivery(_ context.Context, orderID, productID string, delta int64) (*entity.DeliveryResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := orderID + "|" + productID
	m.totals[key] += delta
	line, _ := m.orders[orderID].Line(productID)
	done := m.totals[key] >= line.RequiredQuantity
	return &entity.DeliveryResult{NewTotal: m.totals[key], LineComplete: done, OrderComplete: done}, nil
}

func (m *memStore) InsertBatch(_ context.Context, movements []*entity.InventoryMovement) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.zeroRows {
		return 0, nil
	}
	m.movements = append(m.movements, movements...)
	return int64(len(movements)), nil
}

func (m *memStore) ListByOrder(_ context.Context, orderID string) ([]*entity.InventoryMovement, error) {
	return m.filter(func(mv *entity.InventoryMovement) bool { return mv.OrderID == orderID }), nil
}

func (m *memStore) ListCancelledIDs(context.Context, string) ([]string, error) { return nil, nil }

func (m *memStore) ListByBatch(_ context.Context, batchID string) ([]*entity.InventoryMovement, error) {
	return m.filter(func(mv *entity.InventoryMovement) bool { return mv.BatchID == batchID }), nil
}

func (m *memStore) filter(keep func(*entity.InventoryMovement) bool) []*entity.InventoryMovement {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.InventoryMovement
	for _, mv := range m.movements {
		if keep(mv) {
			cp := *mv
			out = append(out, &cp)
		}
	}
	return out
}

func (m *memStore) GetByID(_ context.Context, id string) (*entity.Product, error) {
	return m.products[id], nil
}

func (m *memStore) GetByCode(_ context.Context, code string) (*entity.Product, error) {
	for _, p := range m.products {
		if p.Barcode == code || p.SKU == code {
			return p, nil
		}
	}
	return nil, nil
}

func (m *memStore) Get(_ context.Context, productID, warehouseID string) (*entity.Stock, error) {
	return &entity.Stock{ProductID: productID, WarehouseID: warehouseID, Quantity: m.stock}, nil
}

func (m *memStore) Run(_ context.Context, fn func(movRepo repository.InventoryMovementRepository) error) error {
	return fn(m)
}

type memWarehouses struct{}

func (memWarehouses) GetByID(_ context.Context, id string) (*entity.Warehouse, error) {
	if id != "wh-1" {
		return nil, nil
	}
	return &entity.Warehouse{ID: "wh-1", Name: "Principal"}, nil
}

// fakeSlips renderiza un PDF de mentira.
type fakeSlips struct{}

func (fakeSlips) GenerateSlip(_ context.Context, data fulfillment.SlipData) ([]byte, error) {
	return []byte(fmt.Sprintf("%%PDF-1.4 %s", data.BatchID)), nil
}
