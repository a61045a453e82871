package fulfillment_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/recepcion-despacho/internal/application/fulfillment"
	"github.com/jhoicas/recepcion-despacho/internal/domain/entity"
	"github.com/jhoicas/recepcion-despacho/internal/domain/repository"
	"github.com/jhoicas/recepcion-despacho/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// fakeStore: backend en memoria que implementa todos los puertos del motor
// ──────────────────────────────────────────────────────────────────────────────

type fakeStore struct {
	mu sync.Mutex

	orders     map[string]*entity.Order
	movements  []*entity.InventoryMovement
	cancelled  []string
	products   map[string]*entity.Product
	warehouses map[string]*entity.Warehouse
	stock      map[string]int64 // productID|warehouseID
	registered map[string]int64 // orderID|productID, lo que lleva el RPC

	orderErr      error
	listErr       error
	insertResult  *int64 // si no es nil, InsertBatch devuelve esto sin insertar
	insertErr     error
	applyErr      map[string]error
	applyOverride map[string]int64 // productID -> new_total devuelto (sin tocar el registro)
	insertStarted chan struct{}
	insertGate    chan struct{}
	orderStarted  chan struct{}
	orderGate     chan struct{}

	insertCalls int
	applyCalls  []string
}

var (
	_ repository.OrderRepository             = (*fakeStore)(nil)
	_ repository.InventoryMovementRepository = (*fakeStore)(nil)
	_ repository.DeliveryApplier             = (*fakeStore)(nil)
	_ repository.ProductRepository           = (*fakeStore)(nil)
	_ repository.WarehouseRepository         = fakeWarehouses{}
	_ repository.StockRepository             = (*fakeStore)(nil)
	_ fulfillment.TxRunner                   = (*fakeStore)(nil)
)

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders:        make(map[string]*entity.Order),
		products:      make(map[string]*entity.Product),
		warehouses:    map[string]*entity.Warehouse{"wh-1": {ID: "wh-1", Name: "Bodega principal"}},
		stock:         make(map[string]int64),
		registered:    make(map[string]int64),
		applyErr:      make(map[string]error),
		applyOverride: make(map[string]int64),
	}
}

func (f *fakeStore) addOrder(o *entity.Order) { f.orders[o.ID] = o }

func (f *fakeStore) addProduct(id, barcode string) {
	f.products[id] = &entity.Product{ID: id, SKU: "SKU-" + id, Barcode: barcode, Name: "Producto " + id, Cost: decimal.NewFromInt(1000)}
}

// addRegistered simula movimientos ya confirmados (y el total durable del RPC).
func (f *fakeStore) addRegistered(orderID, productID string, qty int64) {
	f.movements = append(f.movements, &entity.InventoryMovement{
		ID: fmt.Sprintf("seed-%d", len(f.movements)), OrderID: orderID,
		ProductID: productID, Quantity: qty, WarehouseID: "wh-1",
	})
	f.registered[orderID+"|"+productID] += qty
}

func (f *fakeStore) GetWithLines(_ context.Context, id string) (*entity.Order, error) {
	if f.orderStarted != nil {
		close(f.orderStarted)
		f.orderStarted = nil
	}
	if f.orderGate != nil {
		<-f.orderGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.orderErr != nil {
		return nil, f.orderErr
	}
	o, ok := f.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	cp.Lines = append([]entity.LineItem(nil), o.Lines...)
	return &cp, nil
}

func (f *fakeStore) InsertBatch(_ context.Context, movements []*entity.InventoryMovement) (int64, error) {
	if f.insertStarted != nil {
		close(f.insertStarted)
		f.insertStarted = nil
	}
	if f.insertGate != nil {
		<-f.insertGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertCalls++
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	if f.insertResult != nil {
		return *f.insertResult, nil
	}
	for _, m := range movements {
		cp := *m
		f.movements = append(f.movements, &cp)
	}
	return int64(len(movements)), nil
}

func (f *fakeStore) ListByOrder(_ context.Context, orderID string) ([]*entity.InventoryMovement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*entity.InventoryMovement
	for _, m := range f.movements {
		if m.OrderID == orderID {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStore) ListCancelledIDs(_ context.Context, _ string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.cancelled...), nil
}

func (f *fakeStore) ListByBatch(_ context.Context, batchID string) ([]*entity.InventoryMovement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.InventoryMovement
	for _, m := range f.movements {
		if m.BatchID == batchID {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStore) ApplyDelivery(_ context.Context, orderID, productID string, delta int64) (*entity.DeliveryResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applyCalls = append(f.applyCalls, productID)
	if err := f.applyErr[productID]; err != nil {
		return nil, err
	}
	if v, ok := f.applyOverride[productID]; ok {
		return &entity.DeliveryResult{NewTotal: v}, nil
	}
	key := orderID + "|" + productID
	f.registered[key] += delta
	o := f.orders[orderID]
	res := &entity.DeliveryResult{NewTotal: f.registered[key], OrderComplete: true}
	for _, l := range o.Lines {
		done := f.registered[orderID+"|"+l.ProductID] >= l.RequiredQuantity
		if l.ProductID == productID {
			res.LineComplete = done
		}
		if !done {
			res.OrderComplete = false
		}
	}
	if res.OrderComplete {
		o.Status = entity.OrderStatusCompleted
	} else {
		o.Status = entity.OrderStatusPartial
	}
	return res, nil
}

func (f *fakeStore) GetByID(_ context.Context, id string) (*entity.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.products[id], nil
}

func (f *fakeStore) GetByCode(_ context.Context, code string) (*entity.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.products {
		if p.Barcode == code || p.SKU == code {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) Get(_ context.Context, productID, warehouseID string) (*entity.Stock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &entity.Stock{ProductID: productID, WarehouseID: warehouseID, Quantity: f.stock[productID+"|"+warehouseID]}, nil
}

// Run emula la transacción: si fn falla se descartan los movimientos insertados.
func (f *fakeStore) Run(ctx context.Context, fn func(movRepo repository.InventoryMovementRepository) error) error {
	f.mu.Lock()
	before := len(f.movements)
	f.mu.Unlock()
	if err := fn(f); err != nil {
		f.mu.Lock()
		f.movements = f.movements[:before]
		f.mu.Unlock()
		return err
	}
	return nil
}

// fakeWarehouses adapta el repositorio de bodegas (GetByID choca con el de productos).
type fakeWarehouses struct{ f *fakeStore }

func (w fakeWarehouses) GetByID(_ context.Context, id string) (*entity.Warehouse, error) {
	w.f.mu.Lock()
	defer w.f.mu.Unlock()
	return w.f.warehouses[id], nil
}

func (f *fakeStore) deps() fulfillment.Deps {
	return fulfillment.Deps{
		Orders:     f,
		Movements:  f,
		Delivery:   f,
		Products:   f,
		Warehouses: fakeWarehouses{f},
		Stock:      f,
		TxRunner:   f,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────────────────────────────────

var errBackend = errors.New("backend caído")

func newEngine(f *fakeStore, flow entity.Flow) *fulfillment.Engine {
	return fulfillment.NewEngine(flow, f.deps(), nil, logger.Nop(), fulfillment.Options{BackendTimeout: time.Second})
}

// purchaseOrder orden de compra po-1 con las líneas (producto, requerido) dadas.
func purchaseOrder(lines ...entity.LineItem) *entity.Order {
	return &entity.Order{ID: "po-1", Flow: entity.FlowInbound, Status: entity.OrderStatusOpen, OrderedFor: "Proveedor S.A.S.", Lines: lines}
}

func lineOf(productID string, required int64) entity.LineItem {
	return entity.LineItem{ID: "line-" + productID, OrderID: "po-1", ProductID: productID, RequiredQuantity: required, UnitCost: decimal.NewFromInt(2500)}
}

// readySession sesión con la orden po-1 y la bodega wh-1 seleccionadas.
func readySession(t *testing.T, e *fulfillment.Engine) *fulfillment.Session {
	t.Helper()
	s := e.NewSession(fulfillment.ModeOrder)
	if err := s.SelectOrder(context.Background(), "po-1"); err != nil {
		t.Fatalf("SelectOrder: %v", err)
	}
	if err := s.SelectDestination(context.Background(), "wh-1", ""); err != nil {
		t.Fatalf("SelectDestination: %v", err)
	}
	return s
}

func decimalOf(n int64) decimal.Decimal { return decimal.NewFromInt(n) }
