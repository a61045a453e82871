package fulfillment

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/recepcion-despacho/internal/domain"
	"github.com/jhoicas/recepcion-despacho/internal/domain/entity"
)

// SlipLine línea del comprobante de un lote confirmado.
type SlipLine struct {
	SKU         string
	ProductName string
	LocationID  string
	Quantity    int64
	UnitCost    decimal.Decimal
	TotalCost   decimal.Decimal
	Cancelled   bool
}

// SlipData datos para el comprobante de recepción/despacho.
type SlipData struct {
	Flow       entity.Flow
	BatchID    string
	Order      *entity.Order // nil en movimientos libres
	Warehouse  *entity.Warehouse
	CreatedAt  time.Time
	CreatedBy  string
	Lines      []SlipLine
	TotalUnits int64
	TotalCost  decimal.Decimal
}

// SlipGenerator puerto de salida para renderizar el comprobante (PDF).
type SlipGenerator interface {
	GenerateSlip(ctx context.Context, data SlipData) ([]byte, error)
}

// SlipUseCase genera el comprobante PDF de un lote de movimientos ya confirmado.
type SlipUseCase struct {
	engine    *Engine
	generator SlipGenerator
}

// NewSlipUseCase construye el caso de uso sobre los puertos del motor.
func NewSlipUseCase(engine *Engine, generator SlipGenerator) *SlipUseCase {
	return &SlipUseCase{engine: engine, generator: generator}
}

// DownloadSlip arma y renderiza el comprobante del lote.
//
// Retorna:
//   - (pdfBytes, filename, nil) si todo sale bien.
//   - domain.ErrNotFound si el lote no existe en este flujo.
func (uc *SlipUseCase) DownloadSlip(ctx context.Context, batchID string) ([]byte, string, error) {
	if batchID == "" {
		return nil, "", domain.ErrInvalidInput
	}
	deps := uc.engine.deps
	ctx, cancel := backendContext(ctx, uc.engine.timeout)
	defer cancel()

	movements, err := deps.Movements.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, "", fmt.Errorf("comprobante: listar lote: %w", err)
	}
	if len(movements) == 0 {
		return nil, "", domain.ErrNotFound
	}
	sort.SliceStable(movements, func(i, j int) bool {
		return movements[i].CreatedAt.Before(movements[j].CreatedAt)
	})

	first := movements[0]
	data := SlipData{
		Flow:      uc.engine.flow,
		BatchID:   batchID,
		CreatedAt: first.CreatedAt,
		CreatedBy: first.CreatedBy,
		TotalCost: decimal.Zero,
	}
	if first.OrderID != "" {
		order, err := deps.Orders.GetWithLines(ctx, first.OrderID)
		if err != nil {
			return nil, "", fmt.Errorf("comprobante: obtener orden: %w", err)
		}
		data.Order = order
	}
	wh, err := deps.Warehouses.GetByID(ctx, first.WarehouseID)
	if err != nil {
		return nil, "", fmt.Errorf("comprobante: obtener bodega: %w", err)
	}
	data.Warehouse = wh

	for _, m := range movements {
		line := SlipLine{
			SKU:         m.ProductID,
			ProductName: m.ProductID,
			LocationID:  m.LocationID,
			Quantity:    m.Quantity,
			UnitCost:    m.UnitCost,
			TotalCost:   m.TotalCost,
			Cancelled:   m.Cancelled,
		}
		if p, err := deps.Products.GetByID(ctx, m.ProductID); err == nil && p != nil {
			line.SKU = p.SKU
			line.ProductName = p.Name
		}
		if !m.Cancelled {
			data.TotalUnits += m.Quantity
			data.TotalCost = data.TotalCost.Add(m.TotalCost)
		}
		data.Lines = append(data.Lines, line)
	}

	pdf, err := uc.generator.GenerateSlip(ctx, data)
	if err != nil {
		return nil, "", fmt.Errorf("comprobante: generar pdf: %w", err)
	}
	prefix := "entrada"
	if uc.engine.flow == entity.FlowOutbound {
		prefix = "salida"
	}
	return pdf, fmt.Sprintf("%s_%s.pdf", prefix, batchID), nil
}
