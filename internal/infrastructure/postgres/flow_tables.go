package postgres

import (
	"fmt"

	"github.com/jhoicas/recepcion-despacho/internal/domain/entity"
)

// FlowTables nombres de tablas y función RPC de un flujo. Entradas y salidas tienen
// el mismo esquema en tablas distintas.
type FlowTables struct {
	Flow          entity.Flow
	Orders        string
	Lines         string
	Movements     string
	Cancellations string
	ApplyFunc     string
}

var flowTables = map[entity.Flow]FlowTables{
	entity.FlowInbound: {
		Flow:          entity.FlowInbound,
		Orders:        "purchase_orders",
		Lines:         "purchase_order_lines",
		Movements:     "inventory_entries",
		Cancellations: "inventory_entry_cancellations",
		ApplyFunc:     "apply_purchase_order_receipt",
	},
	entity.FlowOutbound: {
		Flow:          entity.FlowOutbound,
		Orders:        "delivery_orders",
		Lines:         "delivery_order_lines",
		Movements:     "inventory_exits",
		Cancellations: "inventory_exit_cancellations",
		ApplyFunc:     "apply_delivery_order_dispatch",
	},
}

// TablesFor devuelve las tablas del flujo.
func TablesFor(flow entity.Flow) (FlowTables, error) {
	t, ok := flowTables[flow]
	if !ok {
		return FlowTables{}, fmt.Errorf("postgres: flujo desconocido %q", flow)
	}
	return t, nil
}

// MustTablesFor como TablesFor pero entra en pánico con un flujo desconocido (solo para el arranque).
func MustTablesFor(flow entity.Flow) FlowTables {
	t, err := TablesFor(flow)
	if err != nil {
		panic(err)
	}
	return t
}

// nullString convierte "" en NULL.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
