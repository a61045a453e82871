// Package pdf genera el comprobante de recepción o despacho de un lote confirmado.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Título del comprobante │  Lote + Fecha             │
//	│  ─────────────────────────────────────────────────────────  │
//	│  ORDEN: número / estado / proveedor o cliente               │
//	│  BODEGA: nombre + dirección │ Registrado por                │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: SKU | Producto | Ubic. | Cant | C.Unit | Total      │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES: Unidades / Costo total                            │
//	│  FOOTER: QR con el id del lote + firmas                     │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/recepcion-despacho/internal/application/fulfillment"
	"github.com/jhoicas/recepcion-despacho/internal/domain/entity"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorRed     = &props.Color{Red: 170, Green: 30, Blue: 30}
)

var _ fulfillment.SlipGenerator = (*MarotoSlipGenerator)(nil)

// MarotoSlipGenerator implementa fulfillment.SlipGenerator usando Maroto v2.
type MarotoSlipGenerator struct {
	company string
}

// NewMarotoSlipGenerator construye el generador; company aparece como autor del documento.
func NewMarotoSlipGenerator(company string) *MarotoSlipGenerator {
	return &MarotoSlipGenerator{company: company}
}

// GenerateSlip genera el PDF y devuelve sus bytes.
func (g *MarotoSlipGenerator) GenerateSlip(_ context.Context, data fulfillment.SlipData) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle(slipTitle(data.Flow), true).
		WithAuthor(nonEmpty(g.company, "recepcion-despacho"), true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(data))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(orderRow(data))
	m.AddRows(warehouseRow(data))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(tableDetailRows(data.Lines)...)

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(data))
	m.AddRows(line.NewRow(3))
	m.AddRows(footerRow(data))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func slipTitle(flow entity.Flow) string {
	if flow == entity.FlowOutbound {
		return "Comprobante de despacho"
	}
	return "Comprobante de recepción"
}

// headerRow: título (izq) y lote + fecha (der).
func headerRow(data fulfillment.SlipData) core.Row {
	return row.New(18).Add(
		col.New(7).Add(
			text.New(strings.ToUpper(slipTitle(data.Flow)), props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New(movementLabel(data.Flow), props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("LOTE", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right, Color: colorPrimary, Top: 1,
			}),
			text.New(data.BatchID, props.Text{
				Size: 7, Align: align.Right, Top: 7,
			}),
			text.New("Fecha: "+data.CreatedAt.Format("02/01/2006 15:04"), props.Text{
				Size: 8, Align: align.Right, Top: 13, Color: colorGray,
			}),
		),
	)
}

func movementLabel(flow entity.Flow) string {
	if flow == entity.FlowOutbound {
		return "Salida de inventario"
	}
	return "Entrada de inventario"
}

// orderRow: orden asociada o leyenda de movimiento libre.
func orderRow(data fulfillment.SlipData) core.Row {
	if data.Order == nil {
		return row.New(10).Add(col.New(12).Add(
			text.New("MOVIMIENTO SIN ORDEN", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 2,
			}),
		))
	}
	party := "Proveedor"
	if data.Flow == entity.FlowOutbound {
		party = "Cliente"
	}
	return row.New(14).Add(
		col.New(12).Add(
			text.New("ORDEN", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(data.Order.ID, props.Text{
				Style: fontstyle.Bold, Size: 10, Top: 6,
			}),
			text.New(fmt.Sprintf("Estado: %s   |   %s: %s   |   Solicitada por: %s",
				data.Order.Status,
				party, nonEmpty(data.Order.OrderedFor, "-"),
				nonEmpty(data.Order.OrderedBy, "-"),
			), props.Text{Size: 8, Top: 12, Color: colorGray}),
		),
	)
}

// warehouseRow: bodega y usuario que confirmó.
func warehouseRow(data fulfillment.SlipData) core.Row {
	name, address := "-", "-"
	if data.Warehouse != nil {
		name = data.Warehouse.Name
		address = nonEmpty(data.Warehouse.Address, "-")
	}
	return row.New(12).Add(
		col.New(8).Add(
			text.New("BODEGA", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(fmt.Sprintf("%s   |   %s", name, address), props.Text{Size: 8, Top: 7, Color: colorGray}),
		),
		col.New(4).Add(
			text.New("REGISTRADO POR", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right, Color: colorPrimary, Top: 1,
			}),
			text.New(nonEmpty(data.CreatedBy, "-"), props.Text{Size: 8, Align: align.Right, Top: 7, Color: colorGray}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("SKU", 2, align.Left),
		h("Producto", 4, align.Left),
		h("Ubic.", 1, align.Center),
		h("Cant.", 1, align.Center),
		h("Costo unit.", 2, align.Right),
		h("Total", 2, align.Right),
	)
}

// tableDetailRows: una fila por movimiento; los anulados en rojo.
func tableDetailRows(lines []fulfillment.SlipLine) []core.Row {
	result := make([]core.Row, 0, len(lines))
	for _, l := range lines {
		style := props.Text{Size: 8, Top: 1}
		name := l.ProductName
		if l.Cancelled {
			style.Color = colorRed
			name += " (anulado)"
		}
		cell := func(s string, a align.Type) core.Component {
			p := style
			p.Align = a
			p.Left, p.Right = 1, 1
			return text.New(s, p)
		}
		result = append(result, row.New(7).Add(
			col.New(2).Add(cell(l.SKU, align.Left)),
			col.New(4).Add(cell(name, align.Left)),
			col.New(1).Add(cell(nonEmpty(l.LocationID, "-"), align.Center)),
			col.New(1).Add(cell(fmt.Sprintf("%d", l.Quantity), align.Center)),
			col.New(2).Add(cell("$"+formatMoney(l.UnitCost), align.Right)),
			col.New(2).Add(cell("$"+formatMoney(l.TotalCost), align.Right)),
		))
	}
	return result
}

func totalsRow(data fulfillment.SlipData) core.Row {
	label := func(s string, top float64) core.Component {
		return text.New(s, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2, Top: top})
	}
	value := func(s string, top float64) core.Component {
		return text.New(s, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 1, Top: top, Color: colorPrimary})
	}
	return row.New(14).Add(
		col.New(6),
		col.New(3).Add(label("Unidades:", 1), label("Costo total:", 7)),
		col.New(3).Add(
			value(fmt.Sprintf("%d", data.TotalUnits), 1),
			value("$"+formatMoney(data.TotalCost), 7),
		),
	)
}

// footerRow: QR con el id del lote y espacio para firmas.
func footerRow(data fulfillment.SlipData) core.Row {
	return row.New(40).Add(
		col.New(3).Add(code.NewQr(data.BatchID, props.Rect{Percent: 95, Center: true})),
		col.New(9).Add(
			text.New("Escanee el código para consultar el lote.", props.Text{
				Size: 8, Top: 4, Left: 3, Color: colorGray,
			}),
			text.New("Entregó: ______________________        Recibió: ______________________", props.Text{
				Size: 9, Top: 26, Left: 3,
			}),
		),
	)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// formatMoney redondea a pesos y agrega puntos de miles. Ej: 1000000 → "1.000.000".
func formatMoney(d decimal.Decimal) string {
	s := d.StringFixed(0)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	n := len(s)
	if n <= 3 {
		return sign + s
	}
	buf := make([]byte, 0, n+n/3)
	for i, c := range []byte(s) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	return sign + string(buf)
}
