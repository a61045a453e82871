package fulfillment

import "github.com/jhoicas/recepcion-despacho/internal/domain/entity"

// LineProgress avance de una línea de la orden.
type LineProgress struct {
	LineID         string `json:"line_id"`
	ProductID      string `json:"product_id"`
	LocationID     string `json:"location_id,omitempty"`
	Required       int64  `json:"required"`
	Registered     int64  `json:"registered"`
	SessionScanned int64  `json:"session_scanned"`
	Pending        int64  `json:"pending"`
	IsComplete     bool   `json:"is_complete"`
}

// Progress vista derivada del avance de la orden (solo lectura).
type Progress struct {
	OrderID         string         `json:"order_id"`
	Lines           []LineProgress `json:"lines"`
	TotalRequired   int64          `json:"total_required"`
	TotalRegistered int64          `json:"total_registered"`
	TotalScanned    int64          `json:"total_scanned"`
	TotalPending    int64          `json:"total_pending"`
	Percent         float64        `json:"percent"`
	IsComplete      bool           `json:"is_complete"`
}

// CalculateProgress combina lo registrado (caché) y lo escaneado en la sesión.
// El aporte de la sesión se recorta a lo que falta después de lo registrado,
// así un valor viejo de sesión nunca lleva el avance por encima del 100%.
// productFilter vacío incluye todas las líneas.
//
// El porcentaje es sobre lo que estaba pendiente al iniciar la sesión, no sobre la orden completa;
// si no había nada pendiente es 100.
func CalculateProgress(
	order *entity.Order,
	registered map[string]int64,
	session map[string]int64,
	productFilter string,
) Progress {
	p := Progress{OrderID: order.ID, Lines: make([]LineProgress, 0, len(order.Lines))}
	for _, line := range order.Lines {
		if productFilter != "" && line.ProductID != productFilter {
			continue
		}
		required := line.RequiredQuantity
		if required < 0 {
			required = 0
		}
		reg := Clamp(registered[line.ProductID], required)
		maxPending := required - reg
		scanned := Clamp(session[line.ProductID], maxPending)
		pending := required - reg - scanned
		if pending < 0 {
			pending = 0
		}

		p.Lines = append(p.Lines, LineProgress{
			LineID:         line.ID,
			ProductID:      line.ProductID,
			LocationID:     line.LocationID,
			Required:       required,
			Registered:     reg,
			SessionScanned: scanned,
			Pending:        pending,
			IsComplete:     pending == 0,
		})
		p.TotalRequired += required
		p.TotalRegistered += reg
		p.TotalScanned += scanned
		p.TotalPending += pending
	}

	pendingAtStart := p.TotalRequired - p.TotalRegistered
	if pendingAtStart <= 0 {
		p.Percent = 100
	} else {
		p.Percent = float64(p.TotalScanned) / float64(pendingAtStart) * 100
		if p.Percent > 100 {
			p.Percent = 100
		}
	}
	p.IsComplete = p.TotalPending == 0
	return p
}

// IsRegisteredComplete indica si la orden ya estaba completa solo con lo registrado.
func IsRegisteredComplete(order *entity.Order, registered map[string]int64) bool {
	return CalculateProgress(order, registered, nil, "").IsComplete
}
