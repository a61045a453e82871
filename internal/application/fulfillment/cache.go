package fulfillment

import "sync"

// RegisteredCache guarda, por orden, la cantidad durable registrada de cada producto.
// Pertenece a la orden y no a la sesión: nunca se limpia al reiniciar una sesión.
// La comparten todas las sesiones de un mismo flujo.
type RegisteredCache struct {
	mu      sync.RWMutex
	entries map[string]map[string]int64
}

// NewRegisteredCache crea una caché vacía.
func NewRegisteredCache() *RegisteredCache {
	return &RegisteredCache{entries: make(map[string]map[string]int64)}
}

// Replace reemplaza (no mezcla) la entrada completa de la orden.
func (c *RegisteredCache) Replace(orderID string, registered map[string]int64) {
	entry := make(map[string]int64, len(registered))
	for k, v := range registered {
		entry[k] = v
	}
	c.mu.Lock()
	c.entries[orderID] = entry
	c.mu.Unlock()
}

// Set actualiza un producto de la orden.
func (c *RegisteredCache) Set(orderID, productID string, qty int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[orderID]
	if !ok {
		entry = make(map[string]int64)
		c.entries[orderID] = entry
	}
	entry[productID] = qty
}

// Get devuelve lo registrado para el producto; 0 si no hay entrada.
func (c *RegisteredCache) Get(orderID, productID string) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[orderID][productID]
}

// Has indica si la orden ya fue cargada.
func (c *RegisteredCache) Has(orderID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[orderID]
	return ok
}

// Snapshot devuelve una copia de la entrada de la orden.
func (c *RegisteredCache) Snapshot(orderID string) map[string]int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]int64, len(c.entries[orderID]))
	for k, v := range c.entries[orderID] {
		out[k] = v
	}
	return out
}
