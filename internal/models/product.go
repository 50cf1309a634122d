package models

// Product is the stock projection for a sellable inventory item at one
// sucursal. The feed pushes products whose stock has fallen to or below
// their configured minimum.
type Product struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Stock      int    `json:"stock"`
	MinStock   int    `json:"min_stock"`
	SucursalID string `json:"sucursal_id,omitempty"`
}

// LowStock reports whether the product is at or below its minimum stock.
func (p *Product) LowStock() bool {
	return p.Stock <= p.MinStock
}
