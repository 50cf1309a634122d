package models

// SaleItem is one line of a sale. Exactly one of ServiceID or ProductID is
// set; service lines carry the slot-rounded charge for one child's time.
type SaleItem struct {
	ServiceID      string `json:"service_id,omitempty"`
	ProductID      string `json:"product_id,omitempty"`
	Description    string `json:"description,omitempty"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	TotalCents     int64  `json:"total_cents"`
}

// TimerRequest asks the server to create a countdown for a service line.
// Minutes is the billed time after slot rounding, not the requested time.
type TimerRequest struct {
	ServiceID     string `json:"service_id"`
	ChildName     string `json:"child_name"`
	ChildAge      int    `json:"child_age,omitempty"`
	Minutes       int    `json:"minutes"`
	StartDelayMin int    `json:"start_delay_min,omitempty"`
}

// Sale is the request payload for registering a sale. IdempotencyKey lets
// the server drop duplicate submissions after a retried POST.
type Sale struct {
	IdempotencyKey string         `json:"idempotency_key"`
	SucursalID     string         `json:"sucursal_id"`
	Items          []SaleItem     `json:"items"`
	Timers         []TimerRequest `json:"timers,omitempty"`
	TotalCents     int64          `json:"total_cents"`
}
