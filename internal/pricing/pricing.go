// Package pricing computes slot-based charges for timed services and
// assembles sale payloads from a point-of-sale cart.
package pricing

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/BSTCMX/kidyland-dashboard-backup-sub009/internal/models"
)

var (
	// ErrNoMinutes is returned when a service line requests zero time
	ErrNoMinutes = errors.New("pricing: minutes must be positive")
	// ErrUnpricedService is returned when a service has no slot length
	ErrUnpricedService = errors.New("pricing: service has no slot configuration")
	// ErrUnknownService is returned when a cart references a service not in the catalog
	ErrUnknownService = errors.New("pricing: unknown service")
	// ErrEmptyCart is returned when a sale is built from no items
	ErrEmptyCart = errors.New("pricing: cart has no items")
	// ErrMissingChild is returned when a service line has no child name
	ErrMissingChild = errors.New("pricing: service item requires a child name")
)

// Quote is the charge for one child's time on one service. Requested
// minutes round up to whole slots, so BilledMinutes >= the request.
type Quote struct {
	ServiceID     string
	Slots         int
	BilledMinutes int
	AmountCents   int64
}

// QuoteService prices minutes of play on svc. Partial slots are charged as
// full slots.
func QuoteService(svc models.Service, minutes int) (Quote, error) {
	if minutes <= 0 {
		return Quote{}, ErrNoMinutes
	}
	if svc.SlotMinutes <= 0 {
		return Quote{}, fmt.Errorf("%w: %s", ErrUnpricedService, svc.ID)
	}
	slots := (minutes + svc.SlotMinutes - 1) / svc.SlotMinutes
	return Quote{
		ServiceID:     svc.ID,
		Slots:         slots,
		BilledMinutes: slots * svc.SlotMinutes,
		AmountCents:   int64(slots) * svc.PricePerSlotCents,
	}, nil
}

// CartItem is one line the cashier rang up. Service lines set ServiceID,
// Minutes and the child fields; product lines set ProductID, Quantity and
// UnitPriceCents.
type CartItem struct {
	ServiceID     string
	Minutes       int
	ChildName     string
	ChildAge      int
	StartDelayMin int

	ProductID      string
	Description    string
	Quantity       int
	UnitPriceCents int64
}

// BuildSale turns a cart into the sale payload for the venue API. Service
// lines are priced through the catalog and produce one timer request each,
// carrying the billed (slot-rounded) minutes. The idempotency key is
// generated here so a retried POST cannot double-charge.
func BuildSale(sucursalID string, cart []CartItem, catalog map[string]models.Service) (models.Sale, error) {
	if sucursalID == "" {
		return models.Sale{}, errors.New("pricing: sucursal id is required")
	}
	if len(cart) == 0 {
		return models.Sale{}, ErrEmptyCart
	}

	sale := models.Sale{
		IdempotencyKey: uuid.NewString(),
		SucursalID:     sucursalID,
	}

	for i, it := range cart {
		switch {
		case it.ServiceID != "":
			svc, ok := catalog[it.ServiceID]
			if !ok {
				return models.Sale{}, fmt.Errorf("%w: %s", ErrUnknownService, it.ServiceID)
			}
			if it.ChildName == "" {
				return models.Sale{}, fmt.Errorf("%w (item %d, service %s)", ErrMissingChild, i, it.ServiceID)
			}
			q, err := QuoteService(svc, it.Minutes)
			if err != nil {
				return models.Sale{}, fmt.Errorf("item %d: %w", i, err)
			}
			sale.Items = append(sale.Items, models.SaleItem{
				ServiceID:      svc.ID,
				Description:    svc.Name,
				Quantity:       1,
				UnitPriceCents: q.AmountCents,
				TotalCents:     q.AmountCents,
			})
			sale.Timers = append(sale.Timers, models.TimerRequest{
				ServiceID:     svc.ID,
				ChildName:     it.ChildName,
				ChildAge:      it.ChildAge,
				Minutes:       q.BilledMinutes,
				StartDelayMin: it.StartDelayMin,
			})
			sale.TotalCents += q.AmountCents

		case it.ProductID != "":
			qty := it.Quantity
			if qty <= 0 {
				qty = 1
			}
			total := int64(qty) * it.UnitPriceCents
			sale.Items = append(sale.Items, models.SaleItem{
				ProductID:      it.ProductID,
				Description:    it.Description,
				Quantity:       qty,
				UnitPriceCents: it.UnitPriceCents,
				TotalCents:     total,
			})
			sale.TotalCents += total

		default:
			return models.Sale{}, fmt.Errorf("pricing: item %d has neither service_id nor product_id", i)
		}
	}

	return sale, nil
}
