package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

var ErrMalformedSnapshot = errors.New("malformed cart snapshot")

// MaxLineQuantity caps the quantity of a single line item.
const MaxLineQuantity = 9999

// ClampQuantity limits q to [1, MaxLineQuantity].
func ClampQuantity(q int) int {
	if q < 1 {
		return 1
	}
	if q > MaxLineQuantity {
		return MaxLineQuantity
	}
	return q
}

// LineItem is one product entry in the cart. Quantity is always >= 1 for
// an item that is part of a cart.
type LineItem struct {
	Product    Product `json:"product"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unitPrice"`
	TotalPrice float64 `json:"totalPrice"`
}

// CartState is the authoritative in-memory cart. ItemCount and Total are
// derived from Items and are recomputed by every mutation.
type CartState struct {
	Items     []LineItem `json:"items"`
	ItemCount int        `json:"itemCount"`
	Total     float64    `json:"total"`
	Version   uint64     `json:"version"`
}

// Snapshot is the serialized CartState written under the "cart" storage key.
type Snapshot struct {
	Items     []LineItem `json:"items"`
	ItemCount int        `json:"itemCount"`
	Total     float64    `json:"total"`
}

// Totals sums the derived fields of a cart.
func Totals(items []LineItem) (count int, total float64) {
	for _, item := range items {
		count += item.Quantity
		total += item.UnitPrice * float64(item.Quantity)
	}
	return count, total
}

// Recompute refreshes every line total and the aggregate fields.
func (s *CartState) Recompute() {
	for i := range s.Items {
		s.Items[i].TotalPrice = s.Items[i].UnitPrice * float64(s.Items[i].Quantity)
	}
	s.ItemCount, s.Total = Totals(s.Items)
}

// IndexOf returns the position of the product in the cart, or -1.
func (s CartState) IndexOf(productID string) int {
	for i := range s.Items {
		if s.Items[i].Product.ID == productID {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy that shares no slice with s.
func (s CartState) Clone() CartState {
	out := s
	out.Items = make([]LineItem, len(s.Items))
	copy(out.Items, s.Items)
	return out
}

func (s CartState) Snapshot() Snapshot {
	items := make([]LineItem, len(s.Items))
	copy(items, s.Items)
	return Snapshot{Items: items, ItemCount: s.ItemCount, Total: s.Total}
}

// Validate checks the shape a snapshot must have before it may replace
// the cart: an items array, non-empty unique product ids, quantities >= 1
// and finite non-negative prices.
func (s *Snapshot) Validate() error {
	if s == nil || s.Items == nil {
		return fmt.Errorf("%w: missing items", ErrMalformedSnapshot)
	}
	seen := make(map[string]struct{}, len(s.Items))
	for i, item := range s.Items {
		if item.Product.ID == "" {
			return fmt.Errorf("%w: item %d has no product id", ErrMalformedSnapshot, i)
		}
		if _, dup := seen[item.Product.ID]; dup {
			return fmt.Errorf("%w: duplicate product %q", ErrMalformedSnapshot, item.Product.ID)
		}
		seen[item.Product.ID] = struct{}{}
		if item.Quantity < 1 {
			return fmt.Errorf("%w: product %q has quantity %d", ErrMalformedSnapshot, item.Product.ID, item.Quantity)
		}
		if math.IsNaN(item.UnitPrice) || math.IsInf(item.UnitPrice, 0) || item.UnitPrice < 0 {
			return fmt.Errorf("%w: product %q has invalid unit price", ErrMalformedSnapshot, item.Product.ID)
		}
	}
	return nil
}

// Normalize caps line quantities at MaxLineQuantity, recomputes the derived
// fields from the items and reports whether the stored values disagreed.
func (s *Snapshot) Normalize() bool {
	capped := false
	for i := range s.Items {
		if s.Items[i].Quantity > MaxLineQuantity {
			s.Items[i].Quantity = MaxLineQuantity
			capped = true
		}
	}

	state := CartState{Items: s.Items}
	state.Recompute()
	drifted := capped || state.ItemCount != s.ItemCount || !nearlyEqual(state.Total, s.Total)
	s.Items, s.ItemCount, s.Total = state.Items, state.ItemCount, state.Total
	return drifted
}

func nearlyEqual(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

// Wire shapes accepted when reading a snapshot. Besides the canonical
// encoding they accept a flat "id" on the item, the legacy web client's
// product "_id", a "price" in place of "unitPrice" and a vendor object.

type snapshotWire struct {
	Items     []lineItemWire `json:"items"`
	ItemCount float64        `json:"itemCount"`
	Total     float64        `json:"total"`
}

type lineItemWire struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Product   *productWire `json:"product"`
	Quantity  int          `json:"quantity"`
	UnitPrice *float64     `json:"unitPrice"`
	Price     *float64     `json:"price"`
}

type productWire struct {
	ID       string          `json:"id"`
	LegacyID string          `json:"_id"`
	Name     string          `json:"name"`
	Price    *float64        `json:"price"`
	Image    string          `json:"image"`
	Vendor   json.RawMessage `json:"vendor"`
}

// DecodeSnapshot parses a persisted snapshot. It does not validate; call
// Validate on the result.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var wire snapshotWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}

	snap := &Snapshot{
		ItemCount: int(wire.ItemCount),
		Total:     wire.Total,
	}
	if wire.Items == nil {
		return snap, nil
	}

	snap.Items = make([]LineItem, 0, len(wire.Items))
	for _, w := range wire.Items {
		item := LineItem{Quantity: w.Quantity}
		item.Product.ID = w.ID
		item.Product.Name = w.Name
		if w.Product != nil {
			if w.Product.ID != "" {
				item.Product.ID = w.Product.ID
			} else if w.Product.LegacyID != "" {
				item.Product.ID = w.Product.LegacyID
			}
			if w.Product.Name != "" {
				item.Product.Name = w.Product.Name
			}
			if w.Product.Price != nil {
				item.Product.Price = *w.Product.Price
			}
			item.Product.Image = w.Product.Image
			item.Product.Vendor = vendorRef(w.Product.Vendor)
		}

		switch {
		case w.UnitPrice != nil:
			item.UnitPrice = *w.UnitPrice
		case w.Price != nil:
			item.UnitPrice = *w.Price
		default:
			item.UnitPrice = item.Product.Price
		}
		if w.Product == nil || w.Product.Price == nil {
			item.Product.Price = item.UnitPrice
		}
		item.TotalPrice = item.UnitPrice * float64(item.Quantity)
		snap.Items = append(snap.Items, item)
	}
	return snap, nil
}

// vendorRef accepts either a vendor id string or an embedded vendor object.
func vendorRef(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		ID       string `json:"id"`
		LegacyID string `json:"_id"`
		Name     string `json:"name"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	switch {
	case obj.ID != "":
		return obj.ID
	case obj.LegacyID != "":
		return obj.LegacyID
	default:
		return obj.Name
	}
}
