package service

import (
	"math"

	"github.com/ikkim/storefront-cart/internal/app/model"
	"github.com/ikkim/storefront-cart/pkg/logger"
)

type ActionType string

const (
	ActionAddItem        ActionType = "cart.add_item"
	ActionRemoveItem     ActionType = "cart.remove_item"
	ActionUpdateQuantity ActionType = "cart.update_quantity"
	ActionClear          ActionType = "cart.clear"
	ActionHydrate        ActionType = "cart.hydrate"
)

// Action is one cart mutation. Only the fields relevant to Type are read.
type Action struct {
	Type      ActionType      `json:"type"`
	Product   *model.Product  `json:"product,omitempty"`
	ProductID string          `json:"productId,omitempty"`
	Quantity  int             `json:"quantity,omitempty"`
	Snapshot  *model.Snapshot `json:"-"`
}

func AddItemAction(product model.Product, quantity int) Action {
	return Action{Type: ActionAddItem, Product: &product, Quantity: quantity}
}

func RemoveItemAction(productID string) Action {
	return Action{Type: ActionRemoveItem, ProductID: productID}
}

func UpdateQuantityAction(productID string, quantity int) Action {
	return Action{Type: ActionUpdateQuantity, ProductID: productID, Quantity: quantity}
}

func ClearAction() Action {
	return Action{Type: ActionClear}
}

func HydrateAction(snapshot *model.Snapshot) Action {
	return Action{Type: ActionHydrate, Snapshot: snapshot}
}

// reduce applies a to state and reports whether anything changed. The
// derived fields are recomputed before it returns.
func reduce(state *model.CartState, a Action) bool {
	var changed bool

	switch a.Type {
	case ActionAddItem:
		changed = addItem(state, a.Product, a.Quantity)
	case ActionRemoveItem:
		changed = removeItem(state, a.ProductID)
	case ActionUpdateQuantity:
		if a.Quantity <= 0 {
			changed = removeItem(state, a.ProductID)
			break
		}
		quantity := model.ClampQuantity(a.Quantity)
		idx := state.IndexOf(a.ProductID)
		if idx < 0 || state.Items[idx].Quantity == quantity {
			break
		}
		state.Items[idx].Quantity = quantity
		changed = true
	case ActionClear:
		changed = len(state.Items) > 0
		state.Items = []model.LineItem{}
	case ActionHydrate:
		changed = hydrate(state, a.Snapshot)
	default:
		logger.Warn("Ignoring unknown cart action", map[string]interface{}{
			"type": a.Type,
		})
	}

	if changed {
		state.Recompute()
	}
	return changed
}

func addItem(state *model.CartState, product *model.Product, quantity int) bool {
	if product == nil || product.ID == "" {
		logger.Warn("Ignoring add to cart without product id")
		return false
	}
	if math.IsNaN(product.Price) || math.IsInf(product.Price, 0) || product.Price < 0 {
		logger.Warn("Ignoring add to cart with invalid price", map[string]interface{}{
			"product_id": product.ID,
		})
		return false
	}
	quantity = model.ClampQuantity(quantity)

	if idx := state.IndexOf(product.ID); idx >= 0 {
		current := state.Items[idx].Quantity
		// 두 값 모두 MaxLineQuantity 이하라 덧셈이 넘치지 않음
		next := model.ClampQuantity(current + quantity)
		if next == current {
			return false
		}
		state.Items[idx].Quantity = next
		return true
	}

	state.Items = append(state.Items, model.LineItem{
		Product:   *product,
		Quantity:  quantity,
		UnitPrice: product.Price,
	})
	return true
}

func removeItem(state *model.CartState, productID string) bool {
	idx := state.IndexOf(productID)
	if idx < 0 {
		return false
	}
	items := make([]model.LineItem, 0, len(state.Items)-1)
	items = append(items, state.Items[:idx]...)
	items = append(items, state.Items[idx+1:]...)
	state.Items = items
	return true
}

func hydrate(state *model.CartState, snapshot *model.Snapshot) bool {
	if snapshot == nil {
		logger.Warn("Ignoring hydrate without snapshot")
		return false
	}

	snap := model.Snapshot{
		ItemCount: snapshot.ItemCount,
		Total:     snapshot.Total,
	}
	if snapshot.Items != nil {
		snap.Items = make([]model.LineItem, len(snapshot.Items))
		copy(snap.Items, snapshot.Items)
	}

	if err := snap.Validate(); err != nil {
		logger.Error("Ignoring malformed cart snapshot", err)
		return false
	}
	storedCount, storedTotal := snap.ItemCount, snap.Total
	if snap.Normalize() {
		logger.Warn("Cart snapshot totals disagree with items, recomputed", map[string]interface{}{
			"stored_item_count": storedCount,
			"stored_total":      storedTotal,
			"item_count":        snap.ItemCount,
			"total":             snap.Total,
		})
	}

	state.Items = snap.Items
	return true
}
