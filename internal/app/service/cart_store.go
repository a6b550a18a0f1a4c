package service

import (
	"sync"

	"github.com/ikkim/storefront-cart/internal/app/model"
	"github.com/ikkim/storefront-cart/pkg/logger"
)

// Persister receives the full snapshot after every mutation that changed
// the cart, in mutation order.
type Persister interface {
	Persist(snapshot model.Snapshot)
}

// Listener is notified with the new state after a change. Listeners run
// on the mutating goroutine and must not dispatch back into the store.
type Listener func(state model.CartState)

type CartStore interface {
	GetState() model.CartState
	Dispatch(action Action) (model.CartState, bool)
	Subscribe(listener Listener) (unsubscribe func())

	AddItem(product model.Product, quantity int) model.CartState
	RemoveItem(productID string) model.CartState
	UpdateQuantity(productID string, quantity int) model.CartState
	Clear() model.CartState
	Hydrate(snapshot *model.Snapshot) bool
}

type subscription struct {
	id uint64
	fn Listener
}

type cartStore struct {
	// dispatchMu serialises mutations together with their persist and
	// notify steps. stateMu only guards reads and the final swap.
	dispatchMu sync.Mutex
	stateMu    sync.RWMutex
	state      model.CartState

	persister Persister

	subsMu sync.Mutex
	subs   []subscription
	nextID uint64
}

// NewCartStore creates an empty cart. persister may be nil.
func NewCartStore(persister Persister) CartStore {
	return &cartStore{
		state:     model.CartState{Items: []model.LineItem{}},
		persister: persister,
	}
}

func (s *cartStore) GetState() model.CartState {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state.Clone()
}

func (s *cartStore) Dispatch(action Action) (model.CartState, bool) {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	next := s.GetState()
	if !reduce(&next, action) {
		return next, false
	}
	next.Version++

	s.stateMu.Lock()
	s.state = next.Clone()
	s.stateMu.Unlock()

	logger.Debug("Cart state changed", map[string]interface{}{
		"action":     action.Type,
		"version":    next.Version,
		"item_count": next.ItemCount,
		"total":      next.Total,
	})

	if action.Type != ActionHydrate && s.persister != nil {
		s.persister.Persist(next.Snapshot())
	}
	s.notify(next)

	return next, true
}

func (s *cartStore) Subscribe(listener Listener) func() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscription{id: id, fn: listener})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subsMu.Lock()
			defer s.subsMu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *cartStore) notify(state model.CartState) {
	s.subsMu.Lock()
	subs := make([]subscription, len(s.subs))
	copy(subs, s.subs)
	s.subsMu.Unlock()

	for _, sub := range subs {
		sub.fn(state.Clone())
	}
}

func (s *cartStore) AddItem(product model.Product, quantity int) model.CartState {
	state, _ := s.Dispatch(AddItemAction(product, quantity))
	return state
}

func (s *cartStore) RemoveItem(productID string) model.CartState {
	state, _ := s.Dispatch(RemoveItemAction(productID))
	return state
}

func (s *cartStore) UpdateQuantity(productID string, quantity int) model.CartState {
	state, _ := s.Dispatch(UpdateQuantityAction(productID, quantity))
	return state
}

func (s *cartStore) Clear() model.CartState {
	state, _ := s.Dispatch(ClearAction())
	return state
}

// Hydrate replaces the cart with a validated snapshot. It reports false and
// leaves the cart untouched when the snapshot is malformed.
func (s *cartStore) Hydrate(snapshot *model.Snapshot) bool {
	_, ok := s.Dispatch(HydrateAction(snapshot))
	return ok
}
