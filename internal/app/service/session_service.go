package service

import (
	"context"

	"github.com/ikkim/storefront-cart/pkg/logger"
)

type SessionService interface {
	Logout(ctx context.Context, userID uint) error
}

type sessionService struct {
	store  CartStore
	bridge CartBridge
	owners OwnerService
}

func NewSessionService(store CartStore, bridge CartBridge, owners OwnerService) SessionService {
	return &sessionService{store: store, bridge: bridge, owners: owners}
}

// Logout empties the cart, removes its persisted snapshot and releases the
// cart so another user may claim it. UI preferences are kept.
func (s *sessionService) Logout(ctx context.Context, userID uint) error {
	logger.Info("Logging out, clearing cart", map[string]interface{}{
		"user_id": userID,
	})

	s.store.Clear()
	if err := s.bridge.Forget(ctx); err != nil {
		return err
	}
	s.owners.Release(ctx, userID)
	return nil
}
