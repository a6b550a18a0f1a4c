package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ikkim/storefront-cart/internal/app/model"
	"github.com/ikkim/storefront-cart/internal/app/repository"
	"github.com/ikkim/storefront-cart/pkg/logger"
)

const defaultWriteTimeout = 3 * time.Second

// CartBridge keeps the persisted "cart" snapshot in step with the store.
type CartBridge interface {
	Persister
	Restore(ctx context.Context, store CartStore) bool
	Resync(ctx context.Context) error
	Forget(ctx context.Context) error
	Pending() bool
}

type cartBridge struct {
	repo         repository.SnapshotRepository
	writeTimeout time.Duration

	// mu orders writes; pending is the newest snapshot that failed to write.
	mu      sync.Mutex
	pending *model.Snapshot
}

func NewCartBridge(repo repository.SnapshotRepository, writeTimeout time.Duration) CartBridge {
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &cartBridge{
		repo:         repo,
		writeTimeout: writeTimeout,
	}
}

// Restore hydrates store from the persisted snapshot. A missing, malformed
// or unreadable snapshot leaves the store empty.
func (b *cartBridge) Restore(ctx context.Context, store CartStore) bool {
	snap, err := b.repo.LoadCart(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrMalformedSnapshot) {
			logger.Error("Persisted cart snapshot is malformed, starting with an empty cart", err)
		} else {
			logger.Error("Failed to load cart snapshot, starting with an empty cart", err)
		}
		return false
	}
	if snap == nil {
		logger.Info("No persisted cart, starting with an empty cart")
		return false
	}

	if !store.Hydrate(snap) {
		return false
	}

	state := store.GetState()
	logger.Info("Cart restored from storage", map[string]interface{}{
		"items":      len(state.Items),
		"item_count": state.ItemCount,
		"total":      state.Total,
	})
	return true
}

// Persist writes the full snapshot, last write wins. A failed write is
// kept for Resync.
func (b *cartBridge) Persist(snapshot model.Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), b.writeTimeout)
	defer cancel()

	if err := b.repo.SaveCart(ctx, snapshot); err != nil {
		logger.Error("Failed to persist cart snapshot", err, map[string]interface{}{
			"item_count": snapshot.ItemCount,
		})
		b.pending = &snapshot
		return
	}
	b.pending = nil
}

// Resync retries the pending snapshot, if any.
func (b *cartBridge) Resync(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pending == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, b.writeTimeout)
	defer cancel()

	if err := b.repo.SaveCart(ctx, *b.pending); err != nil {
		logger.Warn("Cart snapshot resync failed", map[string]interface{}{
			"error": err.Error(),
		})
		return err
	}

	logger.Info("Pending cart snapshot written", map[string]interface{}{
		"item_count": b.pending.ItemCount,
	})
	b.pending = nil
	return nil
}

// Forget removes the persisted snapshot and drops any pending write.
func (b *cartBridge) Forget(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pending = nil

	ctx, cancel := context.WithTimeout(ctx, b.writeTimeout)
	defer cancel()

	if err := b.repo.DeleteCart(ctx); err != nil {
		logger.Error("Failed to remove persisted cart", err)
		return err
	}
	return nil
}

func (b *cartBridge) Pending() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending != nil
}
