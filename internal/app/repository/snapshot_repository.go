package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ikkim/storefront-cart/internal/app/model"
	"github.com/ikkim/storefront-cart/internal/storage"
	"github.com/ikkim/storefront-cart/pkg/logger"
)

// Storage keys shared with the web client.
const (
	CartKey     = "cart"
	DarkModeKey = "darkMode"

	// OwnerKey holds the user id the persisted cart belongs to.
	OwnerKey = "cartOwner"
)

var ErrMalformedSnapshot = model.ErrMalformedSnapshot

type SnapshotRepository interface {
	LoadCart(ctx context.Context) (*model.Snapshot, error)
	SaveCart(ctx context.Context, snapshot model.Snapshot) error
	DeleteCart(ctx context.Context) error
	LoadDarkMode(ctx context.Context) (bool, error)
	SaveDarkMode(ctx context.Context, enabled bool) error
	LoadOwner(ctx context.Context) (uint, error)
	SaveOwner(ctx context.Context, userID uint) error
	DeleteOwner(ctx context.Context) error
}

type snapshotRepository struct {
	store storage.Storage
}

func NewSnapshotRepository(store storage.Storage) SnapshotRepository {
	return &snapshotRepository{store: store}
}

// LoadCart returns nil, nil when no snapshot has been written yet.
func (r *snapshotRepository) LoadCart(ctx context.Context) (*model.Snapshot, error) {
	raw, ok, err := r.store.GetItem(ctx, CartKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read cart snapshot: %w", err)
	}
	if !ok {
		logger.Debug("No cart snapshot in storage")
		return nil, nil
	}

	snap, err := model.DecodeSnapshot([]byte(raw))
	if err != nil {
		return nil, err
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return snap, nil
}

func (r *snapshotRepository) SaveCart(ctx context.Context, snapshot model.Snapshot) error {
	if snapshot.Items == nil {
		snapshot.Items = []model.LineItem{}
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode cart snapshot: %w", err)
	}

	logger.Debug("Writing cart snapshot", map[string]interface{}{
		"item_count": snapshot.ItemCount,
		"bytes":      len(raw),
	})

	if err := r.store.SetItem(ctx, CartKey, string(raw)); err != nil {
		return fmt.Errorf("failed to write cart snapshot: %w", err)
	}
	return nil
}

func (r *snapshotRepository) DeleteCart(ctx context.Context) error {
	if err := r.store.RemoveItem(ctx, CartKey); err != nil {
		return fmt.Errorf("failed to remove cart snapshot: %w", err)
	}
	return nil
}

func (r *snapshotRepository) LoadDarkMode(ctx context.Context) (bool, error) {
	raw, ok, err := r.store.GetItem(ctx, DarkModeKey)
	if err != nil {
		return false, fmt.Errorf("failed to read dark mode: %w", err)
	}
	return ok && raw == "true", nil
}

func (r *snapshotRepository) SaveDarkMode(ctx context.Context, enabled bool) error {
	if err := r.store.SetItem(ctx, DarkModeKey, strconv.FormatBool(enabled)); err != nil {
		return fmt.Errorf("failed to write dark mode: %w", err)
	}
	return nil
}

// LoadOwner returns 0 when no owner has been recorded.
func (r *snapshotRepository) LoadOwner(ctx context.Context) (uint, error) {
	raw, ok, err := r.store.GetItem(ctx, OwnerKey)
	if err != nil {
		return 0, fmt.Errorf("failed to read cart owner: %w", err)
	}
	if !ok {
		return 0, nil
	}

	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid cart owner %q: %w", raw, err)
	}
	return uint(id), nil
}

func (r *snapshotRepository) SaveOwner(ctx context.Context, userID uint) error {
	if err := r.store.SetItem(ctx, OwnerKey, strconv.FormatUint(uint64(userID), 10)); err != nil {
		return fmt.Errorf("failed to write cart owner: %w", err)
	}
	return nil
}

func (r *snapshotRepository) DeleteOwner(ctx context.Context) error {
	if err := r.store.RemoveItem(ctx, OwnerKey); err != nil {
		return fmt.Errorf("failed to remove cart owner: %w", err)
	}
	return nil
}
