package service

import (
	"context"
	"sync"
	"time"

	"github.com/ikkim/storefront-cart/internal/app/repository"
	"github.com/ikkim/storefront-cart/pkg/logger"
)

// OwnerService binds the single cart of this agent to one user. With a
// configured owner only that user is accepted; otherwise the first
// authenticated user claims the cart and keeps it until logout.
type OwnerService interface {
	Restore(ctx context.Context)
	Claim(ctx context.Context, userID uint) bool
	Release(ctx context.Context, userID uint)
	Owner() uint
	OnRelease(fn func(userID uint))
}

type ownerService struct {
	repo         repository.SnapshotRepository
	fixed        uint
	writeTimeout time.Duration

	mu        sync.Mutex
	owner     uint
	onRelease []func(userID uint)
}

func NewOwnerService(repo repository.SnapshotRepository, fixedOwner uint, writeTimeout time.Duration) OwnerService {
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &ownerService{
		repo:         repo,
		fixed:        fixedOwner,
		writeTimeout: writeTimeout,
		owner:        fixedOwner,
	}
}

// Restore loads the persisted owner so a restarted agent keeps serving
// the restored cart to the same user.
func (s *ownerService) Restore(ctx context.Context) {
	if s.fixed != 0 {
		return
	}

	owner, err := s.repo.LoadOwner(ctx)
	if err != nil {
		logger.Warn("Failed to load cart owner", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	s.mu.Lock()
	s.owner = owner
	s.mu.Unlock()
}

func (s *ownerService) Owner() uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner
}

// Claim reports whether userID owns the cart, claiming it when unowned.
func (s *ownerService) Claim(ctx context.Context, userID uint) bool {
	if userID == 0 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.owner != 0 {
		return s.owner == userID
	}

	s.owner = userID
	logger.Info("Cart owner claimed", map[string]interface{}{
		"user_id": userID,
	})

	ctx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()
	if err := s.repo.SaveOwner(ctx, userID); err != nil {
		logger.Error("Failed to persist cart owner", err, map[string]interface{}{
			"user_id": userID,
		})
	}
	return true
}

// Release gives up ownership after the owner logs out. A configured owner
// is never released.
func (s *ownerService) Release(ctx context.Context, userID uint) {
	s.mu.Lock()
	if userID == 0 || s.fixed != 0 || s.owner != userID {
		s.mu.Unlock()
		return
	}
	s.owner = 0
	listeners := make([]func(uint), len(s.onRelease))
	copy(listeners, s.onRelease)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()
	if err := s.repo.DeleteOwner(ctx); err != nil {
		logger.Error("Failed to remove cart owner", err)
	}

	logger.Info("Cart owner released", map[string]interface{}{
		"user_id": userID,
	})
	for _, fn := range listeners {
		fn(userID)
	}
}

func (s *ownerService) OnRelease(fn func(userID uint)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRelease = append(s.onRelease, fn)
}
