package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ikkim/storefront-cart/internal/app/model"
	"github.com/ikkim/storefront-cart/internal/app/repository"
	"github.com/ikkim/storefront-cart/pkg/logger"
)

type UIService interface {
	State() model.UIState
	Restore(ctx context.Context)

	SetDarkMode(ctx context.Context, enabled bool) model.UIState
	ToggleDarkMode(ctx context.Context) model.UIState

	ToggleSidebar() model.UIState
	OpenSidebar() model.UIState
	CloseSidebar() model.UIState

	SetLoading(loading bool) model.UIState

	OpenModal(modalType string, data interface{}) model.UIState
	CloseModal() model.UIState

	AddNotification(n model.Notification) model.Notification
	RemoveNotification(id string) model.UIState
	ClearNotifications() model.UIState
}

type uiService struct {
	repo         repository.SnapshotRepository
	writeTimeout time.Duration

	mu    sync.Mutex
	state model.UIState
}

func NewUIService(repo repository.SnapshotRepository, writeTimeout time.Duration) UIService {
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &uiService{
		repo:         repo,
		writeTimeout: writeTimeout,
		state:        model.UIState{Notifications: []model.Notification{}},
	}
}

func (s *uiService) State() model.UIState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// snapshot copies the state; callers hold mu.
func (s *uiService) snapshot() model.UIState {
	out := s.state
	out.Notifications = make([]model.Notification, len(s.state.Notifications))
	copy(out.Notifications, s.state.Notifications)
	return out
}

// Restore seeds dark mode from storage.
func (s *uiService) Restore(ctx context.Context) {
	enabled, err := s.repo.LoadDarkMode(ctx)
	if err != nil {
		logger.Warn("Failed to load dark mode preference", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	s.mu.Lock()
	s.state.DarkMode = enabled
	s.mu.Unlock()
}

func (s *uiService) SetDarkMode(ctx context.Context, enabled bool) model.UIState {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.DarkMode = enabled
	s.saveDarkMode(ctx, enabled)
	return s.snapshot()
}

func (s *uiService) ToggleDarkMode(ctx context.Context) model.UIState {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.DarkMode = !s.state.DarkMode
	s.saveDarkMode(ctx, s.state.DarkMode)
	return s.snapshot()
}

func (s *uiService) saveDarkMode(ctx context.Context, enabled bool) {
	ctx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()

	if err := s.repo.SaveDarkMode(ctx, enabled); err != nil {
		logger.Error("Failed to persist dark mode", err, map[string]interface{}{
			"dark_mode": enabled,
		})
	}
}

func (s *uiService) ToggleSidebar() model.UIState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SidebarOpen = !s.state.SidebarOpen
	return s.snapshot()
}

func (s *uiService) OpenSidebar() model.UIState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SidebarOpen = true
	return s.snapshot()
}

func (s *uiService) CloseSidebar() model.UIState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SidebarOpen = false
	return s.snapshot()
}

// SetLoading 전역 로딩 표시. 저장하지 않음
func (s *uiService) SetLoading(loading bool) model.UIState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Loading = loading
	return s.snapshot()
}

func (s *uiService) OpenModal(modalType string, data interface{}) model.UIState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Modal = model.Modal{Open: true, Type: modalType, Data: data}
	return s.snapshot()
}

func (s *uiService) CloseModal() model.UIState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Modal = model.Modal{}
	return s.snapshot()
}

// AddNotification assigns an id and fills in the default type and duration.
func (s *uiService) AddNotification(n model.Notification) model.Notification {
	n.ID = uuid.NewString()
	if n.Type == "" {
		n.Type = model.NotificationTypeInfo
	}
	if n.Duration <= 0 {
		n.Duration = model.DefaultNotificationDuration
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Notifications = append(s.state.Notifications, n)
	return n
}

func (s *uiService) RemoveNotification(id string) model.UIState {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]model.Notification, 0, len(s.state.Notifications))
	for _, n := range s.state.Notifications {
		if n.ID != id {
			kept = append(kept, n)
		}
	}
	s.state.Notifications = kept
	return s.snapshot()
}

func (s *uiService) ClearNotifications() model.UIState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Notifications = []model.Notification{}
	return s.snapshot()
}
