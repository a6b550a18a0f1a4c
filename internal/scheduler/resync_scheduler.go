package scheduler

import (
	"context"
	"time"

	"github.com/ikkim/storefront-cart/pkg/logger"
	"github.com/robfig/cron/v3"
)

const DefaultResyncSpec = "@every 30s"

// Resyncer retries a cart snapshot that failed to persist.
type Resyncer interface {
	Resync(ctx context.Context) error
	Pending() bool
}

// ResyncScheduler 저장 실패한 장바구니 스냅샷 재시도 스케줄러
type ResyncScheduler struct {
	cron    *cron.Cron
	spec    string
	bridge  Resyncer
	timeout time.Duration
}

// NewResyncScheduler 재시도 스케줄러 생성
func NewResyncScheduler(bridge Resyncer, spec string, timeout time.Duration) *ResyncScheduler {
	if spec == "" {
		spec = DefaultResyncSpec
	}
	return &ResyncScheduler{
		cron:    cron.New(),
		spec:    spec,
		bridge:  bridge,
		timeout: timeout,
	}
}

// Start 스케줄러 시작
func (s *ResyncScheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.RunOnce); err != nil {
		logger.Error("Failed to add cron job for cart resync", err, map[string]interface{}{
			"spec": s.spec,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Cart resync scheduler started", map[string]interface{}{
		"spec": s.spec,
	})
	return nil
}

// RunOnce 대기 중인 스냅샷이 있으면 한 번 재시도
func (s *ResyncScheduler) RunOnce() {
	if !s.bridge.Pending() {
		return
	}

	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	logger.Info("Retrying pending cart snapshot")
	if err := s.bridge.Resync(ctx); err != nil {
		logger.Warn("Scheduled cart resync failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// Stop 스케줄러 중지. 실행 중인 작업이 끝날 때까지 기다림
func (s *ResyncScheduler) Stop() {
	logger.Info("Stopping cart resync scheduler...")
	<-s.cron.Stop().Done()
	logger.Info("Cart resync scheduler stopped")
}
