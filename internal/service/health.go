package service

import (
	"context"
	"sync/atomic"
	"time"
)

// Pinger readiness 檢查的依賴（MongoDB）
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthService struct {
	live   atomic.Bool
	ready  atomic.Bool
	pinger Pinger
}

func NewHealthService(pinger Pinger) *HealthService {
	s := &HealthService{pinger: pinger}
	s.live.Store(true)
	s.ready.Store(false) // 啟動完成後再打開
	return s
}

func (s *HealthService) SetReady(v bool) {
	s.ready.Store(v)
}

func (s *HealthService) IsLive() bool {
	return s.live.Load()
}

// IsReady 啟動完成且資料庫可連線
func (s *HealthService) IsReady(ctx context.Context) bool {
	if !s.ready.Load() {
		return false
	}
	if s.pinger == nil {
		return true
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pinger.Ping(ctx) == nil
}
