package app

import (
	"context"
	"errors"

	"github.com/orderpulse/internal/service"
)

// SyncRunnerService 对账引擎独立服务。
// 队列停用时 worker 不会启动，周期对账由本服务兜底。
type SyncRunnerService struct {
	name string
	sync *service.SyncService
}

// NewSyncRunnerService 创建对账引擎服务
func NewSyncRunnerService(sync *service.SyncService) *SyncRunnerService {
	return &SyncRunnerService{
		name: "sync",
		sync: sync,
	}
}

// Name 服务名称
func (s *SyncRunnerService) Name() string {
	if s == nil || s.name == "" {
		return "sync"
	}
	return s.name
}

// Start 启动服务
func (s *SyncRunnerService) Start(ctx context.Context) error {
	if s == nil || s.sync == nil {
		return errors.New("sync service not initialized")
	}
	s.sync.Run(ctx)
	return nil
}

// Stop 停止服务
func (s *SyncRunnerService) Stop(ctx context.Context) error {
	_ = ctx
	return nil
}
