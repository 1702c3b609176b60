package admin

import (
	"github.com/orderpulse/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetSyncStatus 获取对账引擎状态
func (h *Handler) GetSyncStatus(c *gin.Context) {
	status, err := h.SyncService.Status()
	if err != nil {
		respondError(c, response.CodeInternal, "获取对账状态失败", err)
		return
	}

	response.Success(c, status)
}

// UpdateSyncIntervalRequest 调整扫描间隔请求
type UpdateSyncIntervalRequest struct {
	Minutes int `json:"minutes" binding:"required"`
}

// UpdateSyncInterval 调整周期扫描间隔（下一个计时周期生效）
func (h *Handler) UpdateSyncInterval(c *gin.Context) {
	var req UpdateSyncIntervalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}

	if err := h.SyncService.SetInterval(req.Minutes); err != nil {
		respondError(c, response.CodeBadRequest, "扫描间隔必须为正整数", err)
		return
	}

	response.Success(c, gin.H{"interval_minutes": req.Minutes})
}

// EnableSync 启用周期对账
func (h *Handler) EnableSync(c *gin.Context) {
	h.SyncService.Enable()
	response.Success(c, nil)
}

// DisableSync 停用周期对账（手动触发不受影响）
func (h *Handler) DisableSync(c *gin.Context) {
	h.SyncService.Disable()
	response.Success(c, nil)
}

// RunSync 手动触发一次全量对账
func (h *Handler) RunSync(c *gin.Context) {
	report := h.SyncService.TriggerManualSync()
	response.Success(c, report)
}
