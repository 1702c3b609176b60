package admin

import (
	"errors"
	"strings"

	"github.com/orderpulse/internal/http/response"
	"github.com/orderpulse/internal/service"

	"github.com/gin-gonic/gin"
)

// GetConsolidatedOrder 按订单编号获取合并快照
func (h *Handler) GetConsolidatedOrder(c *gin.Context) {
	orderNo := strings.TrimSpace(c.Param("order_no"))
	if orderNo == "" {
		respondError(c, response.CodeBadRequest, "订单编号不能为空", nil)
		return
	}

	snapshot, err := h.ConsolidationService.Get(orderNo)
	if err != nil {
		if errors.Is(err, service.ErrSnapshotNotFound) {
			respondError(c, response.CodeNotFound, "合并快照不存在", nil)
			return
		}
		respondError(c, response.CodeInternal, "获取合并快照失败", err)
		return
	}

	response.Success(c, snapshot)
}

// RebuildConsolidatedOrder 手动重建合并快照
func (h *Handler) RebuildConsolidatedOrder(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	projection, err := h.ManagementService.GetProjection(id)
	if err != nil {
		if errors.Is(err, service.ErrProjectionNotFound) {
			respondError(c, response.CodeNotFound, "管理投影不存在", nil)
			return
		}
		respondError(c, response.CodeInternal, "获取管理投影失败", err)
		return
	}

	snapshot, err := h.ConsolidationService.Build(projection.ID, projection.OrderID)
	if err != nil {
		if errors.Is(err, service.ErrMissingDependency) {
			respondError(c, response.CodeBadRequest, err.Error(), nil)
			return
		}
		respondError(c, response.CodeInternal, "重建合并快照失败", err)
		return
	}

	response.Success(c, snapshot)
}
