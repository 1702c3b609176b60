package admin

import (
	"errors"
	"strconv"
	"time"

	"github.com/orderpulse/internal/constants"
	"github.com/orderpulse/internal/http/response"
	"github.com/orderpulse/internal/service"

	"github.com/gin-gonic/gin"
)

// effectiveDepartment 计算列表查询使用的部门视角。
// 超级管理员默认走全局视角，也可以通过 department 参数模拟某个部门。
func effectiveDepartment(actor service.Actor, override string) string {
	if actor.IsSuper {
		if override != "" {
			return override
		}
		return constants.DepartmentSystem
	}
	return actor.Department
}

// ListManagementOrders 按部门可见窗口列出管理投影
func (h *Handler) ListManagementOrders(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)
	stateFilter := c.Query("state")
	department := effectiveDepartment(actor, c.Query("department"))

	projections, total, err := h.ManagementService.ListOrders(department, stateFilter, page, pageSize)
	if err != nil {
		respondError(c, response.CodeInternal, "获取管理订单失败", err)
		return
	}

	pagination := response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
	response.SuccessWithPage(c, projections, pagination)
}

// GetManagementOrder 获取管理投影详情
func (h *Handler) GetManagementOrder(c *gin.Context) {
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

	response.Success(c, projection)
}

// GetStatusHistory 获取状态流转历史
func (h *Handler) GetStatusHistory(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	history, err := h.ManagementService.StatusHistory(id)
	if err != nil {
		respondError(c, response.CodeInternal, "获取流转历史失败", err)
		return
	}

	response.Success(c, history)
}

// GetDepartmentStates 获取部门可操作的状态集合
func (h *Handler) GetDepartmentStates(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	department := effectiveDepartment(actor, c.Query("department"))
	response.Success(c, gin.H{
		"department": department,
		"states":     service.DepartmentVisibleStates(department),
	})
}

func respondTransitionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrProjectionNotFound):
		respondError(c, response.CodeNotFound, "管理投影不存在", nil)
	case errors.Is(err, service.ErrUnknownState):
		respondError(c, response.CodeBadRequest, "未知的管理状态", nil)
	case errors.Is(err, service.ErrRegressionRejected):
		respondError(c, response.CodeBadRequest, err.Error(), nil)
	case errors.Is(err, service.ErrUnauthorizedDepartment):
		respondError(c, response.CodeForbidden, err.Error(), nil)
	default:
		respondError(c, response.CodeInternal, "状态流转失败", err)
	}
}

// FinancialDecisionRequest 财务动作请求
type FinancialDecisionRequest struct {
	TargetState string `json:"target_state" binding:"required"`
	Notes       string `json:"notes"`
}

// ApplyFinancialDecision 财务审核动作
func (h *Handler) ApplyFinancialDecision(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := getActor(c)
	if !ok {
		return
	}

	var req FinancialDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}

	projection, err := h.ManagementService.ApplyFinancialDecision(id, actor, service.FinancialDecision{
		ReviewerID:  actor.AdminID,
		TargetState: req.TargetState,
		Notes:       req.Notes,
	})
	if err != nil {
		respondTransitionError(c, err)
		return
	}

	response.Success(c, projection)
}

// WarehouseDecisionRequest 仓库动作请求
type WarehouseDecisionRequest struct {
	TargetState string `json:"target_state" binding:"required"`
	Notes       string `json:"notes"`
}

// ApplyWarehouseDecision 仓库处理动作
func (h *Handler) ApplyWarehouseDecision(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := getActor(c)
	if !ok {
		return
	}

	var req WarehouseDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}

	projection, err := h.ManagementService.ApplyWarehouseDecision(id, actor, service.WarehouseDecision{
		AssigneeID:  actor.AdminID,
		TargetState: req.TargetState,
		Notes:       req.Notes,
	})
	if err != nil {
		respondTransitionError(c, err)
		return
	}

	response.Success(c, projection)
}

// LogisticsDecisionRequest 物流动作请求
type LogisticsDecisionRequest struct {
	TargetState         string     `json:"target_state" binding:"required"`
	TrackingReference   string     `json:"tracking_reference"`
	EstimatedDeliveryAt *time.Time `json:"estimated_delivery_at"`
	Notes               string     `json:"notes"`
}

// ApplyLogisticsDecision 物流处理动作
func (h *Handler) ApplyLogisticsDecision(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := getActor(c)
	if !ok {
		return
	}

	var req LogisticsDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}

	projection, err := h.ManagementService.ApplyLogisticsDecision(id, actor, service.LogisticsDecision{
		AssigneeID:          actor.AdminID,
		TargetState:         req.TargetState,
		TrackingReference:   req.TrackingReference,
		EstimatedDeliveryAt: req.EstimatedDeliveryAt,
		Notes:               req.Notes,
	})
	if err != nil {
		respondTransitionError(c, err)
		return
	}

	response.Success(c, projection)
}

// TransitionRequest 通用状态流转请求（超级管理员）
type TransitionRequest struct {
	TargetState string `json:"target_state" binding:"required"`
	Notes       string `json:"notes"`
}

// ApplyTransition 通用状态流转
func (h *Handler) ApplyTransition(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := getActor(c)
	if !ok {
		return
	}

	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}

	projection, err := h.ManagementService.Transition(id, req.TargetState, actor, req.Notes, nil)
	if err != nil {
		respondTransitionError(c, err)
		return
	}

	response.Success(c, projection)
}

// ManualApprovalRequest 人工放行标记请求
type ManualApprovalRequest struct {
	Notes string `json:"notes"`
}

// MarkManualApproval 标记部分付款订单的人工财务放行
func (h *Handler) MarkManualApproval(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := getActor(c)
	if !ok {
		return
	}
	if !actor.IsSuper && actor.Department != constants.DepartmentFinancial {
		respondError(c, response.CodeForbidden, "仅财务部门可执行人工放行", nil)
		return
	}

	var req ManualApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}

	if err := h.ManagementService.MarkManualFinancialApproval(id, actor, req.Notes); err != nil {
		if errors.Is(err, service.ErrProjectionNotFound) {
			respondError(c, response.CodeNotFound, "管理投影不存在", nil)
			return
		}
		if errors.Is(err, service.ErrOrderNotFound) {
			respondError(c, response.CodeNotFound, "订单不存在", nil)
			return
		}
		respondError(c, response.CodeInternal, "人工放行标记失败", err)
		return
	}

	response.Success(c, nil)
}
