package admin

import (
	"errors"

	"github.com/orderpulse/internal/http/response"
	"github.com/orderpulse/internal/service"

	"github.com/gin-gonic/gin"
)

func respondDeliveryCodeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		respondError(c, response.CodeNotFound, "订单不存在", nil)
	case errors.Is(err, service.ErrCodeNotFound):
		respondError(c, response.CodeNotFound, "验证码不存在", nil)
	case errors.Is(err, service.ErrCodeAlreadyVerified):
		respondError(c, response.CodeBadRequest, "验证码已被使用", nil)
	case errors.Is(err, service.ErrCodeExpired):
		respondError(c, response.CodeBadRequest, "验证码已过期", nil)
	case errors.Is(err, service.ErrCodeMismatch):
		respondError(c, response.CodeBadRequest, "验证码不匹配", nil)
	default:
		respondError(c, response.CodeInternal, "交付验证码操作失败", err)
	}
}

// IssueDeliveryCode 为订单签发交付验证码
func (h *Handler) IssueDeliveryCode(c *gin.Context) {
	id, ok := parseIDParam(c, "order_id")
	if !ok {
		return
	}

	result, err := h.DeliveryCodeService.Issue(id)
	if err != nil {
		respondDeliveryCodeError(c, err)
		return
	}

	response.Success(c, result)
}

// ResendDeliveryCode 重发交付验证码（复用未核销的验证码记录）
func (h *Handler) ResendDeliveryCode(c *gin.Context) {
	id, ok := parseIDParam(c, "order_id")
	if !ok {
		return
	}

	result, err := h.DeliveryCodeService.Resend(id)
	if err != nil {
		respondDeliveryCodeError(c, err)
		return
	}

	response.Success(c, result)
}

// VerifyDeliveryCodeRequest 核销请求
type VerifyDeliveryCodeRequest struct {
	Code     string `json:"code" binding:"required"`
	Location string `json:"location"`
}

// VerifyDeliveryCode 核销交付验证码
func (h *Handler) VerifyDeliveryCode(c *gin.Context) {
	id, ok := parseIDParam(c, "order_id")
	if !ok {
		return
	}
	actor, ok := getActor(c)
	if !ok {
		return
	}

	var req VerifyDeliveryCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}

	verified, err := h.DeliveryCodeService.Verify(id, req.Code, actor.AdminID, req.Location)
	if err != nil {
		respondDeliveryCodeError(c, err)
		return
	}

	response.Success(c, gin.H{"verified": verified})
}
