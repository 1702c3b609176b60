package admin

import (
	"strconv"

	handlershared "github.com/orderpulse/internal/http/handlers/shared"
	"github.com/orderpulse/internal/http/response"
	"github.com/orderpulse/internal/service"

	"github.com/gin-gonic/gin"
)

func getAdminID(c *gin.Context) (uint, bool) {
	return handlershared.GetContextUint(c, "admin_id")
}

// getActor 从认证中间件写入的上下文组装操作者身份。
func getActor(c *gin.Context) (service.Actor, bool) {
	adminID, ok := getAdminID(c)
	if !ok {
		return service.Actor{}, false
	}
	department, _ := handlershared.GetContextString(c, "admin_department")
	return service.Actor{
		AdminID:    adminID,
		Department: department,
		IsSuper:    handlershared.GetContextBool(c, "is_super"),
	}, true
}

func parseIDParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "非法的 ID 参数", err)
		return 0, false
	}
	return uint(id), true
}
