package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"campus-records/pkg/response"
)

// 认证中间件写入 Gin 上下文的键
const (
	CtxUserID   = "user_id"
	CtxRole     = "role"
	CtxTokenJTI = "token_jti"
	CtxTokenExp = "token_exp"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (uint, bool) {
	v, exists := c.Get(CtxUserID)
	if !exists {
		response.Unauthorized(c, response.CodeUnauthorized, "未认证")
		return 0, false
	}
	id, ok := v.(uint)
	if !ok || id == 0 {
		response.Unauthorized(c, response.CodeUnauthorized, "未认证")
		return 0, false
	}
	return id, true
}

// MustGetTokenInfo 提取当前 Token 的 jti 与过期时间（登出写黑名单用）
func MustGetTokenInfo(c *gin.Context) (string, time.Time, bool) {
	jti := c.GetString(CtxTokenJTI)
	exp, ok := c.Get(CtxTokenExp)
	expAt, isTime := exp.(time.Time)
	if jti == "" || !ok || !isTime {
		response.Unauthorized(c, response.CodeUnauthorized, "未认证")
		return "", time.Time{}, false
	}
	return jti, expAt, true
}

// parseIDParam 解析路径参数中的正整数 ID，失败时写入 400
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		response.BadRequest(c, response.CodeBadRequest, "ID 格式错误")
		return 0, false
	}
	return uint(id), true
}
