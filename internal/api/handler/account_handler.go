package handler

import (
	"github.com/gin-gonic/gin"

	"campus-records/internal/dto"
	"campus-records/internal/service"
	"campus-records/pkg/response"
)

// AccountHandler 账号管理 HTTP 处理器（管理员）
// 状态变更走 AuthService，查询与导出走 AccountService
type AccountHandler struct {
	authSvc    service.AuthService
	accountSvc service.AccountService
}

// NewAccountHandler 创建 AccountHandler
func NewAccountHandler(authSvc service.AuthService, accountSvc service.AccountService) *AccountHandler {
	return &AccountHandler{authSvc: authSvc, accountSvc: accountSvc}
}

// List 账号列表
// GET /api/v1/accounts
func (h *AccountHandler) List(c *gin.Context) {
	var req dto.AccountListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, response.CodeBadRequest, "参数校验失败")
		return
	}

	accounts, total, err := h.accountSvc.List(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OKPage(c, accounts, total, req.GetPage(), req.GetPageSize())
}

// Get 账号详情
// GET /api/v1/accounts/:id
func (h *AccountHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	acc, err := h.accountSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		handleAuthError(c, err)
		return
	}
	response.OK(c, acc)
}

// Activate 激活账号
// PUT /api/v1/accounts/:id/activate
func (h *AccountHandler) Activate(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	acc, err := h.authSvc.Activate(c.Request.Context(), id)
	if err != nil {
		handleAuthError(c, err)
		return
	}
	response.OK(c, acc)
}

// Deactivate 停用账号
// PUT /api/v1/accounts/:id/deactivate
func (h *AccountHandler) Deactivate(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	acc, err := h.authSvc.Deactivate(c.Request.Context(), id)
	if err != nil {
		handleAuthError(c, err)
		return
	}
	response.OK(c, acc)
}
