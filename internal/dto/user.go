package dto

// ── 账号管理 DTO ──

// AccountListRequest 账号列表查询参数
type AccountListRequest struct {
	PaginationRequest
	Role    string `form:"role"    binding:"omitempty,oneof=admin teacher student"`
	Status  string `form:"status"  binding:"omitempty,oneof=active inactive"`
	Keyword string `form:"keyword" binding:"omitempty,max=50"`
}
