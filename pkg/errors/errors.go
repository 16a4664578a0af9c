package errors

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// pgUniqueViolation PostgreSQL 唯一约束冲突 SQLSTATE
const pgUniqueViolation = "23505"

// ErrAlreadyLinked 名册记录已绑定账号（条件更新未命中任何行）
var ErrAlreadyLinked = errors.New("名册记录已绑定账号")

// IsUniqueViolation 判断错误是否为唯一约束冲突
// 兼容 GORM TranslateError 翻译后的 ErrDuplicatedKey 与未翻译的 pgconn.PgError
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
