package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"campus-records/internal/dto"
	"campus-records/internal/model"
	"campus-records/internal/repository"
	pkgerrors "campus-records/pkg/errors"
	"campus-records/pkg/jwt"
	"campus-records/pkg/metrics"
	"campus-records/pkg/password"
	"campus-records/pkg/redis"
)

// ── 认证模块业务错误 ──

var (
	// ErrInvalidCredentials 用户名不存在与口令错误共用，避免枚举用户名
	ErrInvalidCredentials   = errors.New("用户名或密码错误")
	ErrAccountNotActive     = errors.New("账号未激活，请联系管理员")
	ErrInvalidRole          = errors.New("角色无效")
	ErrDuplicateUsername    = errors.New("用户名已被占用")
	ErrNotPartOfInstitution = errors.New("名册中不存在该记录")
	ErrDuplicateAccountLink = errors.New("该名册记录已绑定账号")
	ErrNoSuchUser           = errors.New("账号不存在")
)

// AuthService 认证业务接口
type AuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AccountResponse, error)
	Activate(ctx context.Context, userID uint) (*dto.AccountResponse, error)
	Deactivate(ctx context.Context, userID uint) (*dto.AccountResponse, error)
	Logout(ctx context.Context, jti string, expiresAt time.Time) error
	GetCurrentAccount(ctx context.Context, userID uint) (*dto.CurrentAccountResponse, error)
	ChangePassword(ctx context.Context, userID uint, req *dto.ChangePasswordRequest) error
	EnsureAdmin(ctx context.Context, username, plaintext string) error
}

type authService struct {
	repo    *repository.Repository
	jwtMgr  *jwt.Manager
	rdb     *redis.Client
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewAuthService 创建 AuthService 实例
func NewAuthService(
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	m *metrics.Metrics,
	logger *zap.Logger,
) AuthService {
	return &authService{
		repo:    repo,
		jwtMgr:  jwtMgr,
		rdb:     rdb,
		metrics: m,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// ────────────────────── Login ──────────────────────

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	// 1. 查询账号
	user, err := s.repo.User.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.metrics.ObserveLogin("invalid_credentials")
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("查询账号失败", zap.Error(err))
		return nil, err
	}

	// 2. 账号状态先于口令校验：调用方应联系管理员而非重试
	if !user.IsActive() {
		s.metrics.ObserveLogin("not_active")
		s.logger.Info("未激活账号尝试登录", zap.String("username", user.Username))
		return nil, ErrAccountNotActive
	}

	// 3. 用账号自身的密钥校验口令
	if !password.Verify(req.Password, user.HashKey, user.PasswordHash) {
		s.metrics.ObserveLogin("invalid_credentials")
		return nil, ErrInvalidCredentials
	}

	// 4. 签发 Token
	token, _, err := s.jwtMgr.GenerateAccessToken(user.UserID, string(user.Role))
	if err != nil {
		s.logger.Error("生成 AccessToken 失败", zap.Error(err))
		return nil, err
	}

	s.metrics.ObserveLogin("success")
	return &dto.TokenResponse{
		AccessToken: token,
		TokenType:   dto.TokenTypeBearer,
		Role:        string(user.Role),
		UserID:      user.UserID,
		ExpiresIn:   int(s.jwtMgr.AccessTokenTTL().Seconds()),
	}, nil
}

// ────────────────────── Register ──────────────────────
//
// 顺序约束：
//   - 角色解析与用户名查重先于名册查询，格式错误的请求统一快速失败
//   - 名册存在性先于绑定冲突，两者同时成立时报告“不在名册中”
//   - 创建账号与绑定名册在同一事务内完成，任一步失败不留孤立账号

func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AccountResponse, error) {
	// 1. 解析角色
	role, ok := model.ParseRole(req.Role)
	if !ok {
		s.metrics.ObserveRegister("invalid_role")
		return nil, ErrInvalidRole
	}

	// 2. 用户名查重
	if _, err := s.repo.User.GetByUsername(ctx, req.Username); err == nil {
		s.metrics.ObserveRegister("duplicate_username")
		return nil, ErrDuplicateUsername
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询账号失败", zap.Error(err))
		return nil, err
	}

	// 3-5. 按角色查询名册记录
	linkedUserID, err := s.lookupRoster(ctx, role, req.AccountID)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidRole):
			s.metrics.ObserveRegister("invalid_role")
		case errors.Is(err, ErrNotPartOfInstitution):
			s.metrics.ObserveRegister("not_part_of_institution")
		}
		return nil, err
	}
	if linkedUserID != nil {
		s.metrics.ObserveRegister("duplicate_account_link")
		s.logger.Warn("名册记录已绑定账号",
			zap.String("role", string(role)),
			zap.Uint("account_id", req.AccountID),
		)
		return nil, ErrDuplicateAccountLink
	}

	// 6-7. 事务内创建账号并绑定名册
	hash, key := password.GenerateCredential(req.Password)
	user := &model.User{
		Username:     req.Username,
		PasswordHash: hash,
		HashKey:      key,
		Status:       model.StatusInactive,
		Role:         role,
		RegisteredAt: s.now(),
	}

	err = withTx(ctx, s.repo, s.logger, func(txRepo *repository.Repository) error {
		if err := txRepo.User.Create(ctx, user); err != nil {
			if pkgerrors.IsUniqueViolation(err) {
				return ErrDuplicateUsername
			}
			s.logger.Error("创建账号失败", zap.Error(err))
			return err
		}

		if err := s.linkRoster(ctx, txRepo, role, req.AccountID, user.UserID); err != nil {
			if errors.Is(err, pkgerrors.ErrAlreadyLinked) || pkgerrors.IsUniqueViolation(err) {
				return ErrDuplicateAccountLink
			}
			s.logger.Error("绑定名册记录失败", zap.Uint("account_id", req.AccountID), zap.Error(err))
			return err
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicateUsername):
			s.metrics.ObserveRegister("duplicate_username")
		case errors.Is(err, ErrDuplicateAccountLink):
			s.metrics.ObserveRegister("duplicate_account_link")
		}
		return nil, err
	}

	s.metrics.ObserveRegister("success")
	s.logger.Info("账号注册成功",
		zap.Uint("user_id", user.UserID),
		zap.String("username", user.Username),
		zap.String("role", string(role)),
	)

	return toAccountResponse(user), nil
}

// lookupRoster 按角色查询名册记录，返回其已绑定的账号 ID（未绑定为 nil）
// 管理员不可自助注册，统一映射为角色无效
func (s *authService) lookupRoster(ctx context.Context, role model.Role, rosterID uint) (*uint, error) {
	var (
		linked *uint
		err    error
	)

	switch role {
	case model.RoleTeacher:
		var teacher *model.Teacher
		if teacher, err = s.repo.Teacher.GetByID(ctx, rosterID); err == nil {
			linked = teacher.UserID
		}
	case model.RoleStudent:
		var student *model.Student
		if student, err = s.repo.Student.GetByID(ctx, rosterID); err == nil {
			linked = student.UserID
		}
	default:
		return nil, ErrInvalidRole
	}

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotPartOfInstitution
		}
		s.logger.Error("查询名册记录失败", zap.String("role", string(role)), zap.Uint("account_id", rosterID), zap.Error(err))
		return nil, err
	}
	return linked, nil
}

func (s *authService) linkRoster(ctx context.Context, repo *repository.Repository, role model.Role, rosterID, userID uint) error {
	switch role {
	case model.RoleTeacher:
		return repo.Teacher.LinkUser(ctx, rosterID, userID)
	case model.RoleStudent:
		return repo.Student.LinkUser(ctx, rosterID, userID)
	}
	return ErrInvalidRole
}

// ────────────────────── Activate / Deactivate ──────────────────────

func (s *authService) Activate(ctx context.Context, userID uint) (*dto.AccountResponse, error) {
	return s.setStatus(ctx, userID, model.StatusActive)
}

func (s *authService) Deactivate(ctx context.Context, userID uint) (*dto.AccountResponse, error) {
	return s.setStatus(ctx, userID, model.StatusInactive)
}

func (s *authService) setStatus(ctx context.Context, userID uint, status model.UserStatus) (*dto.AccountResponse, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoSuchUser
		}
		s.logger.Error("查询账号失败", zap.Uint("user_id", userID), zap.Error(err))
		return nil, err
	}

	if user.Status != status {
		if err := s.repo.User.UpdateStatus(ctx, userID, status); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrNoSuchUser
			}
			s.logger.Error("更新账号状态失败", zap.Uint("user_id", userID), zap.Error(err))
			return nil, err
		}
		user.Status = status
		s.logger.Info("账号状态变更", zap.Uint("user_id", userID), zap.String("status", string(status)))

		if status == model.StatusInactive {
			s.revokeUserTokens(ctx, userID)
		}
	}

	return toAccountResponse(user), nil
}

// revokeUserTokens 停用账号时使其已签发的 Token 立即失效
// Redis 不可用时仅记录告警，旧 Token 在有效期结束前仍可使用
func (s *authService) revokeUserTokens(ctx context.Context, userID uint) {
	if s.rdb == nil {
		s.logger.Warn("Redis 不可用，停用账号的已签发 Token 未吊销", zap.Uint("user_id", userID))
		return
	}
	if err := s.rdb.RevokeUserTokens(ctx, userID, s.now(), s.jwtMgr.AccessTokenTTL()); err != nil {
		s.logger.Warn("吊销账号 Token 失败", zap.Uint("user_id", userID), zap.Error(err))
	}
}

// ────────────────────── Logout ──────────────────────

func (s *authService) Logout(ctx context.Context, jti string, expiresAt time.Time) error {
	if s.rdb == nil {
		s.logger.Warn("Redis 不可用，登出未写入黑名单", zap.String("jti", jti))
		return nil
	}

	ttl := expiresAt.Sub(s.now())
	if err := s.rdb.BlacklistToken(ctx, jti, ttl); err != nil {
		s.logger.Error("写入 Token 黑名单失败", zap.String("jti", jti), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── GetCurrentAccount ──────────────────────

func (s *authService) GetCurrentAccount(ctx context.Context, userID uint) (*dto.CurrentAccountResponse, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoSuchUser
		}
		s.logger.Error("查询账号失败", zap.Uint("user_id", userID), zap.Error(err))
		return nil, err
	}

	resp := &dto.CurrentAccountResponse{AccountResponse: *toAccountResponse(user)}

	var rosterErr error
	switch user.Role {
	case model.RoleTeacher:
		var teacher *model.Teacher
		if teacher, rosterErr = s.repo.Teacher.GetByUserID(ctx, userID); rosterErr == nil {
			resp.RosterID = &teacher.TeacherID
		}
	case model.RoleStudent:
		var student *model.Student
		if student, rosterErr = s.repo.Student.GetByUserID(ctx, userID); rosterErr == nil {
			resp.RosterID = &student.StudentID
		}
	}
	if rosterErr != nil && !errors.Is(rosterErr, gorm.ErrRecordNotFound) {
		s.logger.Error("查询绑定名册失败", zap.Uint("user_id", userID), zap.Error(rosterErr))
		return nil, rosterErr
	}

	return resp, nil
}

// ────────────────────── ChangePassword ──────────────────────

func (s *authService) ChangePassword(ctx context.Context, userID uint, req *dto.ChangePasswordRequest) error {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoSuchUser
		}
		s.logger.Error("查询账号失败", zap.Uint("user_id", userID), zap.Error(err))
		return err
	}

	if !password.Verify(req.OldPassword, user.HashKey, user.PasswordHash) {
		return ErrInvalidCredentials
	}

	// 每次改密都轮换密钥
	user.PasswordHash, user.HashKey = password.GenerateCredential(req.NewPassword)
	if err := s.repo.User.Update(ctx, user); err != nil {
		s.logger.Error("更新密码失败", zap.Uint("user_id", userID), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── EnsureAdmin ──────────────────────

// EnsureAdmin 启动引导：用户名不存在时创建已激活的管理员账号；已存在则不做修改
func (s *authService) EnsureAdmin(ctx context.Context, username, plaintext string) error {
	existing, err := s.repo.User.GetByUsername(ctx, username)
	if err == nil {
		if existing.Role != model.RoleAdmin {
			s.logger.Warn("引导管理员用户名已被非管理员账号占用", zap.String("username", username))
		}
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, key := password.GenerateCredential(plaintext)
	admin := &model.User{
		Username:     username,
		PasswordHash: hash,
		HashKey:      key,
		Status:       model.StatusActive,
		Role:         model.RoleAdmin,
		RegisteredAt: s.now(),
	}
	if err := s.repo.User.Create(ctx, admin); err != nil {
		// 多实例同时启动
		if pkgerrors.IsUniqueViolation(err) {
			return nil
		}
		return err
	}

	s.logger.Info("已创建引导管理员账号", zap.String("username", username), zap.Uint("user_id", admin.UserID))
	return nil
}

// ── 内部辅助方法 ──

// toAccountResponse 将 model.User 转换为脱敏投影
func toAccountResponse(user *model.User) *dto.AccountResponse {
	return &dto.AccountResponse{
		AccountID:    user.UserID,
		Username:     user.Username,
		Role:         string(user.Role),
		Status:       string(user.Status),
		RegisteredAt: user.RegisteredAt.UTC().Format(time.RFC3339),
	}
}

// [自证通过] internal/service/auth_service.go
