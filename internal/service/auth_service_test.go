package service

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"campus-records/config"
	"campus-records/internal/dto"
	"campus-records/internal/model"
	"campus-records/pkg/jwt"
	"campus-records/pkg/metrics"
	"campus-records/pkg/password"
	"campus-records/pkg/redis"
)

// ── 测试辅助 ──

var fixedNow = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func testAuthConfig() *config.AuthConfig {
	return &config.AuthConfig{
		JWTSecret:      "test-secret-key-for-unit-testing-2026",
		Issuer:         "campus-records-test",
		AccessTokenTTL: 15 * time.Minute,
	}
}

func setupTestAuthService() (*authService, *mockRepos, *jwt.Manager) {
	repo, mocks := newMockRepository()
	jwtMgr := jwt.NewManager(testAuthConfig())

	svc := NewAuthService(repo, jwtMgr, nil, nil, zap.NewNop()).(*authService)
	svc.now = func() time.Time { return fixedNow }
	return svc, mocks, jwtMgr
}

func createTestUser(mocks *mockRepos, username, plaintext string, role model.Role, status model.UserStatus) *model.User {
	hash, key := password.GenerateCredential(plaintext)
	user := &model.User{
		Username:     username,
		PasswordHash: hash,
		HashKey:      key,
		Role:         role,
		Status:       status,
		RegisteredAt: fixedNow,
	}
	_ = mocks.user.Create(context.Background(), user)
	return user
}

func addTeacher(mocks *mockRepos, id uint) *model.Teacher {
	t := &model.Teacher{TeacherID: id, Name: "测试教师"}
	_ = mocks.teacher.Create(context.Background(), t)
	return t
}

func addStudent(mocks *mockRepos, id uint, number string) *model.Student {
	s := &model.Student{StudentID: id, Name: "测试学生", StudentNumber: number}
	_ = mocks.student.Create(context.Background(), s)
	return s
}

// ── 登录测试 ──

func TestLogin_Success(t *testing.T) {
	svc, mocks, jwtMgr := setupTestAuthService()
	user := createTestUser(mocks, "admin", "correct-horse", model.RoleAdmin, model.StatusActive)

	result, err := svc.Login(context.Background(), &dto.LoginRequest{
		Username: "admin",
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("Login 应成功，但返回错误: %v", err)
	}
	if result.TokenType != dto.TokenTypeBearer {
		t.Errorf("期望 TokenType=Bearer，实际=%s", result.TokenType)
	}
	if result.Role != "admin" {
		t.Errorf("期望 Role=admin，实际=%s", result.Role)
	}
	if result.ExpiresIn != 900 {
		t.Errorf("期望 ExpiresIn=900，实际=%d", result.ExpiresIn)
	}

	claims, err := jwtMgr.ParseToken(result.AccessToken)
	if err != nil {
		t.Fatalf("签发的 Token 应可验证: %v", err)
	}
	if claims.UserID != user.UserID {
		t.Errorf("期望 UserID=%d，实际=%d", user.UserID, claims.UserID)
	}
	if claims.Role != string(user.Role) {
		t.Errorf("Token 中角色应与账号一致，期望=%s，实际=%s", user.Role, claims.Role)
	}
}

func TestLogin_RepeatedLoginsIssueIndependentTokens(t *testing.T) {
	svc, mocks, jwtMgr := setupTestAuthService()
	user := createTestUser(mocks, "teacher1", "pw", model.RoleTeacher, model.StatusActive)

	seen := make(map[string]bool)
	for i := 0; i < 3; i++ {
		result, err := svc.Login(context.Background(), &dto.LoginRequest{Username: "teacher1", Password: "pw"})
		if err != nil {
			t.Fatalf("第 %d 次登录失败: %v", i+1, err)
		}
		claims, err := jwtMgr.ParseToken(result.AccessToken)
		if err != nil {
			t.Fatalf("第 %d 次签发的 Token 验证失败: %v", i+1, err)
		}
		if claims.UserID != user.UserID || claims.Role != "teacher" {
			t.Errorf("第 %d 次 Token 主体不一致: uid=%d role=%s", i+1, claims.UserID, claims.Role)
		}
		if seen[claims.ID] {
			t.Errorf("第 %d 次 Token jti 重复: %s", i+1, claims.ID)
		}
		seen[claims.ID] = true
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, mocks, _ := setupTestAuthService()
	createTestUser(mocks, "admin", "correct-horse", model.RoleAdmin, model.StatusActive)

	_, err := svc.Login(context.Background(), &dto.LoginRequest{Username: "admin", Password: "wrong"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("期望 ErrInvalidCredentials，实际: %v", err)
	}
}

func TestLogin_UserNotFound(t *testing.T) {
	svc, _, _ := setupTestAuthService()

	for _, username := range []string{"ghost", "ab", ""} {
		_, err := svc.Login(context.Background(), &dto.LoginRequest{Username: username, Password: "anything"})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("%q: 期望 ErrInvalidCredentials，实际: %v", username, err)
		}
	}
}

func TestLogin_InactiveAccount(t *testing.T) {
	svc, mocks, _ := setupTestAuthService()
	createTestUser(mocks, "admin", "correct-horse", model.RoleAdmin, model.StatusInactive)

	_, err := svc.Login(context.Background(), &dto.LoginRequest{Username: "admin", Password: "correct-horse"})
	if !errors.Is(err, ErrAccountNotActive) {
		t.Errorf("期望 ErrAccountNotActive，实际: %v", err)
	}
}

func TestLogin_InactiveCheckedBeforePassword(t *testing.T) {
	svc, mocks, _ := setupTestAuthService()
	createTestUser(mocks, "admin", "correct-horse", model.RoleAdmin, model.StatusInactive)

	_, err := svc.Login(context.Background(), &dto.LoginRequest{Username: "admin", Password: "wrong"})
	if !errors.Is(err, ErrAccountNotActive) {
		t.Errorf("未激活账号应先报告 ErrAccountNotActive，实际: %v", err)
	}
}

func TestLogin_RecordsMetrics(t *testing.T) {
	repo, mocks := newMockRepository()
	m, err := metrics.New(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("metrics.New 失败: %v", err)
	}
	svc := NewAuthService(repo, jwt.NewManager(testAuthConfig()), nil, m, zap.NewNop())
	createTestUser(mocks, "admin", "pw", model.RoleAdmin, model.StatusActive)

	_, _ = svc.Login(context.Background(), &dto.LoginRequest{Username: "admin", Password: "pw"})
	_, _ = svc.Login(context.Background(), &dto.LoginRequest{Username: "admin", Password: "nope"})

	if got := testutil.ToFloat64(m.LoginTotal.WithLabelValues("success")); got != 1 {
		t.Errorf("期望 success=1，实际=%v", got)
	}
	if got := testutil.ToFloat64(m.LoginTotal.WithLabelValues("invalid_credentials")); got != 1 {
		t.Errorf("期望 invalid_credentials=1，实际=%v", got)
	}
}

// ── 注册测试 ──

func TestRegister_TeacherSuccess(t *testing.T) {
	svc, mocks, _ := setupTestAuthService()
	teacher := addTeacher(mocks, 1)

	result, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Username:  "newuser",
		Password:  "pw",
		Role:      "Teacher",
		AccountID: 1,
	})
	if err != nil {
		t.Fatalf("Register 应成功: %v", err)
	}
	if result.Status != string(model.StatusInactive) {
		t.Errorf("新账号应为 inactive，实际=%s", result.Status)
	}
	if result.Role != "teacher" {
		t.Errorf("期望 Role=teacher，实际=%s", result.Role)
	}
	if result.RegisteredAt != fixedNow.Format(time.RFC3339) {
		t.Errorf("期望 RegisteredAt=%s，实际=%s", fixedNow.Format(time.RFC3339), result.RegisteredAt)
	}
	if teacher.UserID == nil || *teacher.UserID != result.AccountID {
		t.Errorf("教师记录应绑定新账号 %d，实际=%v", result.AccountID, teacher.UserID)
	}

	stored, _ := mocks.user.GetByID(context.Background(), result.AccountID)
	if !password.Verify("pw", stored.HashKey, stored.PasswordHash) {
		t.Error("存储的口令摘要应可用账号密钥验证")
	}
}

func TestRegister_StudentSuccess(t *testing.T) {
	svc, mocks, _ := setupTestAuthService()
	student := addStudent(mocks, 3, "S2026001")

	result, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Username: "stu", Password: "pw", Role: "student", AccountID: 3,
	})
	if err != nil {
		t.Fatalf("Register 应成功: %v", err)
	}
	if student.UserID == nil || *student.UserID != result.AccountID {
		t.Errorf("学生记录应绑定新账号 %d", result.AccountID)
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	svc, mocks, _ := setupTestAuthService()
	addTeacher(mocks, 2)
	addStudent(mocks, 3, "S2026003")

	if _, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Username: "dup", Password: "pw", Role: "Teacher", AccountID: 2,
	}); err != nil {
		t.Fatalf("首次注册应成功: %v", err)
	}

	_, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Username: "dup", Password: "pw", Role: "Student", AccountID: 3,
	})
	if !errors.Is(err, ErrDuplicateUsername) {
		t.Errorf("期望 ErrDuplicateUsername，实际: %v", err)
	}
	if s, _ := mocks.student.GetByID(context.Background(), 3); s.UserID != nil {
		t.Error("失败的注册不应绑定学生记录")
	}
}

func TestRegister_DuplicateAccountLink(t *testing.T) {
	svc, mocks, _ := setupTestAuthService()
	addTeacher(mocks, 1)

	if _, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Username: "first", Password: "pw", Role: "teacher", AccountID: 1,
	}); err != nil {
		t.Fatalf("首次注册应成功: %v", err)
	}

	_, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Username: "second", Password: "pw", Role: "teacher", AccountID: 1,
	})
	if !errors.Is(err, ErrDuplicateAccountLink) {
		t.Errorf("期望 ErrDuplicateAccountLink，实际: %v", err)
	}
	if _, err := mocks.user.GetByUsername(context.Background(), "second"); err == nil {
		t.Error("绑定冲突时不应创建账号")
	}
}

func TestRegister_NotPartOfInstitution(t *testing.T) {
	svc, _, _ := setupTestAuthService()

	_, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Username: "x", Password: "pw", Role: "Teacher", AccountID: 999,
	})
	if !errors.Is(err, ErrNotPartOfInstitution) {
		t.Errorf("期望 ErrNotPartOfInstitution，实际: %v", err)
	}
}

func TestRegister_RoleMismatchIsNotPartOfInstitution(t *testing.T) {
	svc, mocks, _ := setupTestAuthService()
	addTeacher(mocks, 5)

	// 教师 #5 存在，但以学生身份注册时按学生名册查找
	_, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Username: "x", Password: "pw", Role: "Student", AccountID: 5,
	})
	if !errors.Is(err, ErrNotPartOfInstitution) {
		t.Errorf("期望 ErrNotPartOfInstitution，实际: %v", err)
	}
}

func TestRegister_InvalidRole(t *testing.T) {
	svc, mocks, _ := setupTestAuthService()
	addTeacher(mocks, 1)

	for _, role := range []string{"", "janitor", "Admin", "ADMIN"} {
		_, err := svc.Register(context.Background(), &dto.RegisterRequest{
			Username: "x", Password: "pw", Role: role, AccountID: 1,
		})
		if !errors.Is(err, ErrInvalidRole) {
			t.Errorf("role=%q 期望 ErrInvalidRole，实际: %v", role, err)
		}
	}
	if len(mocks.user.users) != 0 {
		t.Errorf("角色无效时不应创建账号，实际=%d", len(mocks.user.users))
	}
}

func TestRegister_RegisteredAccountCanLoginAfterActivation(t *testing.T) {
	svc, mocks, jwtMgr := setupTestAuthService()
	addStudent(mocks, 1, "S1")

	acc, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Username: "alice", Password: "s3cret", Role: "student", AccountID: 1,
	})
	if err != nil {
		t.Fatalf("Register 失败: %v", err)
	}

	if _, err := svc.Login(context.Background(), &dto.LoginRequest{Username: "alice", Password: "s3cret"}); !errors.Is(err, ErrAccountNotActive) {
		t.Fatalf("激活前登录期望 ErrAccountNotActive，实际: %v", err)
	}

	if _, err := svc.Activate(context.Background(), acc.AccountID); err != nil {
		t.Fatalf("Activate 失败: %v", err)
	}

	tok, err := svc.Login(context.Background(), &dto.LoginRequest{Username: "alice", Password: "s3cret"})
	if err != nil {
		t.Fatalf("激活后登录失败: %v", err)
	}
	claims, err := jwtMgr.ParseToken(tok.AccessToken)
	if err != nil {
		t.Fatalf("Token 验证失败: %v", err)
	}
	if claims.Role != "student" || claims.UserID != acc.AccountID {
		t.Errorf("Token 主体不一致: uid=%d role=%s", claims.UserID, claims.Role)
	}
}

// ── 激活 / 停用 ──

func TestActivateDeactivate(t *testing.T) {
	svc, mocks, _ := setupTestAuthService()
	user := createTestUser(mocks, "bob", "pw", model.RoleTeacher, model.StatusInactive)

	acc, err := svc.Activate(context.Background(), user.UserID)
	if err != nil {
		t.Fatalf("Activate 失败: %v", err)
	}
	if acc.Status != "active" {
		t.Errorf("期望 active，实际=%s", acc.Status)
	}

	// 重复激活幂等
	if acc, err = svc.Activate(context.Background(), user.UserID); err != nil || acc.Status != "active" {
		t.Errorf("重复激活应幂等: status=%v err=%v", acc, err)
	}

	acc, err = svc.Deactivate(context.Background(), user.UserID)
	if err != nil {
		t.Fatalf("Deactivate 失败: %v", err)
	}
	if acc.Status != "inactive" {
		t.Errorf("期望 inactive，实际=%s", acc.Status)
	}
	if acc.Role != "teacher" || acc.AccountID != user.UserID {
		t.Error("状态变更不应修改角色或 ID")
	}
}

func TestActivate_NoSuchUser(t *testing.T) {
	svc, _, _ := setupTestAuthService()

	if _, err := svc.Activate(context.Background(), 42); !errors.Is(err, ErrNoSuchUser) {
		t.Errorf("期望 ErrNoSuchUser，实际: %v", err)
	}
	if _, err := svc.Deactivate(context.Background(), 42); !errors.Is(err, ErrNoSuchUser) {
		t.Errorf("期望 ErrNoSuchUser，实际: %v", err)
	}
}

func TestDeactivate_RevokesIssuedTokens(t *testing.T) {
	repo, mocks := newMockRepository()
	db, mock := redismock.NewClientMock()
	rdb := redis.Wrap(db, zap.NewNop())

	svc := NewAuthService(repo, jwt.NewManager(testAuthConfig()), rdb, nil, zap.NewNop()).(*authService)
	svc.now = func() time.Time { return fixedNow }
	user := createTestUser(mocks, "admin2", "pw", model.RoleAdmin, model.StatusActive)

	// 吊销点为停用时刻，保留时长与 Access Token 有效期一致
	mock.ExpectSet("token:revoked_user:"+strconv.FormatUint(uint64(user.UserID), 10), fixedNow.Unix(), 15*time.Minute).SetVal("OK")

	if _, err := svc.Deactivate(context.Background(), user.UserID); err != nil {
		t.Fatalf("Deactivate 失败: %v", err)
	}
	// 已停用时重复停用不再写入
	if _, err := svc.Deactivate(context.Background(), user.UserID); err != nil {
		t.Fatalf("重复 Deactivate 失败: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Redis 调用不符合预期: %v", err)
	}
}

// ── 登出 ──

func TestLogout_BlacklistsRemainingLifetime(t *testing.T) {
	repo, _ := newMockRepository()
	db, mock := redismock.NewClientMock()
	rdb := redis.Wrap(db, zap.NewNop())

	svc := NewAuthService(repo, jwt.NewManager(testAuthConfig()), rdb, nil, zap.NewNop()).(*authService)
	svc.now = func() time.Time { return fixedNow }

	mock.ExpectSet("token:blacklist:jti-1", "1", 10*time.Minute).SetVal("OK")

	if err := svc.Logout(context.Background(), "jti-1", fixedNow.Add(10*time.Minute)); err != nil {
		t.Fatalf("Logout 失败: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Redis 调用不符合预期: %v", err)
	}
}

func TestLogout_WithoutRedisIsNoop(t *testing.T) {
	svc, _, _ := setupTestAuthService()

	if err := svc.Logout(context.Background(), "jti-1", fixedNow.Add(time.Minute)); err != nil {
		t.Errorf("Redis 不可用时登出应降级成功: %v", err)
	}
}

// ── 当前账号 / 改密 ──

func TestGetCurrentAccount_ResolvesRosterID(t *testing.T) {
	svc, mocks, _ := setupTestAuthService()
	addTeacher(mocks, 7)

	acc, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Username: "t7", Password: "pw", Role: "teacher", AccountID: 7,
	})
	if err != nil {
		t.Fatalf("Register 失败: %v", err)
	}

	cur, err := svc.GetCurrentAccount(context.Background(), acc.AccountID)
	if err != nil {
		t.Fatalf("GetCurrentAccount 失败: %v", err)
	}
	if cur.RosterID == nil || *cur.RosterID != 7 {
		t.Errorf("期望 RosterID=7，实际=%v", cur.RosterID)
	}
	if cur.Username != "t7" {
		t.Errorf("期望 Username=t7，实际=%s", cur.Username)
	}
}

func TestGetCurrentAccount_AdminHasNoRoster(t *testing.T) {
	svc, mocks, _ := setupTestAuthService()
	admin := createTestUser(mocks, "root", "pw", model.RoleAdmin, model.StatusActive)

	cur, err := svc.GetCurrentAccount(context.Background(), admin.UserID)
	if err != nil {
		t.Fatalf("GetCurrentAccount 失败: %v", err)
	}
	if cur.RosterID != nil {
		t.Errorf("管理员不应有名册 ID，实际=%v", *cur.RosterID)
	}
}

func TestChangePassword(t *testing.T) {
	svc, mocks, _ := setupTestAuthService()
	user := createTestUser(mocks, "carol", "old-pw", model.RoleStudent, model.StatusActive)
	oldKey := append([]byte(nil), user.HashKey...)

	err := svc.ChangePassword(context.Background(), user.UserID, &dto.ChangePasswordRequest{
		OldPassword: "wrong", NewPassword: "new-pw",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("旧密码错误期望 ErrInvalidCredentials，实际: %v", err)
	}

	if err := svc.ChangePassword(context.Background(), user.UserID, &dto.ChangePasswordRequest{
		OldPassword: "old-pw", NewPassword: "new-pw",
	}); err != nil {
		t.Fatalf("ChangePassword 失败: %v", err)
	}

	stored, _ := mocks.user.GetByID(context.Background(), user.UserID)
	if string(stored.HashKey) == string(oldKey) {
		t.Error("改密后密钥应轮换")
	}
	if _, err := svc.Login(context.Background(), &dto.LoginRequest{Username: "carol", Password: "new-pw"}); err != nil {
		t.Errorf("新密码登录失败: %v", err)
	}
	if _, err := svc.Login(context.Background(), &dto.LoginRequest{Username: "carol", Password: "old-pw"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("旧密码应失效，实际: %v", err)
	}
}

// ── 引导管理员 ──

func TestEnsureAdmin(t *testing.T) {
	svc, mocks, _ := setupTestAuthService()

	if err := svc.EnsureAdmin(context.Background(), "root", "bootstrap-pw"); err != nil {
		t.Fatalf("EnsureAdmin 失败: %v", err)
	}
	admin, err := mocks.user.GetByUsername(context.Background(), "root")
	if err != nil {
		t.Fatalf("应创建管理员账号: %v", err)
	}
	if admin.Role != model.RoleAdmin || !admin.IsActive() {
		t.Errorf("引导账号应为已激活管理员: role=%s status=%s", admin.Role, admin.Status)
	}

	// 再次调用不修改已有账号
	if err := svc.EnsureAdmin(context.Background(), "root", "other-pw"); err != nil {
		t.Fatalf("重复 EnsureAdmin 失败: %v", err)
	}
	if !password.Verify("bootstrap-pw", admin.HashKey, admin.PasswordHash) {
		t.Error("重复 EnsureAdmin 不应覆盖原密码")
	}
	if len(mocks.user.users) != 1 {
		t.Errorf("期望 1 个账号，实际=%d", len(mocks.user.users))
	}
}
