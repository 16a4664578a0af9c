package service

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"campus-records/internal/model"
	"campus-records/internal/repository"
	pkgerrors "campus-records/pkg/errors"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users  map[uint]*model.User
	nextID uint
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[uint]*model.User), nextID: 1}
}

// Create 与数据库唯一约束保持一致：用户名重复返回 gorm.ErrDuplicatedKey
func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	for _, u := range m.users {
		if u.Username == user.Username {
			return gorm.ErrDuplicatedKey
		}
	}
	user.UserID = m.nextID
	m.nextID++
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id uint) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	if _, ok := m.users[user.UserID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) UpdateStatus(_ context.Context, id uint, status model.UserStatus) error {
	u, ok := m.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.Status = status
	return nil
}

func (m *mockUserRepo) List(ctx context.Context, filters *repository.UserListFilters, offset, limit int) ([]model.User, int64, error) {
	all, _ := m.ListAll(ctx, filters)
	total := int64(len(all))
	if offset > len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

// ListAll 按 user_id 升序返回，与仓储层排序一致
func (m *mockUserRepo) ListAll(_ context.Context, filters *repository.UserListFilters) ([]model.User, error) {
	var result []model.User
	for id := uint(1); id < m.nextID; id++ {
		u, ok := m.users[id]
		if !ok {
			continue
		}
		if filters != nil {
			if filters.Role != "" && string(u.Role) != filters.Role {
				continue
			}
			if filters.Status != "" && string(u.Status) != filters.Status {
				continue
			}
			if filters.Keyword != "" && !strings.Contains(u.Username, filters.Keyword) {
				continue
			}
		}
		result = append(result, *u)
	}
	return result, nil
}

// ── Mock TeacherRepository ──

type mockTeacherRepo struct {
	teachers map[uint]*model.Teacher
	nextID   uint
}

func newMockTeacherRepo() *mockTeacherRepo {
	return &mockTeacherRepo{teachers: make(map[uint]*model.Teacher), nextID: 1}
}

func (m *mockTeacherRepo) Create(_ context.Context, teacher *model.Teacher) error {
	if teacher.TeacherID == 0 {
		teacher.TeacherID = m.nextID
	}
	if teacher.TeacherID >= m.nextID {
		m.nextID = teacher.TeacherID + 1
	}
	m.teachers[teacher.TeacherID] = teacher
	return nil
}

func (m *mockTeacherRepo) GetByID(_ context.Context, id uint) (*model.Teacher, error) {
	if t, ok := m.teachers[id]; ok {
		return t, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTeacherRepo) GetByUserID(_ context.Context, userID uint) (*model.Teacher, error) {
	for _, t := range m.teachers {
		if t.UserID != nil && *t.UserID == userID {
			return t, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTeacherRepo) Update(_ context.Context, teacher *model.Teacher) error {
	m.teachers[teacher.TeacherID] = teacher
	return nil
}

// LinkUser 与仓储层条件更新语义一致：仅在未绑定时写入
func (m *mockTeacherRepo) LinkUser(_ context.Context, id, userID uint) error {
	t, ok := m.teachers[id]
	if !ok || t.UserID != nil {
		return pkgerrors.ErrAlreadyLinked
	}
	uid := userID
	t.UserID = &uid
	return nil
}

func (m *mockTeacherRepo) List(_ context.Context, offset, limit int) ([]model.Teacher, int64, error) {
	var all []model.Teacher
	for id := uint(1); id < m.nextID; id++ {
		if t, ok := m.teachers[id]; ok {
			all = append(all, *t)
		}
	}
	total := int64(len(all))
	if offset > len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

// ── Mock StudentRepository ──

type mockStudentRepo struct {
	students map[uint]*model.Student
	nextID   uint
	// failOnCreate 第 N 次 Create 返回错误（0 表示不注入）
	failOnCreate int
	creates      int
}

func newMockStudentRepo() *mockStudentRepo {
	return &mockStudentRepo{students: make(map[uint]*model.Student), nextID: 1}
}

func (m *mockStudentRepo) Create(_ context.Context, student *model.Student) error {
	m.creates++
	if m.failOnCreate > 0 && m.creates == m.failOnCreate {
		return gorm.ErrInvalidDB
	}
	for _, s := range m.students {
		if s.StudentNumber == student.StudentNumber {
			return gorm.ErrDuplicatedKey
		}
	}
	if student.StudentID == 0 {
		student.StudentID = m.nextID
	}
	if student.StudentID >= m.nextID {
		m.nextID = student.StudentID + 1
	}
	m.students[student.StudentID] = student
	return nil
}

func (m *mockStudentRepo) GetByID(_ context.Context, id uint) (*model.Student, error) {
	if s, ok := m.students[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockStudentRepo) GetByUserID(_ context.Context, userID uint) (*model.Student, error) {
	for _, s := range m.students {
		if s.UserID != nil && *s.UserID == userID {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockStudentRepo) GetByStudentNumber(_ context.Context, number string) (*model.Student, error) {
	for _, s := range m.students {
		if s.StudentNumber == number {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockStudentRepo) Update(_ context.Context, student *model.Student) error {
	m.students[student.StudentID] = student
	return nil
}

func (m *mockStudentRepo) LinkUser(_ context.Context, id, userID uint) error {
	s, ok := m.students[id]
	if !ok || s.UserID != nil {
		return pkgerrors.ErrAlreadyLinked
	}
	uid := userID
	s.UserID = &uid
	return nil
}

func (m *mockStudentRepo) List(_ context.Context, offset, limit int) ([]model.Student, int64, error) {
	var all []model.Student
	for id := uint(1); id < m.nextID; id++ {
		if s, ok := m.students[id]; ok {
			all = append(all, *s)
		}
	}
	total := int64(len(all))
	if offset > len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

// ── 测试辅助 ──

type mockRepos struct {
	user    *mockUserRepo
	teacher *mockTeacherRepo
	student *mockStudentRepo
}

// newMockRepository 组装未绑定数据库的仓储聚合，事务退化为直接执行
func newMockRepository() (*repository.Repository, *mockRepos) {
	mocks := &mockRepos{
		user:    newMockUserRepo(),
		teacher: newMockTeacherRepo(),
		student: newMockStudentRepo(),
	}
	repo := &repository.Repository{
		User:    mocks.user,
		Teacher: mocks.teacher,
		Student: mocks.student,
	}
	return repo, mocks
}
