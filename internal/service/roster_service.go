package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"campus-records/internal/dto"
	"campus-records/internal/model"
	"campus-records/internal/repository"
	pkgerrors "campus-records/pkg/errors"
)

// ── 名册模块业务错误 ──

var (
	ErrTeacherNotFound     = errors.New("教师不存在")
	ErrStudentNotFound     = errors.New("学生不存在")
	ErrStudentNumberExists = errors.New("学号已存在")
)

// RosterService 名册业务接口
// 名册记录先于登录账号存在，账号注册时按 ID 绑定
type RosterService interface {
	CreateTeacher(ctx context.Context, req *dto.CreateTeacherRequest) (*dto.TeacherResponse, error)
	GetTeacher(ctx context.Context, id uint) (*dto.TeacherResponse, error)
	ListTeachers(ctx context.Context, page *dto.PaginationRequest) ([]dto.TeacherResponse, int64, error)
	CreateStudent(ctx context.Context, req *dto.CreateStudentRequest) (*dto.StudentResponse, error)
	GetStudent(ctx context.Context, id uint) (*dto.StudentResponse, error)
	ListStudents(ctx context.Context, page *dto.PaginationRequest) ([]dto.StudentResponse, int64, error)
	ParseImportFile(reader io.Reader) ([]ImportRosterRow, error)
	Import(ctx context.Context, rows []ImportRosterRow) (*dto.ImportRosterResponse, error)
}

// ImportRosterRow Excel 导入解析后的单行数据
type ImportRosterRow struct {
	Row           int
	Kind          string // teacher | student
	Name          string
	Email         string
	Department    string
	StudentNumber string
	Grade         string
}

type rosterService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewRosterService 创建 RosterService 实例
func NewRosterService(repo *repository.Repository, logger *zap.Logger) RosterService {
	return &rosterService{repo: repo, logger: logger}
}

// ────────────────────── Teacher ──────────────────────

func (s *rosterService) CreateTeacher(ctx context.Context, req *dto.CreateTeacherRequest) (*dto.TeacherResponse, error) {
	teacher := &model.Teacher{
		Name:       req.Name,
		Email:      req.Email,
		Department: req.Department,
	}
	if err := s.repo.Teacher.Create(ctx, teacher); err != nil {
		s.logger.Error("创建教师失败", zap.Error(err))
		return nil, err
	}
	return toTeacherResponse(teacher), nil
}

func (s *rosterService) GetTeacher(ctx context.Context, id uint) (*dto.TeacherResponse, error) {
	teacher, err := s.repo.Teacher.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeacherNotFound
		}
		s.logger.Error("查询教师失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}
	return toTeacherResponse(teacher), nil
}

func (s *rosterService) ListTeachers(ctx context.Context, page *dto.PaginationRequest) ([]dto.TeacherResponse, int64, error) {
	teachers, total, err := s.repo.Teacher.List(ctx, page.GetOffset(), page.GetPageSize())
	if err != nil {
		s.logger.Error("列出教师失败", zap.Error(err))
		return nil, 0, err
	}
	result := make([]dto.TeacherResponse, 0, len(teachers))
	for i := range teachers {
		result = append(result, *toTeacherResponse(&teachers[i]))
	}
	return result, total, nil
}

// ────────────────────── Student ──────────────────────

func (s *rosterService) CreateStudent(ctx context.Context, req *dto.CreateStudentRequest) (*dto.StudentResponse, error) {
	if _, err := s.repo.Student.GetByStudentNumber(ctx, req.StudentNumber); err == nil {
		return nil, ErrStudentNumberExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	student := &model.Student{
		Name:          req.Name,
		Email:         req.Email,
		StudentNumber: req.StudentNumber,
		Grade:         req.Grade,
	}
	if err := s.repo.Student.Create(ctx, student); err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			return nil, ErrStudentNumberExists
		}
		s.logger.Error("创建学生失败", zap.Error(err))
		return nil, err
	}
	return toStudentResponse(student), nil
}

func (s *rosterService) GetStudent(ctx context.Context, id uint) (*dto.StudentResponse, error) {
	student, err := s.repo.Student.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		s.logger.Error("查询学生失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}
	return toStudentResponse(student), nil
}

func (s *rosterService) ListStudents(ctx context.Context, page *dto.PaginationRequest) ([]dto.StudentResponse, int64, error) {
	students, total, err := s.repo.Student.List(ctx, page.GetOffset(), page.GetPageSize())
	if err != nil {
		s.logger.Error("列出学生失败", zap.Error(err))
		return nil, 0, err
	}
	result := make([]dto.StudentResponse, 0, len(students))
	for i := range students {
		result = append(result, *toStudentResponse(&students[i]))
	}
	return result, total, nil
}

// ────────────────────── ParseImportFile ──────────────────────

const maxImportRows = 1000

var (
	ErrImportNoData      = errors.New("Excel文件无数据行（第一行为表头）")
	ErrImportTooManyRows = fmt.Errorf("数据行数超过上限 %d 行", maxImportRows)
	ErrImportBadHeader   = errors.New("Excel表头缺少必要列（类型/姓名）")
)

// ParseImportFile 解析名册导入 Excel 文件
func (s *rosterService) ParseImportFile(reader io.Reader) ([]ImportRosterRow, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("无法解析Excel文件: %w", err)
	}
	defer f.Close()

	excelRows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("读取工作表失败: %w", err)
	}
	if len(excelRows) < 2 {
		return nil, ErrImportNoData
	}

	colIndex := parseHeaderIndex(excelRows[0])
	if colIndex["kind"] < 0 || colIndex["name"] < 0 {
		return nil, ErrImportBadHeader
	}

	cell := func(row []string, key string) string {
		if idx := colIndex[key]; idx >= 0 && idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}

	var rows []ImportRosterRow
	for i := 1; i < len(excelRows); i++ {
		row := excelRows[i]
		item := ImportRosterRow{
			Row:           i + 1,
			Kind:          strings.ToLower(cell(row, "kind")),
			Name:          cell(row, "name"),
			Email:         cell(row, "email"),
			Department:    cell(row, "department"),
			StudentNumber: cell(row, "student_number"),
			Grade:         cell(row, "grade"),
		}

		// 跳过全空行
		if item.Kind == "" && item.Name == "" && item.StudentNumber == "" {
			continue
		}
		rows = append(rows, item)
	}

	if len(rows) == 0 {
		return nil, ErrImportNoData
	}
	if len(rows) > maxImportRows {
		return nil, ErrImportTooManyRows
	}
	return rows, nil
}

// parseHeaderIndex 解析 Excel 表头，返回列名 -> 列索引映射（支持中英文列名与任意列序）
func parseHeaderIndex(header []string) map[string]int {
	idx := map[string]int{
		"kind":           -1,
		"name":           -1,
		"email":          -1,
		"department":     -1,
		"student_number": -1,
		"grade":          -1,
	}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "类型", "kind":
			idx["kind"] = i
		case "姓名", "name":
			idx["name"] = i
		case "邮箱", "email":
			idx["email"] = i
		case "院系", "department":
			idx["department"] = i
		case "学号", "student_number":
			idx["student_number"] = i
		case "年级", "grade":
			idx["grade"] = i
		}
	}
	return idx
}

// ────────────────────── Import ──────────────────────

func (s *rosterService) Import(ctx context.Context, rows []ImportRosterRow) (*dto.ImportRosterResponse, error) {
	resp := &dto.ImportRosterResponse{Total: len(rows)}

	fail := func(row int, reason string) {
		resp.Failed++
		resp.Errors = append(resp.Errors, dto.ImportRosterError{Row: row, Reason: reason})
	}

	// 第一阶段：数据预校验（不写库）
	var valid []ImportRosterRow
	seenNumbers := make(map[string]int)
	for _, row := range rows {
		if row.Name == "" {
			fail(row.Row, "姓名为空")
			continue
		}
		role, ok := model.ParseRole(row.Kind)
		switch {
		case !ok || role == model.RoleAdmin:
			fail(row.Row, fmt.Sprintf("类型无效: %s", row.Kind))
			continue
		case role == model.RoleStudent:
			if row.StudentNumber == "" {
				fail(row.Row, "学号为空")
				continue
			}
			if prev, dup := seenNumbers[row.StudentNumber]; dup {
				fail(row.Row, fmt.Sprintf("学号与第 %d 行重复: %s", prev, row.StudentNumber))
				continue
			}
			if _, err := s.repo.Student.GetByStudentNumber(ctx, row.StudentNumber); err == nil {
				fail(row.Row, fmt.Sprintf("学号已存在: %s", row.StudentNumber))
				continue
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
			seenNumbers[row.StudentNumber] = row.Row
		}
		row.Kind = string(role)
		valid = append(valid, row)
	}

	// 第二阶段：事务内批量写入
	if len(valid) > 0 {
		err := withTx(ctx, s.repo, s.logger, func(txRepo *repository.Repository) error {
			for _, r := range valid {
				var err error
				if r.Kind == string(model.RoleTeacher) {
					err = txRepo.Teacher.Create(ctx, &model.Teacher{Name: r.Name, Email: r.Email, Department: r.Department})
				} else {
					err = txRepo.Student.Create(ctx, &model.Student{Name: r.Name, Email: r.Email, StudentNumber: r.StudentNumber, Grade: r.Grade})
				}
				if err != nil {
					s.logger.Error("导入名册写入失败，事务回滚", zap.Int("row", r.Row), zap.Error(err))
					return fmt.Errorf("第 %d 行写入数据库失败，已回滚全部导入: %w", r.Row, err)
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		resp.Success = len(valid)
	}

	return resp, nil
}

// ── 内部辅助方法 ──

func toTeacherResponse(t *model.Teacher) *dto.TeacherResponse {
	return &dto.TeacherResponse{
		ID:         t.TeacherID,
		Name:       t.Name,
		Email:      t.Email,
		Department: t.Department,
		Linked:     t.UserID != nil,
	}
}

func toStudentResponse(st *model.Student) *dto.StudentResponse {
	return &dto.StudentResponse{
		ID:            st.StudentID,
		Name:          st.Name,
		Email:         st.Email,
		StudentNumber: st.StudentNumber,
		Grade:         st.Grade,
		Linked:        st.UserID != nil,
	}
}
