package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"campus-records/internal/dto"
	"campus-records/internal/repository"
)

// ErrExportGenerateFail 生成导出文件失败
var ErrExportGenerateFail = errors.New("生成 Excel 文件失败")

// AccountService 账号管理业务接口（管理员）
type AccountService interface {
	GetByID(ctx context.Context, id uint) (*dto.AccountResponse, error)
	List(ctx context.Context, req *dto.AccountListRequest) ([]dto.AccountResponse, int64, error)
	// Export 导出账号列表为 Excel，返回文件内容与建议文件名
	Export(ctx context.Context, req *dto.AccountListRequest) (*bytes.Buffer, string, error)
}

type accountService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewAccountService 创建 AccountService 实例
func NewAccountService(repo *repository.Repository, logger *zap.Logger) AccountService {
	return &accountService{repo: repo, logger: logger}
}

func (s *accountService) GetByID(ctx context.Context, id uint) (*dto.AccountResponse, error) {
	user, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoSuchUser
		}
		s.logger.Error("查询账号失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}
	return toAccountResponse(user), nil
}

func (s *accountService) List(ctx context.Context, req *dto.AccountListRequest) ([]dto.AccountResponse, int64, error) {
	users, total, err := s.repo.User.List(ctx, listFilters(req), req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出账号失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.AccountResponse, 0, len(users))
	for i := range users {
		result = append(result, *toAccountResponse(&users[i]))
	}
	return result, total, nil
}

// ═══════════════════════════════════════════════════════════
// Export 导出账号列表
// ═══════════════════════════════════════════════════════════
//
// 单 Sheet “账号”，表头：ID / 用户名 / 角色 / 状态 / 注册时间

func (s *accountService) Export(ctx context.Context, req *dto.AccountListRequest) (*bytes.Buffer, string, error) {
	users, err := s.repo.User.ListAll(ctx, listFilters(req))
	if err != nil {
		s.logger.Error("查询导出账号失败", zap.Error(err))
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "账号"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrExportGenerateFail, err)
	}

	headers := []string{"ID", "用户名", "角色", "状态", "注册时间"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	lastHeader, _ := excelize.CoordinatesToCellName(len(headers), 1)
	f.SetCellStyle(sheet, "A1", lastHeader, headerStyle)

	for i, u := range users {
		row := i + 2
		values := []interface{}{
			u.UserID,
			u.Username,
			string(u.Role),
			string(u.Status),
			u.RegisteredAt.UTC().Format(time.RFC3339),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(sheet, cell, v)
		}
	}

	f.SetColWidth(sheet, "A", "A", 10)
	f.SetColWidth(sheet, "B", "B", 24)
	f.SetColWidth(sheet, "C", "D", 12)
	f.SetColWidth(sheet, "E", "E", 26)

	buf, err := f.WriteToBuffer()
	if err != nil {
		s.logger.Error("写出 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("accounts_%s.xlsx", time.Now().UTC().Format("20060102"))
	return buf, filename, nil
}

func listFilters(req *dto.AccountListRequest) *repository.UserListFilters {
	return &repository.UserListFilters{
		Role:    req.Role,
		Status:  req.Status,
		Keyword: req.Keyword,
	}
}
