package handler

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"campus-records/internal/dto"
	"campus-records/internal/service"
	"campus-records/pkg/response"
)

// 名册业务错误码
const (
	CodeTeacherNotFound     = 30001
	CodeStudentNotFound     = 30002
	CodeStudentNumberExists = 30003
	CodeImportFileInvalid   = 30004
)

// RosterHandler 名册模块 HTTP 处理器（管理员）
type RosterHandler struct {
	rosterSvc service.RosterService
}

// NewRosterHandler 创建 RosterHandler
func NewRosterHandler(rosterSvc service.RosterService) *RosterHandler {
	return &RosterHandler{rosterSvc: rosterSvc}
}

// ── 教师 ──

// CreateTeacher POST /api/v1/teachers
func (h *RosterHandler) CreateTeacher(c *gin.Context) {
	var req dto.CreateTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeBadRequest, "参数校验失败")
		return
	}

	result, err := h.rosterSvc.CreateTeacher(c.Request.Context(), &req)
	if err != nil {
		handleRosterError(c, err)
		return
	}
	response.Created(c, result)
}

// GetTeacher GET /api/v1/teachers/:id
func (h *RosterHandler) GetTeacher(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := h.rosterSvc.GetTeacher(c.Request.Context(), id)
	if err != nil {
		handleRosterError(c, err)
		return
	}
	response.OK(c, result)
}

// ListTeachers GET /api/v1/teachers
func (h *RosterHandler) ListTeachers(c *gin.Context) {
	var page dto.PaginationRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		response.BadRequest(c, response.CodeBadRequest, "参数校验失败")
		return
	}

	list, total, err := h.rosterSvc.ListTeachers(c.Request.Context(), &page)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OKPage(c, list, total, page.GetPage(), page.GetPageSize())
}

// ── 学生 ──

// CreateStudent POST /api/v1/students
func (h *RosterHandler) CreateStudent(c *gin.Context) {
	var req dto.CreateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeBadRequest, "参数校验失败")
		return
	}

	result, err := h.rosterSvc.CreateStudent(c.Request.Context(), &req)
	if err != nil {
		handleRosterError(c, err)
		return
	}
	response.Created(c, result)
}

// GetStudent GET /api/v1/students/:id
func (h *RosterHandler) GetStudent(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := h.rosterSvc.GetStudent(c.Request.Context(), id)
	if err != nil {
		handleRosterError(c, err)
		return
	}
	response.OK(c, result)
}

// ListStudents GET /api/v1/students
func (h *RosterHandler) ListStudents(c *gin.Context) {
	var page dto.PaginationRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		response.BadRequest(c, response.CodeBadRequest, "参数校验失败")
		return
	}

	list, total, err := h.rosterSvc.ListStudents(c.Request.Context(), &page)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OKPage(c, list, total, page.GetPage(), page.GetPageSize())
}

// ── 导入 ──

// Import 批量导入名册
// POST /api/v1/roster/import  (multipart/form-data, 字段 file)
func (h *RosterHandler) Import(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, response.CodeBadRequest, "请上传 Excel 文件")
		return
	}
	if !strings.EqualFold(filepath.Ext(fileHeader.Filename), ".xlsx") {
		response.BadRequest(c, CodeImportFileInvalid, "仅支持 .xlsx 文件")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.BadRequest(c, CodeImportFileInvalid, "无法读取上传文件")
		return
	}
	defer file.Close()

	rows, err := h.rosterSvc.ParseImportFile(file)
	if err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, CodeImportFileInvalid, "导入文件解析失败", err.Error())
		return
	}

	result, err := h.rosterSvc.Import(c.Request.Context(), rows)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, result)
}

func handleRosterError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTeacherNotFound):
		response.NotFound(c, CodeTeacherNotFound, "教师不存在")
	case errors.Is(err, service.ErrStudentNotFound):
		response.NotFound(c, CodeStudentNotFound, "学生不存在")
	case errors.Is(err, service.ErrStudentNumberExists):
		response.Conflict(c, CodeStudentNumberExists, "学号已存在")
	default:
		response.InternalError(c)
	}
}
