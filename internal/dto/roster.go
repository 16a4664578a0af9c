package dto

// ── 名册模块 DTO ──

// CreateTeacherRequest 新建教师名册记录
type CreateTeacherRequest struct {
	Name       string `json:"name"       binding:"required,min=1,max=100"`
	Email      string `json:"email"      binding:"omitempty,email"`
	Department string `json:"department" binding:"omitempty,max=100"`
}

// CreateStudentRequest 新建学生名册记录
type CreateStudentRequest struct {
	Name          string `json:"name"           binding:"required,min=1,max=100"`
	Email         string `json:"email"          binding:"omitempty,email"`
	StudentNumber string `json:"student_number" binding:"required,max=30"`
	Grade         string `json:"grade"          binding:"omitempty,max=30"`
}

// TeacherResponse 教师名册响应
type TeacherResponse struct {
	ID         uint   `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department"`
	Linked     bool   `json:"linked"`
}

// StudentResponse 学生名册响应
type StudentResponse struct {
	ID            uint   `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	StudentNumber string `json:"student_number"`
	Grade         string `json:"grade"`
	Linked        bool   `json:"linked"`
}

// ImportRosterResponse 名册批量导入响应
type ImportRosterResponse struct {
	Total   int                 `json:"total"`
	Success int                 `json:"success"`
	Failed  int                 `json:"failed"`
	Errors  []ImportRosterError `json:"errors,omitempty"`
}

// ImportRosterError 导入错误详情
type ImportRosterError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}
