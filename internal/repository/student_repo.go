package repository

import (
	"context"

	"gorm.io/gorm"

	"campus-records/internal/model"
	pkgerrors "campus-records/pkg/errors"
)

// StudentRepository 学生名册数据访问接口
type StudentRepository interface {
	Create(ctx context.Context, student *model.Student) error
	GetByID(ctx context.Context, id uint) (*model.Student, error)
	GetByUserID(ctx context.Context, userID uint) (*model.Student, error)
	GetByStudentNumber(ctx context.Context, number string) (*model.Student, error)
	Update(ctx context.Context, student *model.Student) error
	// LinkUser 仅当名册记录尚未绑定时写入 user_id，否则返回 pkgerrors.ErrAlreadyLinked
	LinkUser(ctx context.Context, id, userID uint) error
	List(ctx context.Context, offset, limit int) ([]model.Student, int64, error)
}

type studentRepo struct {
	db *gorm.DB
}

// NewStudentRepo 创建 StudentRepository 实例
func NewStudentRepo(db *gorm.DB) StudentRepository {
	return &studentRepo{db: db}
}

func (r *studentRepo) Create(ctx context.Context, student *model.Student) error {
	return r.db.WithContext(ctx).Create(student).Error
}

func (r *studentRepo) GetByID(ctx context.Context, id uint) (*model.Student, error) {
	var student model.Student
	if err := r.db.WithContext(ctx).Where("student_id = ?", id).First(&student).Error; err != nil {
		return nil, err
	}
	return &student, nil
}

func (r *studentRepo) GetByUserID(ctx context.Context, userID uint) (*model.Student, error) {
	var student model.Student
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&student).Error; err != nil {
		return nil, err
	}
	return &student, nil
}

func (r *studentRepo) GetByStudentNumber(ctx context.Context, number string) (*model.Student, error) {
	var student model.Student
	if err := r.db.WithContext(ctx).Where("student_number = ?", number).First(&student).Error; err != nil {
		return nil, err
	}
	return &student, nil
}

func (r *studentRepo) Update(ctx context.Context, student *model.Student) error {
	return r.db.WithContext(ctx).Save(student).Error
}

// LinkUser 条件更新：WHERE user_id IS NULL
func (r *studentRepo) LinkUser(ctx context.Context, id, userID uint) error {
	result := r.db.WithContext(ctx).
		Model(&model.Student{}).
		Where("student_id = ? AND user_id IS NULL", id).
		Update("user_id", userID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrAlreadyLinked
	}
	return nil
}

func (r *studentRepo) List(ctx context.Context, offset, limit int) ([]model.Student, int64, error) {
	var students []model.Student
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Student{})
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Offset(offset).Limit(limit).Order("student_id ASC").Find(&students).Error; err != nil {
		return nil, 0, err
	}
	return students, total, nil
}
