package repository

import (
	"lingo_edu_backend/internal/model"

	"gorm.io/gorm"
)

type QuestionRepository struct {
	DB *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: db}
}

func (r *QuestionRepository) Create(q *model.AssessmentQuestion) error {
	return r.DB.Create(q).Error
}

func (r *QuestionRepository) FindByID(id uint) (*model.AssessmentQuestion, error) {
	var q model.AssessmentQuestion
	err := r.DB.First(&q, id).Error
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// ListEnabled 按 order 升序返回启用的题目，即学生实际作答的题组
func (r *QuestionRepository) ListEnabled() ([]model.AssessmentQuestion, error) {
	var qs []model.AssessmentQuestion
	err := r.DB.Where("enabled = ?", true).Order("`order` ASC, id ASC").Find(&qs).Error
	return qs, err
}

func (r *QuestionRepository) ListAll() ([]model.AssessmentQuestion, error) {
	var qs []model.AssessmentQuestion
	err := r.DB.Order("`order` ASC, id ASC").Find(&qs).Error
	return qs, err
}

func (r *QuestionRepository) Update(q *model.AssessmentQuestion) error {
	return r.DB.Save(q).Error
}

func (r *QuestionRepository) Delete(id uint) error {
	return r.DB.Delete(&model.AssessmentQuestion{}, id).Error
}
