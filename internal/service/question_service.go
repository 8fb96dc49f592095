package service

import (
	"encoding/json"
	"lingo_edu_backend/internal/model"
	"lingo_edu_backend/internal/repository"
)

// QuestionService 定级题库管理（教师端）
type QuestionService struct {
	Repo *repository.QuestionRepository
}

func NewQuestionService(repo *repository.QuestionRepository) *QuestionService {
	return &QuestionService{Repo: repo}
}

type QuestionRequest struct {
	QuestionType string          `json:"questionType" binding:"required"`
	Title        string          `json:"title"`
	Content      string          `json:"content" binding:"required"`
	Options      json.RawMessage `json:"options"`
	Answer       string          `json:"answer"`
	Order        int             `json:"order"`
	Enabled      *bool           `json:"enabled"`
}

func (s *QuestionService) Create(req QuestionRequest) (*model.AssessmentQuestion, error) {
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	q := &model.AssessmentQuestion{
		QuestionType: req.QuestionType,
		Title:        req.Title,
		Content:      req.Content,
		Options:      req.Options,
		Answer:       req.Answer,
		Order:        req.Order,
		Enabled:      enabled,
	}
	if err := s.Repo.Create(q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *QuestionService) List() ([]model.AssessmentQuestion, error) {
	return s.Repo.ListAll()
}

func (s *QuestionService) Get(id uint) (*model.AssessmentQuestion, error) {
	return s.Repo.FindByID(id)
}

func (s *QuestionService) Update(id uint, req QuestionRequest) (*model.AssessmentQuestion, error) {
	q, err := s.Repo.FindByID(id)
	if err != nil {
		return nil, err
	}

	q.QuestionType = req.QuestionType
	q.Title = req.Title
	q.Content = req.Content
	q.Options = req.Options
	q.Answer = req.Answer
	q.Order = req.Order
	if req.Enabled != nil {
		q.Enabled = *req.Enabled
	}

	if err := s.Repo.Update(q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *QuestionService) Delete(id uint) error {
	return s.Repo.Delete(id)
}
