package service

import (
	"encoding/json"
	"errors"
	"lingo_edu_backend/internal/model"
	"lingo_edu_backend/internal/repository"
	"lingo_edu_backend/internal/util"
	"time"

	"gorm.io/gorm"
)

// ProgressStore 进度快照的持久化边界
type ProgressStore interface {
	GetSnapshot(userID uint) (*model.ProgressSnapshot, error)
	ApplyAssessment(userID uint, prevStreak int, prevDate string, update repository.ProgressUpdate, record *model.AssessmentRecord) error
	ListRecords(userID uint, page, limit int) ([]model.AssessmentRecord, int64, error)
}

// ProgressService 把评估结果与连续打卡状态机的输出合并进用户
// 进度记录，并追加一条不可变的历史记录。
type ProgressService struct {
	ProgressRepo ProgressStore
	Now          func() time.Time
}

func NewProgressService(progressRepo ProgressStore) *ProgressService {
	return &ProgressService{
		ProgressRepo: progressRepo,
		Now:          time.Now,
	}
}

// Reconcile 读取进度快照、推进连续打卡、合并徽章并条件写入。
// 并发冲突时重读一次再试，仍冲突则返回 ErrProgressConflict。
// 同日重复评估会覆盖等级与分数，但 streak 保持不变。
func (s *ProgressService) Reconcile(userID uint, assessmentType string, input interface{}, result *AssessmentResult, audioURL string) (*model.ProgressSnapshot, error) {
	snapshot, err := s.apply(userID, assessmentType, input, result, audioURL)
	if errors.Is(err, util.ErrProgressConflict) {
		// 乐观并发标记失配：以最新快照重试一次
		snapshot, err = s.apply(userID, assessmentType, input, result, audioURL)
	}
	return snapshot, err
}

func (s *ProgressService) apply(userID uint, assessmentType string, input interface{}, result *AssessmentResult, audioURL string) (*model.ProgressSnapshot, error) {
	prev, err := s.ProgressRepo.GetSnapshot(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrUserNotFound
		}
		return nil, err
	}

	now := s.Now()
	streak := AdvanceStreak(prev.LastAssessmentDate, prev.Streak, now)
	badges := MergeBadges(model.BadgeList(prev.Badges), streak.Streak)

	update := repository.ProgressUpdate{
		Level:              result.Level,
		LevelConfidence:    result.Confidence,
		Streak:             streak.Streak,
		LastAssessmentAt:   now,
		LastAssessmentDate: streak.TodayISO,
		Badges:             badges,
	}

	record, err := buildRecord(userID, assessmentType, input, result, audioURL)
	if err != nil {
		return nil, err
	}

	if err := s.ProgressRepo.ApplyAssessment(userID, prev.Streak, prev.LastAssessmentDate, update, record); err != nil {
		return nil, err
	}

	return &model.ProgressSnapshot{
		Level:              update.Level,
		LevelConfidence:    update.LevelConfidence,
		Streak:             update.Streak,
		LastAssessmentAt:   &update.LastAssessmentAt,
		LastAssessmentDate: update.LastAssessmentDate,
		Badges:             []string(badges),
	}, nil
}

func buildRecord(userID uint, assessmentType string, input interface{}, result *AssessmentResult, audioURL string) (*model.AssessmentRecord, error) {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}

	var inputJSON json.RawMessage
	if input != nil {
		inputJSON, err = json.Marshal(input)
		if err != nil {
			return nil, err
		}
	}

	return &model.AssessmentRecord{
		UserID:   userID,
		Type:     assessmentType,
		Input:    inputJSON,
		Result:   resultJSON,
		AudioURL: audioURL,
	}, nil
}

// GetSnapshot 返回当前进度
func (s *ProgressService) GetSnapshot(userID uint) (*model.ProgressSnapshot, error) {
	snapshot, err := s.ProgressRepo.GetSnapshot(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrUserNotFound
	}
	return snapshot, err
}

// ListHistory 分页返回评估历史
func (s *ProgressService) ListHistory(userID uint, page, limit int) ([]model.AssessmentRecord, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.ProgressRepo.ListRecords(userID, page, limit)
}
