package repository

import (
	"lingo_edu_backend/internal/model"
	"lingo_edu_backend/internal/util"
	"time"

	"gorm.io/gorm"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

// GetSnapshot 读取用户当前的进度快照
func (r *ProgressRepository) GetSnapshot(userID uint) (*model.ProgressSnapshot, error) {
	var user model.User
	if err := r.DB.First(&user, userID).Error; err != nil {
		return nil, err
	}
	badges := []string(user.Badges)
	if badges == nil {
		badges = []string{}
	}
	return &model.ProgressSnapshot{
		Level:              user.Level,
		LevelConfidence:    user.LevelConfidence,
		Streak:             user.Streak,
		LastAssessmentAt:   user.LastAssessmentAt,
		LastAssessmentDate: user.LastAssessmentDate,
		Badges:             badges,
	}, nil
}

// ProgressUpdate 流水线独占维护的进度列，其余用户列不受影响
type ProgressUpdate struct {
	Level              string
	LevelConfidence    float64
	Streak             int
	LastAssessmentAt   time.Time
	LastAssessmentDate string
	Badges             model.BadgeList
}

// ApplyAssessment 在同一事务内完成进度写入和历史记录追加。
// 进度写入是条件更新：以读取时的 streak 和 last_assessment_date 作为
// 乐观并发标记，并发评估导致标记不匹配时返回 ErrProgressConflict，
// 不产生任何写入。
func (r *ProgressRepository) ApplyAssessment(userID uint, prevStreak int, prevDate string, update ProgressUpdate, record *model.AssessmentRecord) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.User{}).
			Where("id = ? AND streak = ? AND last_assessment_date = ?", userID, prevStreak, prevDate).
			Updates(map[string]interface{}{
				"level":                update.Level,
				"level_confidence":     update.LevelConfidence,
				"streak":               update.Streak,
				"last_assessment_at":   update.LastAssessmentAt,
				"last_assessment_date": update.LastAssessmentDate,
				"badges":               update.Badges,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return util.ErrProgressConflict
		}

		return tx.Create(record).Error
	})
}

// ListRecords 按时间倒序分页返回历史记录
func (r *ProgressRepository) ListRecords(userID uint, page, limit int) ([]model.AssessmentRecord, int64, error) {
	var total int64
	if err := r.DB.Model(&model.AssessmentRecord{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []model.AssessmentRecord
	offset := (page - 1) * limit
	err := r.DB.Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&records).Error
	return records, total, err
}
