package model

import (
	"encoding/json"
	"time"
)

// 题目类型
const (
	QuestionMultipleChoice = "multiple_choice"
	QuestionFreeWriting    = "free_writing"
)

// 评估类型
const (
	AssessmentSpeaking  = "speaking"
	AssessmentWriting   = "writing"
	AssessmentPlacement = "placement"
)

// AssessmentQuestion 定级测试题目。答案只存在服务端，
// 评分永远不信任客户端声明的正确性。
// swagger:model AssessmentQuestion
type AssessmentQuestion struct {
	BaseModel
	QuestionType string          `gorm:"size:50;not null" json:"questionType"`
	Title        string          `gorm:"size:255" json:"title"`
	Content      string          `gorm:"type:text;not null" json:"content"`
	Options      json.RawMessage `gorm:"type:json" json:"options,omitempty"`
	Answer       string          `gorm:"type:text" json:"-"`
	Order        int             `gorm:"default:0" json:"order"`
	Enabled      bool            `gorm:"default:true" json:"enabled"`
}

func (AssessmentQuestion) TableName() string {
	return "assessment_questions"
}

// QuestionAnswer 学生对单题的作答（按题目位置顺序提交）
type QuestionAnswer struct {
	QuestionID uint   `json:"questionId"`
	Answer     string `json:"answer"`
}

// AssessmentRecord 评估历史记录，创建后不可变更
// swagger:model AssessmentRecord
type AssessmentRecord struct {
	UUIDBase
	UserID   uint            `gorm:"index;type:bigint unsigned;not null" json:"userId"`
	Type     string          `gorm:"size:20;not null" json:"type"`
	Input    json.RawMessage `gorm:"type:json" json:"input,omitempty"`
	Result   json.RawMessage `gorm:"type:json" json:"result"`
	AudioURL string          `gorm:"size:255" json:"audioUrl,omitempty"`
}

func (AssessmentRecord) TableName() string {
	return "assessment_records"
}

// ProgressSnapshot 接口返回的用户进度快照
type ProgressSnapshot struct {
	Level              string     `json:"level"`
	LevelConfidence    float64    `json:"levelConfidence"`
	Streak             int        `json:"streak"`
	LastAssessmentAt   *time.Time `json:"lastAssessmentAt,omitempty"`
	LastAssessmentDate string     `json:"lastAssessmentDate,omitempty"`
	Badges             []string   `json:"badges"`
}
