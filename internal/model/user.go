package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

type UserRole string

const (
	Student UserRole = "student"
	Teacher UserRole = "teacher"
	Admin   UserRole = "admin"
)

// CEFR 等级标签，"Unknown" 表示尚未成功评估
const (
	LevelUnknown = "Unknown"
	LevelA1      = "A1"
	LevelA2      = "A2"
	LevelB1      = "B1"
	LevelB2      = "B2"
	LevelC1      = "C1"
	LevelC2      = "C2"
)

// BadgeList 用户已解锁的连续打卡徽章集合，JSON 数组存储
type BadgeList []string

func (b BadgeList) Value() (driver.Value, error) {
	if b == nil {
		b = BadgeList{}
	}
	return json.Marshal(b)
}

func (b *BadgeList) Scan(value interface{}) error {
	if value == nil {
		*b = BadgeList{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("unsupported badge list column type")
	}
	if len(bytes) == 0 {
		*b = BadgeList{}
		return nil
	}
	return json.Unmarshal(bytes, b)
}

// Contains 判断徽章是否已存在
func (b BadgeList) Contains(badge string) bool {
	for _, x := range b {
		if x == badge {
			return true
		}
	}
	return false
}

// swagger:model User
type User struct {
	BaseModel
	Name     string   `gorm:"size:100;not null" json:"name"`
	Email    string   `gorm:"size:100;unique;not null" json:"email"`
	Password string   `gorm:"size:100;not null" json:"-"`
	Role     UserRole `gorm:"type:enum('student','teacher','admin');default:'student'" json:"role"`
	Language string   `gorm:"size:10;default:'en'" json:"language"`
	Avatar   string   `gorm:"size:255" json:"avatar"`
	Disabled bool     `gorm:"default:false" json:"disabled"`

	// 评估流水线独占维护的进度字段，其余列由各自模块维护
	Level              string     `gorm:"size:10;default:'Unknown'" json:"level"`
	LevelConfidence    float64    `gorm:"default:0" json:"levelConfidence"`
	Streak             int        `gorm:"default:0" json:"streak"`
	LastAssessmentAt   *time.Time `json:"lastAssessmentAt,omitempty"`
	LastAssessmentDate string     `gorm:"size:10" json:"lastAssessmentDate"` // 日历日期 YYYY-MM-DD
	Badges             BadgeList  `gorm:"type:json" json:"badges"`

	LastLogin time.Time `gorm:"default:CURRENT_TIMESTAMP(3)" json:"lastLogin"`
	LastSeen  time.Time `gorm:"default:CURRENT_TIMESTAMP(3)" json:"lastSeen"`
}

func (User) TableName() string {
	return "users"
}
