package database

import (
	"encoding/json"
	"fmt"
	"lingo_edu_backend/internal/config"
	"lingo_edu_backend/internal/model"
	"log"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})

	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	err = db.AutoMigrate(
		&model.User{},
		&model.AssessmentQuestion{},
		&model.AssessmentRecord{},
	)

	if err != nil {
		return nil, err
	}

	log.Println("Database migration completed")

	// 默认定级测试题库（题库为空时写入，答案只存服务端）
	var count int64
	db.Model(&model.AssessmentQuestion{}).Count(&count)
	if count == 0 {
		seedQuestions(db)
	}

	return db, nil
}

func mcOptions(options ...string) json.RawMessage {
	raw, _ := json.Marshal(options)
	return raw
}

func seedQuestions(db *gorm.DB) {
	defaults := []model.AssessmentQuestion{
		{
			QuestionType: model.QuestionMultipleChoice,
			Content:      "She ____ to work by bus every day.",
			Options:      mcOptions("go", "goes", "going", "gone"),
			Answer:       "goes",
			Order:        1,
			Enabled:      true,
		},
		{
			QuestionType: model.QuestionMultipleChoice,
			Content:      "I have lived in London ____ 2019.",
			Options:      mcOptions("for", "since", "from", "at"),
			Answer:       "since",
			Order:        2,
			Enabled:      true,
		},
		{
			QuestionType: model.QuestionMultipleChoice,
			Content:      "If I ____ more time, I would learn another language.",
			Options:      mcOptions("have", "had", "will have", "would have"),
			Answer:       "had",
			Order:        3,
			Enabled:      true,
		},
		{
			QuestionType: model.QuestionMultipleChoice,
			Content:      "The report ____ by the committee before the deadline.",
			Options:      mcOptions("reviewed", "was reviewed", "has reviewed", "reviewing"),
			Answer:       "was reviewed",
			Order:        4,
			Enabled:      true,
		},
		{
			QuestionType: model.QuestionMultipleChoice,
			Content:      "Hardly ____ the meeting started when the fire alarm went off.",
			Options:      mcOptions("had", "has", "did", "was"),
			Answer:       "had",
			Order:        5,
			Enabled:      true,
		},
		{
			QuestionType: model.QuestionFreeWriting,
			Title:        "Free writing",
			Content:      "Describe a memorable trip you have taken. Write at least three sentences.",
			Order:        6,
			Enabled:      true,
		},
	}
	for _, q := range defaults {
		db.Create(&q)
	}
}
