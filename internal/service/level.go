package service

import (
	"lingo_edu_backend/internal/model"
	"math"
)

// SubScores 三项能力子分，取值 [0,100]，越界值按截断处理
type SubScores struct {
	Vocabulary float64 `json:"vocabulary"`
	Grammar    float64 `json:"grammar"`
	Cohesion   float64 `json:"cohesion"`
}

// AssessmentResult 单次评估的完整结果，生成后不再修改
type AssessmentResult struct {
	Level        string      `json:"level"`
	Confidence   float64     `json:"confidence"`
	Scores       SubScores   `json:"scores"`
	Overall      float64     `json:"overall"`
	Explanation  string      `json:"explanation,omitempty"`
	Improvements string      `json:"improvements,omitempty"`
	Raw          string      `json:"raw,omitempty"`
	Details      interface{} `json:"details,omitempty"`
}

func clampScore(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// MapLevel 将子分加权合成总分并映射到 CEFR 等级。
// 纯函数，对任意有限数值输入都返回一个等级。
// 权重：词汇 0.4、语法 0.4、连贯 0.2；阈值为含上界。
func MapLevel(scores SubScores) (string, float64) {
	overall := 0.4*clampScore(scores.Vocabulary) +
		0.4*clampScore(scores.Grammar) +
		0.2*clampScore(scores.Cohesion)

	switch {
	case overall <= 20:
		return model.LevelA1, overall
	case overall <= 35:
		return model.LevelA2, overall
	case overall <= 55:
		return model.LevelB1, overall
	case overall <= 75:
		return model.LevelB2, overall
	case overall <= 90:
		return model.LevelC1, overall
	default:
		return model.LevelC2, overall
	}
}
