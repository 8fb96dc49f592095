package service

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapLevel(t *testing.T) {
	tests := []struct {
		name            string
		scores          SubScores
		expectedLevel   string
		expectedOverall float64
	}{
		{
			name:            "all zero maps to A1",
			scores:          SubScores{},
			expectedLevel:   "A1",
			expectedOverall: 0,
		},
		{
			name:            "overall exactly 20 stays A1",
			scores:          SubScores{Vocabulary: 20, Grammar: 20, Cohesion: 20},
			expectedLevel:   "A1",
			expectedOverall: 20,
		},
		{
			name:            "just above 20 becomes A2",
			scores:          SubScores{Vocabulary: 20.1, Grammar: 20.1, Cohesion: 20.1},
			expectedLevel:   "A2",
			expectedOverall: 20.1,
		},
		{
			name:            "overall exactly 35 stays A2",
			scores:          SubScores{Vocabulary: 35, Grammar: 35, Cohesion: 35},
			expectedLevel:   "A2",
			expectedOverall: 35,
		},
		{
			name:            "mid band B1",
			scores:          SubScores{Vocabulary: 50, Grammar: 45, Cohesion: 40},
			expectedLevel:   "B1",
			expectedOverall: 46,
		},
		{
			name:            "weighted composite B2",
			scores:          SubScores{Vocabulary: 72, Grammar: 68, Cohesion: 70},
			expectedLevel:   "B2",
			expectedOverall: 70,
		},
		{
			name:            "overall exactly 90 stays C1",
			scores:          SubScores{Vocabulary: 90, Grammar: 90, Cohesion: 90},
			expectedLevel:   "C1",
			expectedOverall: 90,
		},
		{
			name:            "above 90 becomes C2",
			scores:          SubScores{Vocabulary: 95, Grammar: 92, Cohesion: 91},
			expectedLevel:   "C2",
			expectedOverall: 93,
		},
		{
			name:            "perfect scores C2",
			scores:          SubScores{Vocabulary: 100, Grammar: 100, Cohesion: 100},
			expectedLevel:   "C2",
			expectedOverall: 100,
		},
		{
			name:            "negative scores clamp to zero",
			scores:          SubScores{Vocabulary: -50, Grammar: -1, Cohesion: -300},
			expectedLevel:   "A1",
			expectedOverall: 0,
		},
		{
			name:            "above 100 clamps to 100",
			scores:          SubScores{Vocabulary: 500, Grammar: 200, Cohesion: 101},
			expectedLevel:   "C2",
			expectedOverall: 100,
		},
		{
			name:            "NaN treated as zero",
			scores:          SubScores{Vocabulary: math.NaN(), Grammar: 100, Cohesion: 100},
			expectedLevel:   "B2",
			expectedOverall: 60,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, overall := MapLevel(tt.scores)
			assert.Equal(t, tt.expectedLevel, level)
			assert.InDelta(t, tt.expectedOverall, overall, 0.0001)
		})
	}
}

func TestMapLevelTotality(t *testing.T) {
	// 任意有限输入都必须落到一个等级，绝不返回空
	valid := map[string]bool{"A1": true, "A2": true, "B1": true, "B2": true, "C1": true, "C2": true}

	for v := -10.0; v <= 110; v += 10 {
		for g := -10.0; g <= 110; g += 10 {
			level, _ := MapLevel(SubScores{Vocabulary: v, Grammar: g, Cohesion: (v + g) / 2})
			assert.True(t, valid[level], "unexpected level %q for v=%v g=%v", level, v, g)
		}
	}
}

func TestMapLevelMonotonic(t *testing.T) {
	// 分数整体上升时等级次序不得下降
	order := map[string]int{"A1": 1, "A2": 2, "B1": 3, "B2": 4, "C1": 5, "C2": 6}

	prevRank := 0
	for v := 0.0; v <= 100; v += 5 {
		level, _ := MapLevel(SubScores{Vocabulary: v, Grammar: v, Cohesion: v})
		rank := order[level]
		assert.GreaterOrEqual(t, rank, prevRank, "level rank regressed at score %v", v)
		prevRank = rank
	}
}
