package service

import (
	"testing"
	"time"

	"lingo_edu_backend/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestAdvanceStreak(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)
	today := "2026-03-10"

	tests := []struct {
		name            string
		prevDate        string
		prevStreak      int
		expectedStreak  int
		expectedChanged bool
	}{
		{
			name:            "first assessment starts at one",
			prevDate:        "",
			prevStreak:      0,
			expectedStreak:  1,
			expectedChanged: true,
		},
		{
			name:            "same day is idempotent",
			prevDate:        "2026-03-10",
			prevStreak:      5,
			expectedStreak:  5,
			expectedChanged: false,
		},
		{
			name:            "same day with zero streak coerces to one",
			prevDate:        "2026-03-10",
			prevStreak:      0,
			expectedStreak:  1,
			expectedChanged: false,
		},
		{
			name:            "yesterday increments",
			prevDate:        "2026-03-09",
			prevStreak:      5,
			expectedStreak:  6,
			expectedChanged: true,
		},
		{
			name:            "two day gap resets",
			prevDate:        "2026-03-08",
			prevStreak:      5,
			expectedStreak:  1,
			expectedChanged: true,
		},
		{
			name:            "long gap resets",
			prevDate:        "2026-01-01",
			prevStreak:      30,
			expectedStreak:  1,
			expectedChanged: true,
		},
		{
			name:            "future date from clock skew resets",
			prevDate:        "2026-03-12",
			prevStreak:      9,
			expectedStreak:  1,
			expectedChanged: true,
		},
		{
			name:            "unparsable stored date treated as first",
			prevDate:        "not-a-date",
			prevStreak:      4,
			expectedStreak:  1,
			expectedChanged: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := AdvanceStreak(tt.prevDate, tt.prevStreak, now)
			assert.Equal(t, tt.expectedStreak, out.Streak)
			assert.Equal(t, today, out.TodayISO)
			assert.Equal(t, tt.expectedChanged, out.Changed)
		})
	}
}

func TestAdvanceStreakAcrossMonthBoundary(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	out := AdvanceStreak("2026-02-28", 3, now)
	assert.Equal(t, 4, out.Streak)
	assert.Equal(t, "2026-03-01", out.TodayISO)
}

func TestMergeBadges(t *testing.T) {
	tests := []struct {
		name     string
		existing model.BadgeList
		streak   int
		expected model.BadgeList
	}{
		{
			name:     "below first threshold grants nothing",
			existing: model.BadgeList{},
			streak:   2,
			expected: model.BadgeList{},
		},
		{
			name:     "three days grants starter",
			existing: model.BadgeList{},
			streak:   3,
			expected: model.BadgeList{BadgeStarter},
		},
		{
			name:     "seven days grants starter and bronze",
			existing: model.BadgeList{},
			streak:   7,
			expected: model.BadgeList{BadgeStarter, BadgeBronze},
		},
		{
			name:     "thirty days grants all",
			existing: model.BadgeList{},
			streak:   30,
			expected: model.BadgeList{BadgeStarter, BadgeBronze, BadgeSilver, BadgeGold},
		},
		{
			name:     "existing badges survive a reset",
			existing: model.BadgeList{BadgeStarter, BadgeBronze},
			streak:   1,
			expected: model.BadgeList{BadgeStarter, BadgeBronze},
		},
		{
			name:     "merge is idempotent",
			existing: model.BadgeList{BadgeStarter},
			streak:   3,
			expected: model.BadgeList{BadgeStarter},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeBadges(tt.existing, tt.streak)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestMergeBadgesDoesNotMutateInput(t *testing.T) {
	existing := model.BadgeList{BadgeStarter}
	_ = MergeBadges(existing, 30)
	assert.Equal(t, model.BadgeList{BadgeStarter}, existing)
}
