package service

import (
	"lingo_edu_backend/internal/model"
	"lingo_edu_backend/internal/util"
	"time"
)

// 连续打卡徽章阈值，达到后永久保留
const (
	BadgeStarter = "starter" // >= 3 天
	BadgeBronze  = "bronze"  // >= 7 天
	BadgeSilver  = "silver"  // >= 14 天
	BadgeGold    = "gold"    // >= 30 天
)

// StreakOutcome 连续打卡状态机的一次推进结果
type StreakOutcome struct {
	Streak   int
	TodayISO string
	Changed  bool
}

// AdvanceStreak 以日历日粒度推进连续评估天数。
// prevDateISO 为空表示首次评估；同日重复评估幂等不变；
// 恰好相差一天递增；间隔两天以上或日期在未来（时钟偏移）则重置为 1。
func AdvanceStreak(prevDateISO string, prevStreak int, now time.Time) StreakOutcome {
	today := now.Format(util.DateFormat)

	if prevDateISO == "" {
		return StreakOutcome{Streak: 1, TodayISO: today, Changed: true}
	}

	if prevDateISO == today {
		streak := prevStreak
		if streak <= 0 {
			streak = 1
		}
		return StreakOutcome{Streak: streak, TodayISO: today, Changed: false}
	}

	prev, err := time.ParseInLocation(util.DateFormat, prevDateISO, now.Location())
	if err != nil {
		// 脏数据按首次评估处理
		return StreakOutcome{Streak: 1, TodayISO: today, Changed: true}
	}

	yesterday := now.AddDate(0, 0, -1).Format(util.DateFormat)
	if prev.Format(util.DateFormat) == yesterday {
		return StreakOutcome{Streak: prevStreak + 1, TodayISO: today, Changed: true}
	}

	// 间隔两天以上，或时钟偏移导致的未来日期
	return StreakOutcome{Streak: 1, TodayISO: today, Changed: true}
}

// MergeBadges 按当前连续天数做幂等并集，已有徽章永不移除。
// 每次推进都会评估，无论 streak 是否变化。
func MergeBadges(existing model.BadgeList, streak int) model.BadgeList {
	merged := make(model.BadgeList, len(existing))
	copy(merged, existing)

	thresholds := []struct {
		days  int
		badge string
	}{
		{3, BadgeStarter},
		{7, BadgeBronze},
		{14, BadgeSilver},
		{30, BadgeGold},
	}

	for _, t := range thresholds {
		if streak >= t.days && !merged.Contains(t.badge) {
			merged = append(merged, t.badge)
		}
	}
	return merged
}
