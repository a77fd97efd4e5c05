package domain

import (
	"time"

	statedomain "soulshepherd/internal/modules/state/domain"
)

const DateLayout = "2006-01-02"

// Outcome is what a completed session earned.
type Outcome struct {
	SoulInsight  float64
	SoulEmbers   float64
	Critical     bool
	BossDefeated bool
}

// RecordCompletion folds one finished session into the lifetime counters
// and the daily streak.
func RecordCompletion(st *statedomain.StatisticsState, c Completion, o Outcome) {
	st.TotalSessions++
	st.TotalFocusTime += c.ActiveTime
	st.TotalSoulInsightEarned += o.SoulInsight
	st.TotalSoulEmbersEarned += o.SoulEmbers
	if o.BossDefeated {
		st.BossesDefeated++
	}
	if c.Compromised {
		st.CompromisedSessions++
	}
	if o.Critical {
		st.CriticalHits++
	}
	AdvanceStreak(st, c.EndedAt)
}

// AdvanceStreak counts consecutive calendar days with a completed session.
func AdvanceStreak(st *statedomain.StatisticsState, day time.Time) {
	today := day.Format(DateLayout)
	yesterday := day.AddDate(0, 0, -1).Format(DateLayout)
	switch st.LastSessionDate {
	case today:
		if st.CurrentStreak == 0 {
			st.CurrentStreak = 1
		}
	case yesterday:
		st.CurrentStreak++
	default:
		st.CurrentStreak = 1
	}
	st.LastSessionDate = today
	if st.CurrentStreak > st.LongestStreak {
		st.LongestStreak = st.CurrentStreak
	}
}
