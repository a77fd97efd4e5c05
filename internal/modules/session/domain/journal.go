package domain

import "time"

// JournalEntry is the durable record of one completed session.
type JournalEntry struct {
	SessionID         string    `yaml:"session_id"`
	TaskID            string    `yaml:"task_id,omitempty"`
	Reason            EndReason `yaml:"reason"`
	StartedAt         time.Time `yaml:"started_at"`
	EndedAt           time.Time `yaml:"ended_at"`
	PlannedMinutes    int       `yaml:"planned_minutes"`
	RewardMinutes     float64   `yaml:"reward_minutes"`
	ActiveSeconds     float64   `yaml:"active_seconds"`
	IdleSeconds       float64   `yaml:"idle_seconds"`
	Compromised       bool      `yaml:"compromised"`
	CompromisedByIdle bool      `yaml:"compromised_by_idle"`
	Critical          bool      `yaml:"critical"`
	SoulInsight       float64   `yaml:"soul_insight"`
	SoulEmbers        float64   `yaml:"soul_embers"`
	BossProgress      float64   `yaml:"boss_progress"`
	BossName          string    `yaml:"boss_name"`
	BossDefeated      bool      `yaml:"boss_defeated"`
	LevelBefore       int       `yaml:"level_before"`
	LevelAfter        int       `yaml:"level_after"`
}
