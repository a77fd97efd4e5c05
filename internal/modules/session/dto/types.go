package dto

import (
	"time"

	progressiondto "soulshepherd/internal/modules/progression/dto"
	"soulshepherd/internal/modules/session/domain"
)

type JournalEntry = domain.JournalEntry

type StartInput struct {
	DurationMinutes int
	TaskID          string
}

type StartOutput struct {
	SessionID       string
	TaskID          string
	StartedAt       time.Time
	EndsAt          time.Time
	DurationMinutes int
	// IdleEmbers were collected for the idle span that ended with this start.
	IdleEmbers float64
	Warning    string
}

type SessionOutput struct {
	SessionID       string
	TaskID          string
	StartedAt       time.Time
	EndsAt          time.Time
	DurationMinutes int
	IsPaused        bool
	IsCompromised   bool
	IdleSeconds     float64
	ActiveSeconds   float64
	Remaining       time.Duration
	Warning         string
}

// SessionResult is what a completed session produced. Times are seconds.
type SessionResult struct {
	SoulInsight    float64
	SoulEmbers     float64
	BossProgress   float64
	WasCritical    bool
	WasCompromised bool
	IdleTime       float64
	ActiveTime     float64
}

type EndOutput struct {
	SessionID         string
	TaskID            string
	Reason            string
	StartedAt         time.Time
	EndedAt           time.Time
	RewardMinutes     float64
	Early             bool
	LateBy            time.Duration
	CompromisedByIdle bool
	Result            SessionResult
	Experience        progressiondto.ExperienceOutput
	Boss              progressiondto.DamageOutput
	CurrentStreak     int
	JournalPath       string
	Warning           string
}
