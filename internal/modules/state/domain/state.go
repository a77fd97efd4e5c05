package domain

import (
	"encoding/json"
	"slices"
	"time"
)

// SchemaVersion is the version written into every persisted document.
const SchemaVersion = 1

// GameState is the single aggregate persisted per installation.
type GameState struct {
	Player      PlayerState      `json:"player"`
	Session     *SessionState    `json:"session"`
	Progression ProgressionState `json:"progression"`
	Statistics  StatisticsState  `json:"statistics"`
	Settings    Settings         `json:"settings"`
}

type Stats struct {
	Spirit   float64 `json:"spirit"`
	Harmony  float64 `json:"harmony"`
	Soulflow float64 `json:"soulflow"`
}

type PlayerState struct {
	Level                  int     `json:"level"`
	SoulInsight            float64 `json:"soulInsight"`
	SoulInsightToNextLevel float64 `json:"soulInsightToNextLevel"`
	SoulEmbers             float64 `json:"soulEmbers"`
	Stats                  Stats   `json:"stats"`
	SkillPoints            int     `json:"skillPoints"`
}

// SessionState is the in-flight focus session. IdleTime and ActiveTime are seconds.
type SessionState struct {
	ID            string    `json:"id"`
	StartTime     time.Time `json:"startTime"`
	Duration      int       `json:"duration"`
	TaskID        string    `json:"taskId"`
	IsActive      bool      `json:"isActive"`
	IsPaused      bool      `json:"isPaused"`
	IsCompromised bool      `json:"isCompromised"`
	PausedAt      time.Time `json:"pausedAt"`
	IdleTime      float64   `json:"idleTime"`
	ActiveTime    float64   `json:"activeTime"`
}

// EndTime is the planned end of the session.
func (s SessionState) EndTime() time.Time {
	return s.StartTime.Add(time.Duration(s.Duration) * time.Minute)
}

type IdleState struct {
	LastCollectionTime time.Time `json:"lastCollectionTime"`
	AccumulatedSouls   float64   `json:"accumulatedSouls"`
}

type ProgressionState struct {
	CurrentBossIndex   int       `json:"currentBossIndex"`
	CurrentBossResolve float64   `json:"currentBossResolve"`
	DefeatedBosses     BossSet   `json:"defeatedBosses"`
	IdleState          IdleState `json:"idleState"`
}

type StatisticsState struct {
	TotalSessions          int     `json:"totalSessions"`
	TotalFocusTime         float64 `json:"totalFocusTime"`
	BossesDefeated         int     `json:"bossesDefeated"`
	TotalSoulInsightEarned float64 `json:"totalSoulInsightEarned"`
	TotalSoulEmbersEarned  float64 `json:"totalSoulEmbersEarned"`
	CompromisedSessions    int     `json:"compromisedSessions"`
	CriticalHits           int     `json:"criticalHits"`
	CurrentStreak          int     `json:"currentStreak"`
	LongestStreak          int     `json:"longestStreak"`
	LastSessionDate        string  `json:"lastSessionDate"`
}

// Settings are owned by the options collaborator; the engine only reads them.
type Settings struct {
	IdleThresholdSeconds  int      `json:"idleThresholdSeconds"`
	DefaultSessionMinutes int      `json:"defaultSessionMinutes"`
	DiscouragedSites      []string `json:"discouragedSites"`
	StrictMode            bool     `json:"strictMode"`
}

// BossSet holds defeated boss ids. It encodes as a sorted JSON array.
type BossSet map[int]struct{}

func (b BossSet) Has(id int) bool {
	_, ok := b[id]
	return ok
}

func (b BossSet) IDs() []int {
	ids := make([]int, 0, len(b))
	for id := range b {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (b BossSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.IDs())
}

func (b *BossSet) UnmarshalJSON(data []byte) error {
	var ids []int
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	set := make(BossSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	*b = set
	return nil
}

// Clone returns a deep copy sharing no mutable memory with s.
func (s GameState) Clone() GameState {
	out := s
	if s.Session != nil {
		session := *s.Session
		out.Session = &session
	}
	out.Progression.DefeatedBosses = make(BossSet, len(s.Progression.DefeatedBosses))
	for id := range s.Progression.DefeatedBosses {
		out.Progression.DefeatedBosses[id] = struct{}{}
	}
	if s.Settings.DiscouragedSites != nil {
		out.Settings.DiscouragedSites = slices.Clone(s.Settings.DiscouragedSites)
	}
	return out
}

// Document is the versioned envelope written to the store.
type Document struct {
	Version int       `json:"version"`
	SavedAt time.Time `json:"savedAt"`
	State   GameState `json:"state"`
}
