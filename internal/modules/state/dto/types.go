package dto

import "soulshepherd/internal/modules/state/domain"

// Aliases let inbound adapters speak in state types without importing domain.
type (
	GameState = domain.GameState
	Settings  = domain.Settings
)

type LoadOutput struct {
	State    domain.GameState
	FirstRun bool
	// Reset is the data-loss signal: the stored document was unreadable and
	// has been archived under BackupKey.
	Reset     bool
	BackupKey string
	Repairs   []string
	Warning   string
}

// Patch replaces every non-nil top-level section of the state.
type Patch struct {
	Player      *domain.PlayerState
	Progression *domain.ProgressionState
	Statistics  *domain.StatisticsState
	Settings    *domain.Settings
}
