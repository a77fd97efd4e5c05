package usecase

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"soulshepherd/internal/modules/state/domain"
	apperrors "soulshepherd/internal/platform/errors"
)

// decode parses a stored document section by section. Sections that are
// missing or mistyped keep their defaults and are reported as repairs; only a
// document without a readable envelope is corrupt.
func decode(raw []byte, bosses domain.ResolveTable, now time.Time) (domain.GameState, []string, error) {
	envelope := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return domain.GameState{}, nil, fmt.Errorf("%w: %w", apperrors.ErrStateCorruption, err)
	}

	repairs := []string{}
	version := 0
	if v, ok := envelope["version"]; ok {
		if err := json.Unmarshal(v, &version); err != nil {
			repairs = append(repairs, "version: unreadable")
		}
	}

	stateRaw, ok := envelope["state"]
	if !ok || isNull(stateRaw) {
		return domain.GameState{}, nil, fmt.Errorf("%w: document has no state", apperrors.ErrStateCorruption)
	}
	stateRaw, note := migrate(version, stateRaw)
	if note != "" {
		repairs = append(repairs, note)
	}

	sections := map[string]json.RawMessage{}
	if err := json.Unmarshal(stateRaw, &sections); err != nil {
		return domain.GameState{}, nil, fmt.Errorf("%w: %w", apperrors.ErrStateCorruption, err)
	}

	state := domain.Default(bosses, now)
	section := func(name string, target any) {
		body, ok := sections[name]
		if !ok || isNull(body) {
			repairs = append(repairs, name+": missing, defaulted")
			return
		}
		if err := json.Unmarshal(body, target); err != nil {
			repairs = append(repairs, fmt.Sprintf("%s: %v", name, err))
		}
	}
	section("player", &state.Player)
	section("progression", &state.Progression)
	section("statistics", &state.Statistics)
	section("settings", &state.Settings)
	if body, ok := sections["session"]; ok && !isNull(body) {
		session := &domain.SessionState{}
		if err := json.Unmarshal(body, session); err != nil {
			repairs = append(repairs, fmt.Sprintf("session: %v, dropped", err))
		} else {
			state.Session = session
		}
	}

	repairs = append(repairs, domain.Repair(&state, bosses)...)
	return state, repairs, nil
}

// migrate upgrades older document layouts to SchemaVersion.
func migrate(version int, state json.RawMessage) (json.RawMessage, string) {
	switch {
	case version == domain.SchemaVersion:
		return state, ""
	case version > domain.SchemaVersion:
		return state, fmt.Sprintf("version: %d is newer than %d, reading best effort", version, domain.SchemaVersion)
	default:
		// Version 0 documents share the version 1 layout.
		return state, fmt.Sprintf("version: %d -> %d", version, domain.SchemaVersion)
	}
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
