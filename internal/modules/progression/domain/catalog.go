package domain

import (
	"fmt"

	apperrors "soulshepherd/internal/platform/errors"
)

// Boss is one StubbornSoul in the campaign.
type Boss struct {
	ID             int     `yaml:"id"`
	Name           string  `yaml:"name"`
	Backstory      string  `yaml:"backstory"`
	InitialResolve float64 `yaml:"initial_resolve"`
	UnlockLevel    int     `yaml:"unlock_level"`
}

// Catalog is the ordered, immutable boss campaign. It is safe to share
// between goroutines once built.
type Catalog struct {
	bosses []Boss
}

// NewCatalog validates bosses and freezes them in order.
func NewCatalog(bosses []Boss) (Catalog, error) {
	if len(bosses) == 0 {
		return Catalog{}, fmt.Errorf("boss catalog is empty")
	}
	seen := map[int]struct{}{}
	for idx, b := range bosses {
		if b.InitialResolve <= 0 {
			return Catalog{}, fmt.Errorf("boss %d (%s): initial resolve must be positive", idx, b.Name)
		}
		if b.UnlockLevel < 1 {
			return Catalog{}, fmt.Errorf("boss %d (%s): unlock level must be at least 1", idx, b.Name)
		}
		if _, dup := seen[b.ID]; dup {
			return Catalog{}, fmt.Errorf("boss %d (%s): duplicate id %d", idx, b.Name, b.ID)
		}
		seen[b.ID] = struct{}{}
	}
	frozen := make([]Boss, len(bosses))
	copy(frozen, bosses)
	return Catalog{bosses: frozen}, nil
}

func (c Catalog) Len() int {
	return len(c.bosses)
}

// At returns the boss at index or ErrCatalogIndex.
func (c Catalog) At(index int) (Boss, error) {
	if index < 0 || index >= len(c.bosses) {
		return Boss{}, fmt.Errorf("%w: index %d, catalog has %d bosses", apperrors.ErrCatalogIndex, index, len(c.bosses))
	}
	return c.bosses[index], nil
}

func (c Catalog) InitialResolve(index int) (float64, bool) {
	b, err := c.At(index)
	if err != nil {
		return 0, false
	}
	return b.InitialResolve, true
}

// Bosses returns a copy of the catalog entries.
func (c Catalog) Bosses() []Boss {
	out := make([]Boss, len(c.bosses))
	copy(out, c.bosses)
	return out
}
