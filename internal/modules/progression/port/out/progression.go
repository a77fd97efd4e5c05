package out

import (
	"context"

	"soulshepherd/internal/modules/progression/domain"
)

// CatalogSource loads the boss campaign once at startup.
type CatalogSource interface {
	Load(ctx context.Context) (domain.Catalog, error)
}
