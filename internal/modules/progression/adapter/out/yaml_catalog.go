package out

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"soulshepherd/internal/modules/progression/domain"
	progressionout "soulshepherd/internal/modules/progression/port/out"
)

//go:embed catalog.yaml
var builtinCatalog []byte

type catalogFile struct {
	Bosses []domain.Boss `yaml:"bosses"`
}

// YAMLCatalogSource reads the campaign from a YAML file, or from the
// built-in catalog when path is empty.
type YAMLCatalogSource struct {
	path string
}

func NewYAMLCatalogSource(path string) progressionout.CatalogSource {
	return &YAMLCatalogSource{path: path}
}

func (s *YAMLCatalogSource) Load(_ context.Context) (domain.Catalog, error) {
	payload := builtinCatalog
	origin := "built-in catalog"
	if s.path != "" {
		b, err := os.ReadFile(s.path)
		if err != nil {
			return domain.Catalog{}, fmt.Errorf("read boss catalog: %w", err)
		}
		payload = b
		origin = s.path
	}
	file := catalogFile{}
	dec := yaml.NewDecoder(bytes.NewReader(payload))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return domain.Catalog{}, fmt.Errorf("decode %s: %w", origin, err)
	}
	catalog, err := domain.NewCatalog(file.Bosses)
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("%s: %w", origin, err)
	}
	return catalog, nil
}
