package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/canvashq/canvas-agent/internal/canvas"
)

// Catalog is the editable option catalog baked into new cards: the
// entity tag list and the shared select options. Loaded from a YAML
// file; values support ${VAR} environment expansion.
type Catalog struct {
	EntityTags    []string `yaml:"entity_tags"`
	SelectOptions []string `yaml:"select_options"`
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() Catalog {
	return Catalog{
		EntityTags:    append([]string(nil), canvas.DefaultTagCatalog...),
		SelectOptions: append([]string(nil), canvas.Field2Options...),
	}
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// LoadCatalog reads the catalog file at path. An empty path returns
// the defaults; a missing file is an error so typos in CATALOG_PATH
// surface at startup.
func LoadCatalog(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("reading catalog: %w", err)
	}
	expanded := envVarPattern.ReplaceAllStringFunc(string(b), func(m string) string {
		name := envVarPattern.FindStringSubmatch(m)[1]
		return os.Getenv(name)
	})

	cat := DefaultCatalog()
	if err := yaml.Unmarshal([]byte(expanded), &cat); err != nil {
		return Catalog{}, fmt.Errorf("parsing catalog: %w", err)
	}
	if len(cat.EntityTags) == 0 {
		cat.EntityTags = DefaultCatalog().EntityTags
	}
	if len(cat.SelectOptions) == 0 {
		cat.SelectOptions = DefaultCatalog().SelectOptions
	}
	return cat, nil
}
