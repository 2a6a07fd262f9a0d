// Package catalog holds the static registry of data sources fetched per
// analysis tier. Sources are declared in an embedded YAML file so the set can
// be reviewed and extended without touching collection code.
package catalog

import (
	_ "embed"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/insightforge/company-intel/internal/model"
)

//go:embed sources.yaml
var sourcesYAML []byte

// Group names an ordered set of sources collected together by one stage.
type Group string

const (
	GroupSite     Group = "site"     // primary website, required
	GroupPages    Group = "pages"    // optional site subpages
	GroupExtended Group = "extended" // professional / financial / news sources
	GroupCatalog  Group = "catalog"  // the universal wide fan-out set
)

// Kind is the fetch mechanism for a source.
type Kind string

const (
	KindPage   Kind = "page"   // fetch a single URL
	KindSearch Kind = "search" // run a web search query
)

// Source describes one data source: how to fetch it, the templated target,
// and whether its failure aborts the collection stage.
type Source struct {
	Name     string `yaml:"name"`
	Kind     Kind   `yaml:"kind"`
	Target   string `yaml:"target"`
	Category string `yaml:"category"`
	Required bool   `yaml:"required"`
}

// Expand fills the target template with values derived from the company
// identity. Supported tokens: {domain}, {slug}, {slug_underscore}, {handle},
// {query}.
func (s Source) Expand(id model.CompanyIdentity) string {
	r := strings.NewReplacer(
		"{domain}", id.Domain(),
		"{slug}", id.Slug(),
		"{slug_underscore}", strings.ReplaceAll(id.Slug(), "-", "_"),
		"{handle}", id.Handle(),
		"{query}", id.QueryName(),
	)
	return r.Replace(s.Target)
}

// Catalog is the parsed source registry.
type Catalog struct {
	groups map[Group][]Source
}

type sourcesFile struct {
	Site     []Source `yaml:"site"`
	Pages    []Source `yaml:"pages"`
	Extended []Source `yaml:"extended"`
	Catalog  []Source `yaml:"catalog"`
}

// Load parses the embedded source registry.
func Load() (*Catalog, error) {
	var f sourcesFile
	if err := yaml.Unmarshal(sourcesYAML, &f); err != nil {
		return nil, eris.Wrap(err, "catalog: parse sources")
	}
	c := &Catalog{groups: map[Group][]Source{
		GroupSite:     f.Site,
		GroupPages:    f.Pages,
		GroupExtended: f.Extended,
		GroupCatalog:  f.Catalog,
	}}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Group returns the declared-order source list for a group.
func (c *Catalog) Group(g Group) []Source {
	return c.groups[g]
}

func (c *Catalog) validate() error {
	seen := make(map[string]bool)
	for g, sources := range c.groups {
		if len(sources) == 0 {
			return eris.Errorf("catalog: group %s is empty", g)
		}
		for _, s := range sources {
			if s.Name == "" || s.Target == "" {
				return eris.Errorf("catalog: group %s has a source without name or target", g)
			}
			if s.Kind != KindPage && s.Kind != KindSearch {
				return eris.Errorf("catalog: source %s has unknown kind %q", s.Name, s.Kind)
			}
			if seen[s.Name] {
				return eris.Errorf("catalog: duplicate source name %s", s.Name)
			}
			seen[s.Name] = true
		}
	}
	return nil
}
