package recovery

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Level is one catalog entry: the remediation action suggested for a given
// severity and how long it is expected to take.
type Level struct {
	Level   int    `yaml:"level" json:"level"`
	Name    string `yaml:"name" json:"name"`
	Action  string `yaml:"action" json:"action"`
	Minutes int    `yaml:"minutes" json:"minutes"`
}

// Catalog maps recovery levels to their entries.
type Catalog struct {
	levels map[int]Level
}

// DefaultCatalog returns the built-in three-level catalog, mildest first.
func DefaultCatalog() *Catalog {
	return newCatalog([]Level{
		{Level: 1, Name: "Light reset", Action: "Step away from the screen, stretch, and clear your immediate workspace", Minutes: 30},
		{Level: 2, Name: "Half-day reset", Action: "Block out the rest of the day: close open loops, take a long break, and plan tomorrow at half load", Minutes: 240},
		{Level: 3, Name: "Full recovery day", Action: "Take a full day away from structured work and do only restorative activities", Minutes: 480},
	})
}

// LoadCatalog reads a catalog override from a YAML file. A missing file is
// not an error; the built-in catalog is returned. Invalid entries are
// skipped with a warning, and if nothing valid remains the built-in catalog
// is used.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultCatalog(), nil
		}
		return nil, fmt.Errorf("read recovery catalog: %w", err)
	}

	var file struct {
		Levels []Level `yaml:"levels"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse recovery catalog: %w", err)
	}

	var valid []Level
	for _, lv := range file.Levels {
		if lv.Level < 1 || strings.TrimSpace(lv.Action) == "" {
			log.Printf("[recovery] skipping invalid catalog entry (level=%d)", lv.Level)
			continue
		}
		if lv.Minutes <= 0 {
			lv.Minutes = 30
		}
		valid = append(valid, lv)
	}
	if len(valid) == 0 {
		log.Printf("[recovery] catalog %s has no valid entries, using built-in catalog", path)
		return DefaultCatalog(), nil
	}
	return newCatalog(valid), nil
}

func newCatalog(levels []Level) *Catalog {
	c := &Catalog{levels: make(map[int]Level, len(levels))}
	for _, lv := range levels {
		c.levels[lv.Level] = lv
	}
	return c
}

// Lookup returns the entry for a level, if present.
func (c *Catalog) Lookup(level int) (Level, bool) {
	lv, ok := c.levels[level]
	return lv, ok
}

// Levels lists the catalog entries in ascending level order.
func (c *Catalog) Levels() []Level {
	out := make([]Level, 0, len(c.levels))
	for _, lv := range c.levels {
		out = append(out, lv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return out
}
