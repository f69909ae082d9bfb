// internal/theme/catalog.go
package theme

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
)

//go:embed themes.json
var defaultThemes []byte

// Catalog is the set of themes available to new battles, in load order.
type Catalog struct {
	mu     sync.RWMutex
	themes []Theme
	byID   map[uuid.UUID]int
}

// NewCatalog validates the themes and rejects duplicate IDs.
func NewCatalog(themes []Theme) (*Catalog, error) {
	c := &Catalog{byID: make(map[uuid.UUID]int, len(themes))}
	for _, t := range themes {
		if err := c.add(t); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ParseCatalog decodes a JSON array of theme records.
func ParseCatalog(data []byte) (*Catalog, error) {
	var themes []Theme
	if err := json.Unmarshal(data, &themes); err != nil {
		return nil, fmt.Errorf("decode theme catalog: %w", err)
	}
	return NewCatalog(themes)
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := ParseCatalog(defaultThemes)
	if err != nil {
		panic(fmt.Sprintf("embedded themes.json is broken: %v", err))
	}
	return c
}

// LoadFile reads a catalog from path, or returns the built-in one when path is empty.
func LoadFile(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read theme catalog: %w", err)
	}
	return ParseCatalog(data)
}

func (c *Catalog) add(t Theme) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if _, dup := c.byID[t.ID]; dup {
		return fmt.Errorf("%w: duplicate id %s", ErrInvalidTheme, t.ID)
	}
	c.byID[t.ID] = len(c.themes)
	c.themes = append(c.themes, t)
	return nil
}

// Add registers another theme at runtime.
func (c *Catalog) Add(t Theme) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.add(t)
}

// All returns the themes in load order.
func (c *Catalog) All() []Theme {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Theme, len(c.themes))
	copy(out, c.themes)
	return out
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.themes)
}

// ByID looks up a theme by its ID.
func (c *Catalog) ByID(id uuid.UUID) (Theme, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.byID[id]
	if !ok {
		return Theme{}, false
	}
	return c.themes[i], true
}

// ByTitle looks up a theme by title, ignoring case.
func (c *Catalog) ByTitle(title string) (Theme, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, t := range c.themes {
		if strings.EqualFold(t.Title, strings.TrimSpace(title)) {
			return t, true
		}
	}
	return Theme{}, false
}

// Random picks any theme. It returns false on an empty catalog.
func (c *Catalog) Random(rng *rand.Rand) (Theme, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.themes) == 0 {
		return Theme{}, false
	}
	return c.themes[rng.Intn(len(c.themes))], true
}
