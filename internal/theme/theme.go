// internal/theme/theme.go
package theme

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	ColorPaletteSize   = 4
	ElementPaletteSize = 3
)

// ErrInvalidTheme indicates a theme record failed validation.
var ErrInvalidTheme = errors.New("invalid theme")

// Color is a "#RRGGBB" hex string.
type Color string

// RGB is a decoded color.
type RGB struct {
	R, G, B uint8
}

// RGB parses the hex color.
func (c Color) RGB() (RGB, error) {
	var rgb RGB
	s := string(c)
	if len(s) != 7 || s[0] != '#' {
		return rgb, fmt.Errorf("color %q: want #RRGGBB", s)
	}
	if _, err := fmt.Sscanf(s[1:], "%02x%02x%02x", &rgb.R, &rgb.G, &rgb.B); err != nil {
		return rgb, fmt.Errorf("color %q: %w", s, err)
	}
	return rgb, nil
}

// Theme is a named palette used to skin a deck. It carries no gameplay semantics.
type Theme struct {
	Title           string    `json:"title"`
	ID              uuid.UUID `json:"id"`
	ColorPalette    []Color   `json:"colorPalette"`
	ElementPalette  []string  `json:"elementPalette"`
	BackgroundColor Color     `json:"backgroundColor"`
}

// New builds a theme with a fresh ID. The result is validated.
func New(title string, colors []Color, elements []string, background Color) (Theme, error) {
	if title == "" {
		title = "Untitled"
	}
	t := Theme{
		Title:           title,
		ID:              uuid.New(),
		ColorPalette:    colors,
		ElementPalette:  elements,
		BackgroundColor: background,
	}
	return t, t.Validate()
}

// Validate checks palette sizes and colors.
func (t Theme) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("%w: missing title", ErrInvalidTheme)
	}
	if t.ID == uuid.Nil {
		return fmt.Errorf("%w: %s: missing id", ErrInvalidTheme, t.Title)
	}
	if len(t.ColorPalette) != ColorPaletteSize {
		return fmt.Errorf("%w: %s: want %d colors, got %d", ErrInvalidTheme, t.Title, ColorPaletteSize, len(t.ColorPalette))
	}
	if len(t.ElementPalette) != ElementPaletteSize {
		return fmt.Errorf("%w: %s: want %d elements, got %d", ErrInvalidTheme, t.Title, ElementPaletteSize, len(t.ElementPalette))
	}
	for _, e := range t.ElementPalette {
		if e == "" {
			return fmt.Errorf("%w: %s: empty element", ErrInvalidTheme, t.Title)
		}
	}
	for _, c := range append([]Color{t.BackgroundColor}, t.ColorPalette...) {
		if _, err := c.RGB(); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidTheme, t.Title, err)
		}
	}
	return nil
}

// Colors returns the palette as plain strings for a dealer.
func (t Theme) Colors() []string {
	out := make([]string, len(t.ColorPalette))
	for i, c := range t.ColorPalette {
		out[i] = string(c)
	}
	return out
}

// Decode parses and validates a single theme record.
func Decode(data []byte) (Theme, error) {
	var t Theme
	if err := json.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("decode theme: %w", err)
	}
	return t, t.Validate()
}
