package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/battlecards/internal/theme"
)

// LoadThemes reads every stored theme. An empty result means the embedded catalog should be used.
func LoadThemes(ctx context.Context) ([]theme.Theme, error) {
	if DB == nil {
		return nil, ErrNoDatabase
	}
	rows, err := DB.Query(ctx, `
		SELECT id, title, color_palette, element_palette, background_color
		FROM themes
		ORDER BY title
	`)
	if err != nil {
		return nil, fmt.Errorf("query themes: %w", err)
	}
	defer rows.Close()

	var out []theme.Theme
	for rows.Next() {
		var (
			t          theme.Theme
			colors     []string
			background string
		)
		if err := rows.Scan(&t.ID, &t.Title, &colors, &t.ElementPalette, &background); err != nil {
			return nil, fmt.Errorf("scan theme: %w", err)
		}
		t.BackgroundColor = theme.Color(background)
		for _, c := range colors {
			t.ColorPalette = append(t.ColorPalette, theme.Color(c))
		}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("stored theme %s: %w", t.ID, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpsertThemes stores the given themes, replacing rows with the same ID.
func UpsertThemes(ctx context.Context, themes []theme.Theme) error {
	if DB == nil {
		return ErrNoDatabase
	}
	q := `
		INSERT INTO themes (id, title, color_palette, element_palette, background_color)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			color_palette = EXCLUDED.color_palette,
			element_palette = EXCLUDED.element_palette,
			background_color = EXCLUDED.background_color
	`
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, t := range themes {
			if _, err := tx.Exec(ctx, q, t.ID, t.Title, t.Colors(), t.ElementPalette, string(t.BackgroundColor)); err != nil {
				return fmt.Errorf("upsert theme %q: %w", t.Title, err)
			}
		}
		return nil
	})
}
