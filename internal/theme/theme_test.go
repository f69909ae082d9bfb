package theme

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	require.Equal(t, 10, c.Len())

	for _, th := range c.All() {
		assert.NoError(t, th.Validate(), th.Title)
		assert.Len(t, th.Colors(), ColorPaletteSize)
	}

	cowboys, ok := c.ByTitle("cowboys")
	require.True(t, ok)
	assert.Equal(t, []string{"🤠", "🐎", "💰"}, cowboys.ElementPalette)

	byID, ok := c.ByID(cowboys.ID)
	require.True(t, ok)
	assert.Equal(t, cowboys, byID)

	_, ok = c.ByID(uuid.New())
	assert.False(t, ok)
	_, ok = c.ByTitle("space")
	assert.False(t, ok)

	picked, ok := c.Random(rand.New(rand.NewSource(1)))
	require.True(t, ok)
	assert.NotEqual(t, uuid.Nil, picked.ID)
}

func TestColorRGB(t *testing.T) {
	rgb, err := Color("#FF9500").RGB()
	require.NoError(t, err)
	assert.Equal(t, RGB{R: 0xFF, G: 0x95, B: 0x00}, rgb)

	for _, bad := range []string{"", "FF9500", "#FF95", "#GG0000"} {
		_, err := Color(bad).RGB()
		assert.Error(t, err, bad)
	}
}

func TestDecodeValidates(t *testing.T) {
	good := `{"title":"test","id":"` + uuid.NewString() + `","colorPalette":["#000000","#111111","#222222","#333333"],"elementPalette":["a","b","c"],"backgroundColor":"#FFFFFF"}`
	th, err := Decode([]byte(good))
	require.NoError(t, err)
	assert.Equal(t, "test", th.Title)

	cases := map[string]string{
		"short palette": `{"title":"x","id":"` + uuid.NewString() + `","colorPalette":["#000000"],"elementPalette":["a","b","c"],"backgroundColor":"#FFFFFF"}`,
		"no id":         `{"title":"x","colorPalette":["#000000","#111111","#222222","#333333"],"elementPalette":["a","b","c"],"backgroundColor":"#FFFFFF"}`,
		"bad color":     `{"title":"x","id":"` + uuid.NewString() + `","colorPalette":["#000000","#111111","#222222","#333333"],"elementPalette":["a","b","c"],"backgroundColor":"white"}`,
	}
	for name, raw := range cases {
		_, err := Decode([]byte(raw))
		assert.ErrorIs(t, err, ErrInvalidTheme, name)
	}

	_, err = Decode([]byte("{"))
	assert.Error(t, err)
}

func TestNewTheme(t *testing.T) {
	th, err := New("", []Color{"#000000", "#111111", "#222222", "#333333"}, []string{"a", "b", "c"}, "#FFFFFF")
	require.NoError(t, err)
	assert.Equal(t, "Untitled", th.Title)
	assert.NotEqual(t, uuid.Nil, th.ID)
}

func TestCatalogRejectsDuplicates(t *testing.T) {
	th := Default().All()[0]
	_, err := NewCatalog([]Theme{th, th})
	assert.ErrorIs(t, err, ErrInvalidTheme)

	c, err := NewCatalog(nil)
	require.NoError(t, err)
	_, ok := c.Random(rand.New(rand.NewSource(1)))
	assert.False(t, ok)
	require.NoError(t, c.Add(th))
	assert.Error(t, c.Add(th))
}

func TestLoadFile(t *testing.T) {
	c, err := LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, 10, c.Len())

	path := filepath.Join(t.TempDir(), "themes.json")
	require.NoError(t, os.WriteFile(path, defaultThemes, 0o600))
	c, err = LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 10, c.Len())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
