package styles

import (
	"testing"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
)

func TestTruncateText(t *testing.T) {
	assert.Equal(t, "short", TruncateText("short", 10))
	assert.Equal(t, "", TruncateText("anything", 0))
	assert.Equal(t, "…", TruncateText("anything", 1))

	cut := TruncateText("The Lighthouse Keeper", 10)
	assert.LessOrEqual(t, runewidth.StringWidth(cut), 10)
	assert.Equal(t, "The Light…", cut)

	// wide runes count two cells each
	wide := TruncateText("灯台守の物語", 7)
	assert.LessOrEqual(t, runewidth.StringWidth(wide), 7)
}

func TestPadRight(t *testing.T) {
	assert.Equal(t, "ab   ", PadRight("ab", 5))
	assert.Equal(t, "abcdef", PadRight("abcdef", 3))
}

func TestNextThemeCycles(t *testing.T) {
	defer SetCurrentTheme(DarkTheme.Name)

	SetCurrentTheme(DarkTheme.Name)
	assert.Equal(t, LightTheme.Name, NextTheme())
	assert.Equal(t, LightTheme.Secondary, Secondary)

	for range len(BuiltinThemes) {
		NextTheme()
	}
	assert.Equal(t, LightTheme.Name, CurrentTheme().Name)
}

func TestGetThemeFallsBackToDark(t *testing.T) {
	assert.Equal(t, DarkTheme.Name, GetTheme("no-such-theme").Name)
	assert.Contains(t, GetThemeNames(), "nord")
}
