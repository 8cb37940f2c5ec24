// Package palette maps variety labels and predicted dates to fill colors.
package palette

import (
	"fmt"
	"maps"
	"strconv"
	"strings"
	"sync"
	"unicode/utf16"

	"github.com/Veraticus/suito/internal/model"
)

// Neutral is the fill used for parcels without a variety.
var Neutral = model.Color{R: 0xCC, G: 0xCC, B: 0xCC}

var varietyPalette = []model.Color{
	{R: 0xE5, G: 0x39, B: 0x35},
	{R: 0x1E, G: 0x88, B: 0xE5},
	{R: 0x43, G: 0xA0, B: 0x47},
	{R: 0xFB, G: 0x8C, B: 0x00},
	{R: 0x8E, G: 0x24, B: 0xAA},
	{R: 0x00, G: 0xAC, B: 0xC1},
	{R: 0xFD, G: 0xD8, B: 0x35},
	{R: 0x39, G: 0x49, B: 0xAB},
	{R: 0xD8, G: 0x1B, B: 0x60},
	{R: 0x7C, G: 0xB3, B: 0x42},
	{R: 0xF4, G: 0x51, B: 0x1E},
	{R: 0x5E, G: 0x35, B: 0xB1},
	{R: 0x03, G: 0x9B, B: 0xE5},
	{R: 0x6D, G: 0x4C, B: 0x41},
	{R: 0xC0, G: 0xCA, B: 0x33},
}

// Palette returns a copy of the fixed variety palette.
func Palette() []model.Color {
	out := make([]model.Color, len(varietyPalette))
	copy(out, varietyPalette)
	return out
}

// ColorFor resolves the fill color for a variety label. Overrides win; otherwise
// the label hashes into the fixed palette.
func ColorFor(label string, overrides map[string]model.Color) model.Color {
	if label == "" {
		return Neutral
	}
	if c, ok := overrides[label]; ok {
		return c
	}
	return varietyPalette[paletteIndex(label, len(varietyPalette))]
}

// paletteIndex hashes UTF-16 code units with h = h*31 + c in 32-bit wrapping
// arithmetic. The result depends only on the label.
func paletteIndex(label string, n int) int {
	var h int32
	for _, c := range utf16.Encode([]rune(label)) {
		h = h*31 + int32(c)
	}
	idx := int(h % int32(n))
	if idx < 0 {
		idx = -idx
	}
	return idx
}

// Assigner holds one user's per-variety color preferences.
type Assigner struct {
	overrides map[string]model.Color
	mu        sync.RWMutex
}

// NewAssigner creates an assigner seeded with overrides.
func NewAssigner(overrides map[string]model.Color) *Assigner {
	a := &Assigner{overrides: make(map[string]model.Color, len(overrides))}
	maps.Copy(a.overrides, overrides)
	return a
}

// ColorFor resolves label against the current overrides.
func (a *Assigner) ColorFor(label string) model.Color {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return ColorFor(label, a.overrides)
}

// SetOverride records a preference. The caller persists it.
func (a *Assigner) SetOverride(label string, c model.Color) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.overrides[label] = c
}

// ReplaceOverrides swaps in a freshly loaded preference map.
func (a *Assigner) ReplaceOverrides(overrides map[string]model.Color) {
	fresh := make(map[string]model.Color, len(overrides))
	maps.Copy(fresh, overrides)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.overrides = fresh
}

// Overrides returns a snapshot of the preference map.
func (a *Assigner) Overrides() map[string]model.Color {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return maps.Clone(a.overrides)
}

// ParseColor accepts "#RRGGBB", "#RGB" or "rgb(r,g,b)".
func ParseColor(s string) (model.Color, error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "#"):
		return parseHex(s[1:])
	case strings.HasPrefix(s, "rgb(") && strings.HasSuffix(s, ")"):
		parts := strings.Split(s[4:len(s)-1], ",")
		if len(parts) != 3 {
			return model.Color{}, fmt.Errorf("invalid color %q", s)
		}
		var rgb [3]uint8
		for i, p := range parts {
			v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 8)
			if err != nil {
				return model.Color{}, fmt.Errorf("invalid color %q: %w", s, err)
			}
			rgb[i] = uint8(v)
		}
		return model.Color{R: rgb[0], G: rgb[1], B: rgb[2]}, nil
	default:
		return model.Color{}, fmt.Errorf("invalid color %q", s)
	}
}

func parseHex(h string) (model.Color, error) {
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return model.Color{}, fmt.Errorf("invalid color #%s", h)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return model.Color{}, fmt.Errorf("invalid color #%s: %w", h, err)
	}
	return model.Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}
