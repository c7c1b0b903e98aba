package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/gogpu/gg"
	"golang.org/x/image/colornames"
)

// ============================================================
// Color Model
// ============================================================

const (
	HueStep            = 1.0
	GradientSaturation = 0.85
	GradientLightness  = 0.60
)

// ColorModel разрешает цвет очередного отрезка: статический или по кругу оттенков.
type ColorModel struct {
	Static   gg.RGBA
	Gradient bool
}

// Resolve возвращает цвет для текущего оттенка сессии.
func (m ColorModel) Resolve(hue float64) gg.RGBA {
	if m.Gradient {
		return gg.HSL(hue, GradientSaturation, GradientLightness)
	}
	return m.Static
}

// NextHue сдвигает оттенок на один шаг с переносом через 360.
func NextHue(hue float64) float64 {
	return math.Mod(hue+HueStep, 360)
}

// ParseColor принимает #rgb, #rrggbb, #rrggbbaa или CSS-имя цвета.
func ParseColor(s string) (gg.RGBA, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return gg.RGBA{}, fmt.Errorf("%w: empty", ErrInvalidColor)
	}

	if c, ok := colornames.Map[s]; ok {
		return gg.FromColor(c), nil
	}

	hex := strings.TrimPrefix(s, "#")
	switch len(hex) {
	case 3, 4, 6, 8:
	default:
		return gg.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	for _, r := range hex {
		if !strings.ContainsRune("0123456789abcdef", r) {
			return gg.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
		}
	}
	return gg.Hex(hex), nil
}
