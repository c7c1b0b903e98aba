package engine

import (
	"fmt"
	"math"

	"mandala-magic/internal/mandala/models"
)

// ============================================================
// Symmetry geometry
// ============================================================

// CenterOf возвращает конфигурацию симметрии с центром в середине поверхности.
func CenterOf(width, height, order int) models.SymmetryConfig {
	return models.SymmetryConfig{
		Order: order,
		CX:    float64(width) / 2,
		CY:    float64(height) / 2,
	}
}

// Symmetrize раскладывает отрезок на 2·order копий: для каждого поворота
// на 2π·i/order сначала повёрнутая копия, затем её отражение по x.
func Symmetrize(seg models.StrokeSegment, cfg models.SymmetryConfig) ([]models.StrokeSegment, error) {
	if cfg.Order < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidOrder, cfg.Order)
	}

	dx1, dy1 := seg.X1-cfg.CX, seg.Y1-cfg.CY
	dx2, dy2 := seg.X2-cfg.CX, seg.Y2-cfg.CY

	step := 2 * math.Pi / float64(cfg.Order)
	out := make([]models.StrokeSegment, 0, 2*cfg.Order)

	for i := 0; i < cfg.Order; i++ {
		sin, cos := math.Sincos(step * float64(i))

		rx1 := dx1*cos - dy1*sin
		ry1 := dx1*sin + dy1*cos
		rx2 := dx2*cos - dy2*sin
		ry2 := dx2*sin + dy2*cos

		out = append(out,
			models.StrokeSegment{X1: cfg.CX + rx1, Y1: cfg.CY + ry1, X2: cfg.CX + rx2, Y2: cfg.CY + ry2},
			models.StrokeSegment{X1: cfg.CX - rx1, Y1: cfg.CY + ry1, X2: cfg.CX - rx2, Y2: cfg.CY + ry2},
		)
	}

	return out, nil
}
