package engine

import (
	"fmt"

	"mandala-magic/internal/mandala/models"
)

// ============================================================
// Symmetry Renderer
// ============================================================

// Surface принимает штрихи рендерера.
type Surface interface {
	StrokeSegment(seg models.StrokeSegment, style models.DrawStyle) error
}

type Renderer struct {
	surface Surface
}

func NewRenderer(surface Surface) *Renderer {
	return &Renderer{surface: surface}
}

// Draw рисует все симметричные копии отрезка одним цветом и возвращает число штрихов.
// В режиме градиента оттенок сдвигается после отрисовки, поэтому внутри
// одного отрезка цвет стабилен, а между отрезками меняется.
func (r *Renderer) Draw(seg models.StrokeSegment, cfg models.SymmetryConfig, brush models.Brush, state *models.SessionState) (int, error) {
	copies, err := Symmetrize(seg, cfg)
	if err != nil {
		return 0, err
	}

	model := ColorModel{Static: brush.Color, Gradient: brush.Gradient}
	style := models.DrawStyle{
		Color: model.Resolve(state.Hue),
		Width: brush.Size,
		Glow:  brush.Glow,
	}

	for i, c := range copies {
		if err := r.surface.StrokeSegment(c, style); err != nil {
			return i, fmt.Errorf("stroke copy %d: %w", i, err)
		}
	}

	if brush.Gradient {
		state.Hue = NextHue(state.Hue)
	}
	return len(copies), nil
}
