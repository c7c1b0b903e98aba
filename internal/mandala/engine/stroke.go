package engine

import "mandala-magic/internal/mandala/models"

// ============================================================
// Stroke State Machine
// ============================================================

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseDrawing
)

func (p Phase) String() string {
	if p == PhaseDrawing {
		return "drawing"
	}
	return "idle"
}

// PhaseOf возвращает фазу автомата по состоянию сессии.
func PhaseOf(state *models.SessionState) Phase {
	if state.Drawing && state.LastPoint != nil {
		return PhaseDrawing
	}
	return PhaseIdle
}

// Advance продвигает автомат на один сэмпл. Отрезок выдаётся только когда
// два подряд идущих сэмпла активны, поэтому штрихи не перескакивают через разрывы.
func Advance(state *models.SessionState, sample models.PointerSample) (models.StrokeSegment, bool) {
	if !sample.Active {
		state.LastPoint = nil
		state.Drawing = false
		return models.StrokeSegment{}, false
	}

	point := sample
	if PhaseOf(state) == PhaseIdle {
		state.LastPoint = &point
		state.Drawing = true
		return models.StrokeSegment{}, false
	}

	last := state.LastPoint
	state.LastPoint = &point
	return models.StrokeSegment{X1: last.X, Y1: last.Y, X2: sample.X, Y2: sample.Y}, true
}

// ResetStroke возвращает автомат в IDLE, не трогая оттенок.
func ResetStroke(state *models.SessionState) {
	state.LastPoint = nil
	state.Drawing = false
}
