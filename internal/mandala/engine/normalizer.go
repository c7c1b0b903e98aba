package engine

import (
	"fmt"
	"math"

	"mandala-magic/internal/mandala/models"
)

// ============================================================
// Pointer Signal Normalizer
// ============================================================

const (
	HandLandmarkCount = 21
	IndexFingerTip    = 8
	IndexFingerPIP    = 6

	DefaultPreviewWidth  = 200
	DefaultPreviewHeight = 150

	// OffFrameSlack: насколько кончик пальца может выйти за [0,1] и ещё считаться рукой.
	OffFrameSlack = 0.25
)

// Pointer хранит результат нормализации одного кадра.
type Pointer struct {
	Sample   models.PointerSample
	HandSeen bool
	// PreviewX/PreviewY: кончик пальца в координатах превью, без зеркалирования.
	PreviewX float64
	PreviewY float64
}

type Normalizer struct {
	Width         float64
	Height        float64
	PreviewWidth  float64
	PreviewHeight float64
}

func NewNormalizer(width, height int) Normalizer {
	return Normalizer{
		Width:         float64(width),
		Height:        float64(height),
		PreviewWidth:  DefaultPreviewWidth,
		PreviewHeight: DefaultPreviewHeight,
	}
}

// Normalize превращает выход детектора в PointerSample в пикселях поверхности.
// Берётся только первая рука. Палец считается поднятым при tip.y < pip.y,
// без сглаживания: дребезг на пороге допускается.
func (n Normalizer) Normalize(frame models.Frame) (Pointer, error) {
	if len(frame.Hands) == 0 || len(frame.Hands[0]) == 0 {
		return Pointer{}, nil
	}

	hand := frame.Hands[0]
	if len(hand) != HandLandmarkCount {
		return Pointer{}, fmt.Errorf("%w: got %d, want %d", ErrLandmarkCount, len(hand), HandLandmarkCount)
	}

	tip := hand[IndexFingerTip]
	pip := hand[IndexFingerPIP]
	if !finite(tip.X, tip.Y, pip.Y) || !nearFrame(tip) {
		return Pointer{}, nil
	}

	return Pointer{
		Sample: models.PointerSample{
			X:      (1 - tip.X) * n.Width,
			Y:      tip.Y * n.Height,
			Active: tip.Y < pip.Y,
		},
		HandSeen: true,
		PreviewX: tip.X * n.PreviewWidth,
		PreviewY: tip.Y * n.PreviewHeight,
	}, nil
}

// nearFrame допускает выход кончика за кадр не дальше чем на OffFrameSlack.
func nearFrame(tip models.Landmark) bool {
	return tip.X >= -OffFrameSlack && tip.X <= 1+OffFrameSlack &&
		tip.Y >= -OffFrameSlack && tip.Y <= 1+OffFrameSlack
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
