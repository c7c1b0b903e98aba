package models

import (
	"math"

	"github.com/gogpu/gg"
)

// ============================================================
// Detector input
// ============================================================

// Landmark: нормализованная точка руки от детектора, координаты в [0,1].
type Landmark struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z,omitempty"`
}

// Frame содержит результат детектора за один кадр. Пустой Hands означает "руки нет".
type Frame struct {
	Hands     [][]Landmark `json:"hands"`
	Timestamp int64        `json:"timestamp,omitempty"`
}

// ============================================================
// Geometry primitives
// ============================================================

type PointerSample struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Active bool    `json:"active"`
}

type StrokeSegment struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Length возвращает длину отрезка.
func (s StrokeSegment) Length() float64 {
	return math.Hypot(s.X2-s.X1, s.Y2-s.Y1)
}

// Angle возвращает направление отрезка в радианах.
func (s StrokeSegment) Angle() float64 {
	return math.Atan2(s.Y2-s.Y1, s.X2-s.X1)
}

type SymmetryConfig struct {
	Order int     `json:"order"`
	CX    float64 `json:"cx"`
	CY    float64 `json:"cy"`
}

// ============================================================
// Styling
// ============================================================

type DrawStyle struct {
	Color gg.RGBA
	Width float64
	Glow  bool
}

// Brush хранит разрешённые настройки кисти, которые рендерер читает на каждом отрезке.
type Brush struct {
	Color    gg.RGBA
	Gradient bool
	Size     float64
	Glow     bool
}

// Settings описывает конфигурационную поверхность, которую выставляет внешний UI.
type Settings struct {
	Color         string `json:"color" yaml:"color"`
	GradientMode  bool   `json:"gradient_mode" yaml:"gradient_mode"`
	BrushSize     int    `json:"brush_size" yaml:"brush_size"`
	SymmetryOrder int    `json:"symmetry_order" yaml:"symmetry_order"`
	Glow          bool   `json:"glow" yaml:"glow"`
}

// DefaultSettings возвращает стартовые значения кисти.
func DefaultSettings() Settings {
	return Settings{
		Color:         "#ff6b9d",
		GradientMode:  false,
		BrushSize:     4,
		SymmetryOrder: 8,
		Glow:          true,
	}
}

// ============================================================
// Session state
// ============================================================

// SessionState хранит изменяемое состояние сессии, одно значение на весь конвейер.
type SessionState struct {
	LastPoint *PointerSample `json:"last_point,omitempty"`
	Drawing   bool           `json:"drawing"`
	Hue       float64        `json:"hue"`
}

// FrameResult описывает итог обработки одного кадра.
type FrameResult struct {
	Sample       PointerSample  `json:"sample"`
	Segment      *StrokeSegment `json:"segment,omitempty"`
	Strokes      int            `json:"strokes"`
	HandDetected bool           `json:"hand_detected"`
	Drawing      bool           `json:"drawing"`
	Hue          float64        `json:"hue"`
}
