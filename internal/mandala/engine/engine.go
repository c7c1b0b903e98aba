package engine

import (
	"fmt"

	"mandala-magic/internal/mandala/models"

	"github.com/gogpu/gg"
)

// ============================================================
// Engine
// ============================================================

// Canvas описывает постоянный растр, которым владеет движок.
type Canvas interface {
	Surface
	Clear()
	Resize(width, height int) error
	Width() int
	Height() int
}

// EventSink получает события для индикатора состояния.
type EventSink interface {
	Publish(ev models.Event)
}

// Stats содержит счётчики и состояние движка для снапшота сессии.
type Stats struct {
	Width        int                 `json:"width"`
	Height       int                 `json:"height"`
	Phase        string              `json:"phase"`
	HandDetected bool                `json:"hand_detected"`
	State        models.SessionState `json:"state"`
	Settings     models.Settings     `json:"settings"`
	Frames       uint64              `json:"frames"`
	Segments     uint64              `json:"segments"`
	Strokes      uint64              `json:"strokes"`
}

// Engine связывает конвейер Normalizer → автомат штриха → рендерер.
// Однопоточный: внешний планировщик кадров вызывает ProcessFrame по одному кадру,
// синхронизация остаётся на стороне вызывающего.
type Engine struct {
	canvas     Canvas
	renderer   *Renderer
	normalizer Normalizer
	sink       EventSink

	settings models.Settings
	brush    models.Brush

	state        models.SessionState
	handDetected bool

	frames   uint64
	segments uint64
	strokes  uint64
}

func New(canvas Canvas, settings models.Settings, sink EventSink) (*Engine, error) {
	if canvas.Width() <= 0 || canvas.Height() <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, canvas.Width(), canvas.Height())
	}

	e := &Engine{
		canvas:     canvas,
		renderer:   NewRenderer(canvas),
		normalizer: NewNormalizer(canvas.Width(), canvas.Height()),
		sink:       sink,
	}
	if err := e.ApplySettings(settings); err != nil {
		return nil, err
	}
	return e, nil
}

// ProcessFrame обрабатывает один кадр детектора целиком.
// Нарушение контракта детектора возвращается ошибкой, состояние при этом не меняется.
func (e *Engine) ProcessFrame(frame models.Frame) (models.FrameResult, error) {
	pointer, err := e.normalizer.Normalize(frame)
	if err != nil {
		return models.FrameResult{}, err
	}
	e.frames++

	e.emitHand(pointer)

	result := models.FrameResult{
		Sample:       pointer.Sample,
		HandDetected: pointer.HandSeen,
	}

	seg, ok := Advance(&e.state, pointer.Sample)
	if ok {
		n, err := e.renderer.Draw(seg, e.Symmetry(), e.brush, &e.state)
		e.strokes += uint64(n)
		if err != nil {
			return result, fmt.Errorf("render segment: %w", err)
		}
		e.segments++
		result.Segment = &seg
		result.Strokes = n
	}

	result.Drawing = e.state.Drawing
	result.Hue = e.state.Hue
	return result, nil
}

func (e *Engine) emitHand(p Pointer) {
	if p.HandSeen != e.handDetected {
		e.handDetected = p.HandSeen
		if p.HandSeen {
			e.publish(models.NewEvent(models.EventHandDetected, 0, 0))
		} else {
			e.publish(models.NewEvent(models.EventHandLost, 0, 0))
		}
	}
	if p.HandSeen {
		e.publish(models.NewEvent(models.EventFingertip, p.PreviewX, p.PreviewY))
	}
}

func (e *Engine) publish(ev models.Event) {
	if e.sink != nil {
		e.sink.Publish(ev)
	}
}

// ============================================================
// Configuration
// ============================================================

// ApplySettings проверяет и применяет настройки UI. При ошибке прежние настройки остаются.
func (e *Engine) ApplySettings(s models.Settings) error {
	c, err := validate(s)
	if err != nil {
		return err
	}

	e.settings = s
	e.brush = models.Brush{
		Color:    c,
		Gradient: s.GradientMode,
		Size:     float64(s.BrushSize),
		Glow:     s.Glow,
	}
	return nil
}

// ValidateSettings проверяет настройки, не применяя их.
func ValidateSettings(s models.Settings) error {
	_, err := validate(s)
	return err
}

func validate(s models.Settings) (gg.RGBA, error) {
	if s.SymmetryOrder < 1 {
		return gg.RGBA{}, fmt.Errorf("%w: got %d", ErrInvalidOrder, s.SymmetryOrder)
	}
	if s.BrushSize < 1 {
		return gg.RGBA{}, fmt.Errorf("%w: got %d", ErrInvalidBrush, s.BrushSize)
	}
	return ParseColor(s.Color)
}

func (e *Engine) Settings() models.Settings {
	return e.settings
}

// Symmetry возвращает текущий порядок и центр поверхности.
func (e *Engine) Symmetry() models.SymmetryConfig {
	return CenterOf(e.canvas.Width(), e.canvas.Height(), e.settings.SymmetryOrder)
}

// SetPreviewSize задаёт размер превью, в котором публикуется положение пальца.
func (e *Engine) SetPreviewSize(width, height int) {
	e.normalizer.PreviewWidth = float64(width)
	e.normalizer.PreviewHeight = float64(height)
}

// ============================================================
// Lifecycle
// ============================================================

// Clear стирает растр и сбрасывает штрих. Оттенок сохраняется.
func (e *Engine) Clear() {
	e.canvas.Clear()
	ResetStroke(&e.state)
}

// Reset переинициализирует движок без пересоздания: растр, состояние сессии
// (включая оттенок), флаг руки и счётчики. Настройки сохраняются.
func (e *Engine) Reset() {
	e.canvas.Clear()
	e.state = models.SessionState{}
	e.handDetected = false
	e.frames, e.segments, e.strokes = 0, 0, 0
}

// Resize пересчитывает центр, очищает растр и сбрасывает штрих. Оттенок сохраняется.
func (e *Engine) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	if err := e.canvas.Resize(width, height); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSize, err)
	}
	e.canvas.Clear()
	e.normalizer.Width = float64(width)
	e.normalizer.Height = float64(height)
	ResetStroke(&e.state)
	return nil
}

// State возвращает копию состояния сессии.
func (e *Engine) State() models.SessionState {
	s := e.state
	if s.LastPoint != nil {
		p := *s.LastPoint
		s.LastPoint = &p
	}
	return s
}

func (e *Engine) Stats() Stats {
	return Stats{
		Width:        e.canvas.Width(),
		Height:       e.canvas.Height(),
		Phase:        PhaseOf(&e.state).String(),
		HandDetected: e.handDetected,
		State:        e.State(),
		Settings:     e.settings,
		Frames:       e.frames,
		Segments:     e.segments,
		Strokes:      e.strokes,
	}
}
