package raster

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"math"

	"mandala-magic/internal/mandala/models"

	"github.com/anthonynsimon/bild/blur"
	"github.com/gogpu/gg"
)

// ============================================================
// Canvas
// ============================================================

// GlowFactor задаёт радиус ореола в ширинах кисти.
const GlowFactor = 3.0

// DefaultMaxSide ограничивает сторону растра по умолчанию.
const DefaultMaxSide = 8192

var ErrCanvasSize = errors.New("invalid canvas size")

// Canvas хранит постоянный прозрачный растр. Каждый штрих рисуется gg в маленькую
// плитку по габаритам отрезка и накладывается поверх растра (source-over).
type Canvas struct {
	img     *image.RGBA
	maxSide int
}

func NewCanvas(width, height int) (*Canvas, error) {
	return NewCanvasWithLimit(width, height, DefaultMaxSide)
}

// NewCanvasWithLimit создаёт растр, сторона которого не превышает maxSide
// (maxSide <= 0 означает DefaultMaxSide). Ограничение действует и для Resize.
func NewCanvasWithLimit(width, height, maxSide int) (*Canvas, error) {
	if maxSide <= 0 {
		maxSide = DefaultMaxSide
	}
	if err := checkSize(width, height, maxSide); err != nil {
		return nil, err
	}
	return &Canvas{
		img:     image.NewRGBA(image.Rect(0, 0, width, height)),
		maxSide: maxSide,
	}, nil
}

func checkSize(width, height, maxSide int) error {
	if width <= 0 || height <= 0 || width > maxSide || height > maxSide {
		return fmt.Errorf("%w: %dx%d (max side %d)", ErrCanvasSize, width, height, maxSide)
	}
	return nil
}

func (c *Canvas) Width() int  { return c.img.Bounds().Dx() }
func (c *Canvas) Height() int { return c.img.Bounds().Dy() }

// Clear делает весь растр прозрачным.
func (c *Canvas) Clear() {
	clear(c.img.Pix)
}

// Resize заменяет растр новым пустым нужного размера.
func (c *Canvas) Resize(width, height int) error {
	if err := checkSize(width, height, c.maxSide); err != nil {
		return err
	}
	c.img = image.NewRGBA(image.Rect(0, 0, width, height))
	return nil
}

// Snapshot возвращает копию растра; живой растр не меняется.
func (c *Canvas) Snapshot() *image.RGBA {
	out := image.NewRGBA(c.img.Bounds())
	copy(out.Pix, c.img.Pix)
	return out
}

// StrokeSegment рисует один отрезок с круглыми концами. При включённом Glow
// под штрихом кладётся размытая копия того же цвета радиусом GlowFactor·Width.
func (c *Canvas) StrokeSegment(seg models.StrokeSegment, style models.DrawStyle) error {
	if style.Width <= 0 {
		return fmt.Errorf("invalid stroke width %v", style.Width)
	}

	glow := 0.0
	if style.Glow {
		glow = GlowFactor * style.Width
	}
	margin := style.Width/2 + 2*glow + 1

	bounds := c.tileFor(seg, margin)
	if bounds.Empty() {
		return nil
	}

	tile, err := strokeTile(seg, style, bounds)
	if err != nil {
		return err
	}

	if glow > 0 {
		halo := blur.Gaussian(tile, glow)
		draw.Draw(c.img, bounds, halo, halo.Bounds().Min, draw.Over)
	}
	draw.Draw(c.img, bounds, tile, tile.Bounds().Min, draw.Over)
	return nil
}

// ============================================================
// Tile helpers
// ============================================================

// tileFor возвращает плитку штриха, обрезанную до растра с полем margin:
// площадь плитки не зависит от того, как далеко за растр уходит отрезок.
func (c *Canvas) tileFor(seg models.StrokeSegment, margin float64) image.Rectangle {
	visible := c.img.Bounds().Inset(-int(math.Ceil(margin)))
	return tileBounds(seg, margin).Intersect(visible)
}

func tileBounds(seg models.StrokeSegment, margin float64) image.Rectangle {
	minX := math.Floor(math.Min(seg.X1, seg.X2) - margin)
	minY := math.Floor(math.Min(seg.Y1, seg.Y2) - margin)
	maxX := math.Ceil(math.Max(seg.X1, seg.X2) + margin)
	maxY := math.Ceil(math.Max(seg.Y1, seg.Y2) + margin)
	return image.Rect(int(minX), int(minY), int(maxX), int(maxY))
}

func strokeTile(seg models.StrokeSegment, style models.DrawStyle, bounds image.Rectangle) (image.Image, error) {
	dc := gg.NewContext(bounds.Dx(), bounds.Dy())
	defer func() {
		_ = dc.Close()
	}()

	ox, oy := float64(bounds.Min.X), float64(bounds.Min.Y)

	dc.SetLineCap(gg.LineCapRound)
	dc.SetLineJoin(gg.LineJoinRound)
	dc.SetLineWidth(style.Width)
	dc.SetColor(style.Color.Color())
	dc.DrawLine(seg.X1-ox, seg.Y1-oy, seg.X2-ox, seg.Y2-oy)
	if err := dc.Stroke(); err != nil {
		return nil, fmt.Errorf("stroke: %w", err)
	}
	return dc.Image(), nil
}
