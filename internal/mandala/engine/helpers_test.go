package engine

import (
	"mandala-magic/internal/mandala/models"
)

// hand собирает 21 точку, в которой заданы только кончик и средний сустав указательного.
func hand(tipX, tipY, pipY float64) []models.Landmark {
	lm := make([]models.Landmark, HandLandmarkCount)
	lm[IndexFingerTip] = models.Landmark{X: tipX, Y: tipY}
	lm[IndexFingerPIP] = models.Landmark{X: tipX, Y: pipY}
	return lm
}

func frameWith(hands ...[]models.Landmark) models.Frame {
	return models.Frame{Hands: hands}
}

type strokeCall struct {
	seg   models.StrokeSegment
	style models.DrawStyle
}

type recordingCanvas struct {
	width, height int
	calls         []strokeCall
	clears        int
}

func newRecordingCanvas(w, h int) *recordingCanvas {
	return &recordingCanvas{width: w, height: h}
}

func (c *recordingCanvas) StrokeSegment(seg models.StrokeSegment, style models.DrawStyle) error {
	c.calls = append(c.calls, strokeCall{seg: seg, style: style})
	return nil
}

func (c *recordingCanvas) Clear() {
	c.calls = nil
	c.clears++
}

func (c *recordingCanvas) Resize(w, h int) error {
	c.width, c.height = w, h
	return nil
}

func (c *recordingCanvas) Width() int  { return c.width }
func (c *recordingCanvas) Height() int { return c.height }

type recordingSink struct {
	events []models.Event
}

func (s *recordingSink) Publish(ev models.Event) {
	s.events = append(s.events, ev)
}

func (s *recordingSink) types() []models.EventType {
	out := make([]models.EventType, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev.Type)
	}
	return out
}
