package models

import "time"

// ============================================================
// Outward events
// ============================================================

type EventType string

const (
	EventHandDetected EventType = "hand_detected"
	EventHandLost     EventType = "hand_lost"
	EventFingertip    EventType = "fingertip"
)

// Event несёт сигнал для индикатора состояния. На корректность рисования не влияет.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
	X         float64   `json:"x,omitempty"`
	Y         float64   `json:"y,omitempty"`
	Timestamp int64     `json:"timestamp"`
}

// NewEvent проставляет время события в миллисекундах.
func NewEvent(t EventType, x, y float64) Event {
	return Event{Type: t, X: x, Y: y, Timestamp: time.Now().UnixMilli()}
}

// ============================================================
// Export records
// ============================================================

type ExportRecord struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	Format    string `json:"format"`
	Filename  string `json:"filename"`
	Path      string `json:"-"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Size      int64  `json:"size"`
	CreatedAt string `json:"created_at"`
}
