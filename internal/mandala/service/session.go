package service

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"mandala-magic/internal/mandala/engine"
	"mandala-magic/internal/mandala/models"
	"mandala-magic/internal/mandala/raster"

	"github.com/google/uuid"
)

// ============================================================
// Session
// ============================================================

var ErrSessionNotFound = errors.New("session not found")

// Session объединяет один холст и движок. Мьютекс сессии играет роль внешнего
// планировщика кадров: движок внутри ничего не блокирует.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu     sync.Mutex
	engine *engine.Engine
	canvas *raster.Canvas
}

func (s *Session) ProcessFrame(frame models.Frame) (models.FrameResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.ProcessFrame(frame)
}

func (s *Session) ApplySettings(settings models.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.ApplySettings(settings)
}

func (s *Session) Settings() models.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Settings()
}

func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.Clear()
}

func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.Reset()
}

func (s *Session) Resize(width, height int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Resize(width, height)
}

func (s *Session) Stats() engine.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Stats()
}

// Export кодирует холст с фоном. Ошибка экспорта не влияет на рисование.
func (s *Session) Export(w io.Writer, f raster.Format) (width, height int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canvas.Width(), s.canvas.Height(), raster.Export(w, s.canvas, f)
}

// WriteLive отдаёт живой растр без фона.
func (s *Session) WriteLive(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return raster.EncodeLive(w, s.canvas)
}

// ============================================================
// Session Manager
// ============================================================

type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	sink          engine.EventSink
	defaults      models.Settings
	previewWidth  int
	previewHeight int
	maxSide       int
}

func NewSessionManager(sink engine.EventSink, defaults models.Settings, previewWidth, previewHeight int) *SessionManager {
	return &SessionManager{
		sessions:      make(map[string]*Session),
		sink:          sink,
		defaults:      defaults,
		previewWidth:  previewWidth,
		previewHeight: previewHeight,
	}
}

// Create выдаёт новую сессию; settings == nil означает настройки по умолчанию.
func (m *SessionManager) Create(width, height int, settings *models.Settings) (*Session, error) {
	m.mu.RLock()
	s := m.defaults
	maxSide := m.maxSide
	m.mu.RUnlock()

	canvas, err := raster.NewCanvasWithLimit(width, height, maxSide)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", engine.ErrInvalidSize, err)
	}
	if settings != nil {
		s = *settings
	}

	id := uuid.NewString()
	var sink engine.EventSink
	if m.sink != nil {
		sink = sessionSink{id: id, next: m.sink}
	}

	eng, err := engine.New(canvas, s, sink)
	if err != nil {
		return nil, err
	}
	if m.previewWidth > 0 && m.previewHeight > 0 {
		eng.SetPreviewSize(m.previewWidth, m.previewHeight)
	}

	session := &Session{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		engine:    eng,
		canvas:    canvas,
	}

	m.mu.Lock()
	m.sessions[id] = session
	m.mu.Unlock()
	return session, nil
}

// SetDefaults меняет настройки для новых сессий; существующие не затрагиваются.
func (m *SessionManager) SetDefaults(settings models.Settings) {
	m.mu.Lock()
	m.defaults = settings
	m.mu.Unlock()
}

// SetMaxCanvasSide ограничивает сторону холста новых сессий; n <= 0 возвращает предел по умолчанию.
func (m *SessionManager) SetMaxCanvasSide(n int) {
	m.mu.Lock()
	m.maxSide = n
	m.mu.Unlock()
}

func (m *SessionManager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

func (m *SessionManager) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return false
	}
	delete(m.sessions, id)
	return true
}

// List возвращает идентификаторы сессий в отсортированном виде.
func (m *SessionManager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type sessionSink struct {
	id   string
	next engine.EventSink
}

func (s sessionSink) Publish(ev models.Event) {
	ev.SessionID = s.id
	s.next.Publish(ev)
}
