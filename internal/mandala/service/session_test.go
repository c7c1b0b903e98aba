package service

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"mandala-magic/internal/mandala/engine"
	"mandala-magic/internal/mandala/models"
	"mandala-magic/internal/mandala/raster"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collectSink struct {
	mu     sync.Mutex
	events []models.Event
}

func (s *collectSink) Publish(ev models.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func hand(tipX, tipY, pipY float64) []models.Landmark {
	lm := make([]models.Landmark, engine.HandLandmarkCount)
	lm[engine.IndexFingerTip] = models.Landmark{X: tipX, Y: tipY}
	lm[engine.IndexFingerPIP] = models.Landmark{X: tipX, Y: pipY}
	return lm
}

func TestSessionManagerLifecycle(t *testing.T) {
	m := NewSessionManager(nil, models.DefaultSettings(), 0, 0)

	a, err := m.Create(320, 240, nil)
	require.NoError(t, err)
	b, err := m.Create(100, 100, nil)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	got, err := m.Get(a.ID)
	require.NoError(t, err)
	assert.Same(t, a, got)
	assert.Len(t, m.List(), 2)

	assert.True(t, m.Delete(a.ID))
	assert.False(t, m.Delete(a.ID))

	_, err = m.Get(a.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionManagerCreateValidates(t *testing.T) {
	m := NewSessionManager(nil, models.DefaultSettings(), 0, 0)

	_, err := m.Create(0, 100, nil)
	assert.ErrorIs(t, err, engine.ErrInvalidSize)
	_, err = m.Create(1<<20, 1<<20, nil)
	assert.ErrorIs(t, err, engine.ErrInvalidSize)

	bad := models.DefaultSettings()
	bad.SymmetryOrder = 0
	_, err = m.Create(100, 100, &bad)
	assert.ErrorIs(t, err, engine.ErrInvalidOrder)
	assert.Empty(t, m.List())
}

func TestSessionManagerMaxCanvasSide(t *testing.T) {
	m := NewSessionManager(nil, models.DefaultSettings(), 0, 0)
	m.SetMaxCanvasSide(64)

	_, err := m.Create(65, 10, nil)
	assert.ErrorIs(t, err, engine.ErrInvalidSize)

	s, err := m.Create(64, 64, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, s.Resize(64, 1000), engine.ErrInvalidSize)
	require.NoError(t, s.Resize(32, 48))

	var buf bytes.Buffer
	w, h, err := s.Export(&buf, raster.FormatPNG)
	require.NoError(t, err)
	assert.Equal(t, []int{32, 48}, []int{w, h})
}

func TestSessionStampsEvents(t *testing.T) {
	sink := &collectSink{}
	m := NewSessionManager(sink, models.DefaultSettings(), 400, 300)

	s, err := m.Create(200, 200, nil)
	require.NoError(t, err)

	_, err = s.ProcessFrame(models.Frame{Hands: [][]models.Landmark{hand(0.5, 0.2, 0.4)}})
	require.NoError(t, err)

	require.Len(t, sink.events, 2)
	for _, ev := range sink.events {
		assert.Equal(t, s.ID, ev.SessionID)
	}
	assert.Equal(t, models.EventFingertip, sink.events[1].Type)
	assert.InDelta(t, 200, sink.events[1].X, 1e-9)
	assert.InDelta(t, 60, sink.events[1].Y, 1e-9)
}

func TestSessionExportAndClear(t *testing.T) {
	m := NewSessionManager(nil, models.DefaultSettings(), 0, 0)
	s, err := m.Create(120, 90, nil)
	require.NoError(t, err)

	var empty bytes.Buffer
	_, _, err = s.Export(&empty, raster.FormatPNG)
	require.NoError(t, err)

	for _, f := range []models.Frame{
		{Hands: [][]models.Landmark{hand(0.3, 0.3, 0.5)}},
		{Hands: [][]models.Landmark{hand(0.4, 0.35, 0.5)}},
	} {
		_, err := s.ProcessFrame(f)
		require.NoError(t, err)
	}

	var drawn bytes.Buffer
	w, h, err := s.Export(&drawn, raster.FormatPNG)
	require.NoError(t, err)
	assert.Equal(t, 120, w)
	assert.Equal(t, 90, h)
	assert.NotEqual(t, empty.Bytes(), drawn.Bytes())

	s.Clear()
	var cleared bytes.Buffer
	_, _, err = s.Export(&cleared, raster.FormatPNG)
	require.NoError(t, err)
	assert.Equal(t, empty.Bytes(), cleared.Bytes())
}

func TestSessionConcurrentFrames(t *testing.T) {
	m := NewSessionManager(nil, models.DefaultSettings(), 0, 0)
	s, err := m.Create(200, 200, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			x := 0.3 + float64(i)*0.02
			_, _ = s.ProcessFrame(models.Frame{Hands: [][]models.Landmark{hand(x, 0.3, 0.5)}})
		}(i)
	}
	wg.Wait()

	stats := s.Stats()
	assert.Equal(t, uint64(8), stats.Frames)
	assert.Equal(t, uint64(7), stats.Segments)
}

func TestFileStorageSaveExport(t *testing.T) {
	root := t.TempDir()
	st := NewFileStorage(root)

	path, err := st.SaveExport("s1", "../escape.png", []byte("data"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "s1", "escape.png"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))

	require.NoError(t, st.RemoveSession("s1"))
	_, err = os.Stat(st.SessionDir("s1"))
	assert.True(t, os.IsNotExist(err))
}

func TestSetDefaultsAffectsNewSessionsOnly(t *testing.T) {
	m := NewSessionManager(nil, models.DefaultSettings(), 0, 0)
	old, err := m.Create(50, 50, nil)
	require.NoError(t, err)

	next := models.DefaultSettings()
	next.SymmetryOrder = 3
	m.SetDefaults(next)

	fresh, err := m.Create(50, 50, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, fresh.Settings().SymmetryOrder)
	assert.Equal(t, 8, old.Settings().SymmetryOrder)
}
