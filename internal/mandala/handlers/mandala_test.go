package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"mandala-magic/internal/mandala/engine"
	"mandala-magic/internal/mandala/models"
	"mandala-magic/internal/mandala/raster"
	"mandala-magic/internal/mandala/repository"
	"mandala-magic/internal/mandala/service"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	app      *fiber.App
	repo     *repository.Repository
	sessions *service.SessionManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	db, err := repository.OpenSQLite(filepath.Join(dir, "mandala.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := repository.New(db)
	require.NoError(t, repo.Init(context.Background(), "../../../migrations/001_init_mandala.sql"))

	sessions := service.NewSessionManager(nil, models.DefaultSettings(), 0, 0)
	h := NewMandalaHandler(repo, sessions, service.NewFileStorage(filepath.Join(dir, "exports")), 160, 120)

	app := fiber.New()
	Register(app, h, repo)
	return &testEnv{app: app, repo: repo, sessions: sessions}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			r = bytes.NewBufferString(b)
		default:
			data, err := json.Marshal(b)
			require.NoError(t, err)
			r = bytes.NewReader(data)
		}
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.app.Test(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func hand(tipX, tipY, pipY float64) []models.Landmark {
	lm := make([]models.Landmark, engine.HandLandmarkCount)
	lm[engine.IndexFingerTip] = models.Landmark{X: tipX, Y: tipY}
	lm[engine.IndexFingerPIP] = models.Landmark{X: tipX, Y: pipY}
	return lm
}

func (e *testEnv) createSession(t *testing.T) string {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[sessionPayload](t, resp).ID
}

func TestHealthProbes(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/health/live", "/health/ready", "/health/startup"} {
		resp := env.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("down") }

func TestReadinessUnavailable(t *testing.T) {
	app := fiber.New()
	app.Get("/health/ready", ReadinessProbe(failingPinger{}))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/v1/sessions", createSessionRequest{Width: 300, Height: 200})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[sessionPayload](t, resp)
	assert.Equal(t, 300, created.Stats.Width)
	assert.Equal(t, "idle", created.Stats.Phase)

	resp = env.do(t, http.MethodGet, "/api/v1/sessions", nil)
	list := decode[map[string][]string](t, resp)
	assert.Equal(t, []string{created.ID}, list["sessions"])

	resp = env.do(t, http.MethodGet, "/api/v1/sessions/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodDelete, "/api/v1/sessions/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/v1/sessions/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = env.do(t, http.MethodDelete, "/api/v1/sessions/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateSessionDefaultsAndValidation(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	s := decode[sessionPayload](t, resp)
	assert.Equal(t, 160, s.Stats.Width)
	assert.Equal(t, 120, s.Stats.Height)
	assert.Equal(t, models.DefaultSettings(), s.Stats.Settings)

	resp = env.do(t, http.MethodPost, "/api/v1/sessions", createSessionRequest{Width: -1, Height: 10})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/v1/sessions", createSessionRequest{Width: 1 << 20, Height: 1 << 20})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/v1/sessions", "{oops")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFramesDrawAndReport(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)
	path := "/api/v1/sessions/" + id + "/frames"

	resp := env.do(t, http.MethodPost, path, models.Frame{Hands: [][]models.Landmark{hand(0.3, 0.3, 0.5)}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := decode[models.FrameResult](t, resp)
	assert.True(t, first.Drawing)
	assert.Nil(t, first.Segment)

	resp = env.do(t, http.MethodPost, path, models.Frame{Hands: [][]models.Landmark{hand(0.35, 0.3, 0.5)}})
	second := decode[models.FrameResult](t, resp)
	require.NotNil(t, second.Segment)
	assert.Equal(t, 16, second.Strokes)

	resp = env.do(t, http.MethodPost, path, models.Frame{})
	lost := decode[models.FrameResult](t, resp)
	assert.False(t, lost.HandDetected)
	assert.False(t, lost.Drawing)

	resp = env.do(t, http.MethodPost, path, models.Frame{Hands: [][]models.Landmark{{{X: 0.5}}}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/v1/sessions/missing/frames", models.Frame{})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSettingsReplaceAndReject(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)
	path := "/api/v1/sessions/" + id + "/settings"

	next := models.Settings{Color: "#00ffaa", GradientMode: true, BrushSize: 10, SymmetryOrder: 6, Glow: false}
	resp := env.do(t, http.MethodPut, path, next)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, next, decode[models.Settings](t, resp))

	bad := next
	bad.SymmetryOrder = 0
	resp = env.do(t, http.MethodPut, path, bad)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	bad = next
	bad.Color = "not-a-color"
	resp = env.do(t, http.MethodPut, path, bad)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodGet, path, nil)
	assert.Equal(t, next, decode[models.Settings](t, resp))
}

func TestResizeClearReset(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)
	base := "/api/v1/sessions/" + id

	env.do(t, http.MethodPost, base+"/frames", models.Frame{Hands: [][]models.Landmark{hand(0.3, 0.3, 0.5)}})

	resp := env.do(t, http.MethodPost, base+"/resize", resizeRequest{Width: 400, Height: 300})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	s := decode[sessionPayload](t, resp)
	assert.Equal(t, 400, s.Stats.Width)
	assert.Equal(t, "idle", s.Stats.Phase)

	resp = env.do(t, http.MethodPost, base+"/resize", resizeRequest{Width: 0, Height: 300})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, base+"/resize", resizeRequest{Width: 1 << 20, Height: 300})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, base+"/clear", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodPost, base+"/reset", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	s = decode[sessionPayload](t, resp)
	assert.Equal(t, uint64(0), s.Stats.Frames)
}

func TestCanvasIsPNG(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)

	resp := env.do(t, http.MethodGet, "/api/v1/sessions/"+id+"/canvas", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))
}

func TestExportRecordAndDownload(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)
	base := "/api/v1/sessions/" + id

	resp := env.do(t, http.MethodPost, base+"/export?format=jpg", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	rec := decode[models.ExportRecord](t, resp)
	assert.Equal(t, "jpeg", rec.Format)
	assert.Equal(t, 160, rec.Width)
	assert.Regexp(t, `^mandala-\d+\.jpg$`, rec.Filename)
	assert.Positive(t, rec.Size)

	resp = env.do(t, http.MethodGet, base+"/exports", nil)
	list := decode[map[string][]models.ExportRecord](t, resp)
	require.Len(t, list["exports"], 1)
	assert.Equal(t, rec.ID, list["exports"][0].ID)

	resp = env.do(t, http.MethodGet, "/api/v1/exports/"+rec.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, rec.Size, int64(len(data)))

	resp = env.do(t, http.MethodGet, "/api/v1/exports/unknown", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, http.MethodPost, base+"/export?format=gif", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	env.do(t, http.MethodDelete, base, nil)
	stored, err := env.repo.ListBySession(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestContentTypeFallsBackToFormat(t *testing.T) {
	rec := &models.ExportRecord{Format: "tiff", Path: filepath.Join(t.TempDir(), "missing.tiff")}
	assert.Equal(t, "image/tiff", contentTypeOf(rec))
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusOf(service.ErrSessionNotFound))
	assert.Equal(t, http.StatusNotFound, statusOf(repository.ErrNotFound))
	assert.Equal(t, http.StatusBadRequest, statusOf(raster.ErrUnknownFormat))
	assert.Equal(t, http.StatusBadRequest, statusOf(engine.ErrLandmarkCount))
	assert.Equal(t, http.StatusInternalServerError, statusOf(errors.New("boom")))
}
