package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"mandala-magic/internal/mandala/engine"
	"mandala-magic/internal/mandala/models"
	"mandala-magic/internal/mandala/raster"
	"mandala-magic/internal/mandala/repository"
	"mandala-magic/internal/mandala/service"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/h2non/filetype"
)

// ============================================================
// Mandala Handler
// ============================================================

type MandalaHandler struct {
	repo     *repository.Repository
	sessions *service.SessionManager
	storage  *service.FileStorage

	defaultWidth  int
	defaultHeight int
}

func NewMandalaHandler(repo *repository.Repository, sessions *service.SessionManager, storage *service.FileStorage, defaultWidth, defaultHeight int) *MandalaHandler {
	return &MandalaHandler{
		repo:          repo,
		sessions:      sessions,
		storage:       storage,
		defaultWidth:  defaultWidth,
		defaultHeight: defaultHeight,
	}
}

type createSessionRequest struct {
	Width    int              `json:"width"`
	Height   int              `json:"height"`
	Settings *models.Settings `json:"settings,omitempty"`
}

type resizeRequest struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type sessionPayload struct {
	ID        string       `json:"id"`
	CreatedAt string       `json:"created_at"`
	Stats     engine.Stats `json:"stats"`
}

// CreateSession создаёт холст; пустое тело означает размеры и настройки по умолчанию.
func (h *MandalaHandler) CreateSession(c fiber.Ctx) error {
	req := createSessionRequest{}
	if len(c.Body()) > 0 {
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
		}
	}
	if req.Width == 0 && req.Height == 0 {
		req.Width, req.Height = h.defaultWidth, h.defaultHeight
	}

	s, err := h.sessions.Create(req.Width, req.Height, req.Settings)
	if err != nil {
		return respondError(c, err)
	}
	log.Printf("[MANDALA] session %s created (%dx%d)", s.ID, req.Width, req.Height)

	return c.Status(http.StatusCreated).JSON(mapSession(s))
}

func (h *MandalaHandler) ListSessions(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"sessions": h.sessions.List()})
}

func (h *MandalaHandler) GetSession(c fiber.Ctx) error {
	s, err := h.sessions.Get(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(mapSession(s))
}

// DeleteSession удаляет сессию вместе с файлами и записями экспортов.
func (h *MandalaHandler) DeleteSession(c fiber.Ctx) error {
	id := c.Params("id")
	if !h.sessions.Delete(id) {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "session not found"})
	}

	if err := h.storage.RemoveSession(id); err != nil {
		log.Printf("[MANDALA] remove files for %s: %v", id, err)
	}
	n, err := h.repo.DeleteBySession(context.Background(), id)
	if err != nil {
		log.Printf("[MANDALA] remove exports for %s: %v", id, err)
	}
	log.Printf("[MANDALA] session %s deleted (%d exports)", id, n)

	return c.SendStatus(http.StatusNoContent)
}

// ============================================================
// Drawing
// ============================================================

// ProcessFrame принимает один кадр детектора.
func (h *MandalaHandler) ProcessFrame(c fiber.Ctx) error {
	s, err := h.sessions.Get(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	var frame models.Frame
	if err := json.Unmarshal(c.Body(), &frame); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
	}

	res, err := s.ProcessFrame(frame)
	if err != nil {
		log.Printf("[FRAMES] session %s: %v", s.ID, err)
		return respondError(c, err)
	}
	return c.JSON(res)
}

func (h *MandalaHandler) GetSettings(c fiber.Ctx) error {
	s, err := h.sessions.Get(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(s.Settings())
}

// UpdateSettings заменяет настройки целиком. Невалидные настройки отклоняются без изменений.
func (h *MandalaHandler) UpdateSettings(c fiber.Ctx) error {
	s, err := h.sessions.Get(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	var settings models.Settings
	if err := json.Unmarshal(c.Body(), &settings); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
	}
	if err := s.ApplySettings(settings); err != nil {
		return respondError(c, err)
	}
	return c.JSON(s.Settings())
}

func (h *MandalaHandler) Resize(c fiber.Ctx) error {
	s, err := h.sessions.Get(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	var req resizeRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
	}
	if err := s.Resize(req.Width, req.Height); err != nil {
		return respondError(c, err)
	}
	return c.JSON(mapSession(s))
}

func (h *MandalaHandler) Clear(c fiber.Ctx) error {
	s, err := h.sessions.Get(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	s.Clear()
	return c.JSON(mapSession(s))
}

func (h *MandalaHandler) Reset(c fiber.Ctx) error {
	s, err := h.sessions.Get(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	s.Reset()
	return c.JSON(mapSession(s))
}

// Canvas отдаёт живой растр в PNG без фона.
func (h *MandalaHandler) Canvas(c fiber.Ctx) error {
	s, err := h.sessions.Get(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	var buf bytes.Buffer
	if err := s.WriteLive(&buf); err != nil {
		return respondError(c, err)
	}
	c.Set("Content-Type", raster.FormatPNG.ContentType())
	c.Set("Cache-Control", "no-store")
	return c.Send(buf.Bytes())
}

// ============================================================
// Export
// ============================================================

// Export кодирует холст с фоном, сохраняет файл и запись о нём.
// При ошибке состояние рисования не меняется, для повтора достаточно того же запроса.
func (h *MandalaHandler) Export(c fiber.Ctx) error {
	s, err := h.sessions.Get(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	format, err := raster.ParseFormat(c.Query("format"))
	if err != nil {
		return respondError(c, err)
	}

	var buf bytes.Buffer
	width, height, err := s.Export(&buf, format)
	if err != nil {
		log.Printf("[EXPORT] encode %s for %s: %v", format, s.ID, err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "export failed"})
	}

	now := time.Now().UTC()
	filename := raster.Filename(now, format)
	path, err := h.storage.SaveExport(s.ID, filename, buf.Bytes())
	if err != nil {
		log.Printf("[EXPORT] save %s: %v", filename, err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to save export"})
	}

	rec := models.ExportRecord{
		ID:        uuid.NewString(),
		SessionID: s.ID,
		Format:    string(format),
		Filename:  filename,
		Path:      path,
		Width:     width,
		Height:    height,
		Size:      int64(buf.Len()),
		CreatedAt: now.Format(time.RFC3339Nano),
	}
	if err := h.repo.InsertExport(context.Background(), rec); err != nil {
		log.Printf("[EXPORT] record %s: %v", filename, err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to record export"})
	}

	log.Printf("[EXPORT] %s saved for session %s (%d bytes)", filename, s.ID, rec.Size)
	return c.Status(http.StatusCreated).JSON(rec)
}

func (h *MandalaHandler) ListExports(c fiber.Ctx) error {
	s, err := h.sessions.Get(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	list, err := h.repo.ListBySession(context.Background(), s.ID)
	if err != nil {
		log.Printf("[EXPORT] list for %s: %v", s.ID, err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list exports"})
	}
	return c.JSON(fiber.Map{"exports": list})
}

// DownloadExport отдаёт сохранённый файл экспорта.
func (h *MandalaHandler) DownloadExport(c fiber.Ctx) error {
	rec, err := h.repo.GetExport(context.Background(), c.Params("exportID"))
	if err != nil {
		return respondError(c, err)
	}

	c.Set("Content-Type", contentTypeOf(rec))
	c.Set("Content-Disposition", `attachment; filename="`+rec.Filename+`"`)
	return c.SendFile(rec.Path)
}

// contentTypeOf определяет тип по сигнатуре файла, иначе по формату из записи.
func contentTypeOf(rec *models.ExportRecord) string {
	kind, err := filetype.MatchFile(rec.Path)
	if err != nil || kind == filetype.Unknown {
		return raster.Format(rec.Format).ContentType()
	}
	return kind.MIME.Value
}

// ============================================================
// Helpers
// ============================================================

func mapSession(s *service.Session) sessionPayload {
	return sessionPayload{
		ID:        s.ID,
		CreatedAt: s.CreatedAt.Format(time.RFC3339),
		Stats:     s.Stats(),
	}
}

// statusOf переводит доменные ошибки в HTTP-коды.
func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrLandmarkCount),
		errors.Is(err, engine.ErrInvalidOrder),
		errors.Is(err, engine.ErrInvalidBrush),
		errors.Is(err, engine.ErrInvalidColor),
		errors.Is(err, engine.ErrInvalidSize),
		errors.Is(err, raster.ErrUnknownFormat):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func respondError(c fiber.Ctx, err error) error {
	return c.Status(statusOf(err)).JSON(fiber.Map{"error": err.Error()})
}
