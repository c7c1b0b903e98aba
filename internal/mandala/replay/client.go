package replay

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"mandala-magic/internal/mandala/models"

	"github.com/gorilla/websocket"
)

// ============================================================
// Stream Client
// ============================================================

// Client отправляет записанные кадры работающему сервису.
type Client struct {
	BaseURL string // http://host:port
	WSURL   string // ws://host:wsport
	HTTP    *http.Client
}

func NewClient(baseURL, wsURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		WSURL:   wsURL,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

type createRequest struct {
	Width    int              `json:"width"`
	Height   int              `json:"height"`
	Settings *models.Settings `json:"settings,omitempty"`
}

// CreateSession заводит сессию на сервисе и возвращает её id.
func (c *Client) CreateSession(width, height int, settings *models.Settings) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.post("/api/v1/sessions", createRequest{Width: width, Height: height, Settings: settings}, http.StatusCreated, &out); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return out.ID, nil
}

// Export просит сервис сохранить холст и возвращает запись об экспорте.
func (c *Client) Export(sessionID, format string) (models.ExportRecord, error) {
	var rec models.ExportRecord
	path := fmt.Sprintf("/api/v1/sessions/%s/export?format=%s", url.PathEscape(sessionID), url.QueryEscape(format))
	if err := c.post(path, nil, http.StatusCreated, &rec); err != nil {
		return rec, fmt.Errorf("export: %w", err)
	}
	return rec, nil
}

// Stream отправляет кадры по WebSocket и ждёт ответ на каждый.
// delay задаёт паузу между кадрами для воспроизведения в реальном темпе.
func (c *Client) Stream(sessionID string, frames []models.Frame, delay time.Duration) (Summary, error) {
	target := fmt.Sprintf("%s/ws/frames?session=%s", c.WSURL, url.QueryEscape(sessionID))
	conn, _, err := websocket.DefaultDialer.Dial(target, nil)
	if err != nil {
		return Summary{}, fmt.Errorf("dial %s: %w", target, err)
	}
	defer conn.Close()

	sum := Summary{Frames: len(frames)}
	for i, f := range frames {
		if err := conn.WriteJSON(f); err != nil {
			return sum, fmt.Errorf("send frame %d: %w", i, err)
		}
		var reply struct {
			Error string `json:"error"`
		}
		if err := conn.ReadJSON(&reply); err != nil {
			return sum, fmt.Errorf("read reply %d: %w", i, err)
		}
		if reply.Error != "" {
			log.Printf("[REPLAY] frame %d rejected: %s", i, reply.Error)
			sum.Rejected++
		}
		if delay > 0 {
			time.Sleep(delay)
		}
	}

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return sum, nil
}

func (c *Client) post(path string, body any, want int, out any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequest(http.MethodPost, c.BaseURL+path, r)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != want {
		return fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}
	return json.Unmarshal(data, out)
}
