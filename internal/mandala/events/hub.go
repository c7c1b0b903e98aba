package events

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"mandala-magic/internal/mandala/models"
	"mandala-magic/internal/mandala/service"

	"github.com/gorilla/websocket"
)

// ============================================================
// Event Hub
// ============================================================

const (
	clientBuffer = 64
	writeWait    = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type client struct {
	conn *websocket.Conn
	send chan models.Event
}

// Hub рассылает события всем подписчикам /ws/events.
// Publish не блокируется: медленный подписчик теряет сообщения.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	dropped atomic.Uint64
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

func (h *Hub) Publish(ev models.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- ev:
		default:
			h.dropped.Add(1)
		}
	}
}

// Subscribers возвращает число активных подписчиков.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped возвращает число событий, потерянных медленными подписчиками.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// ServeEvents обслуживает /ws/events.
func (h *Hub) ServeEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[EVENTS] upgrade failed: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan models.Event, clientBuffer)}
	h.add(c)
	log.Printf("[EVENTS] subscriber connected: %s", r.RemoteAddr)

	go h.writeLoop(c)

	// Читаем только ради close-фреймов.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(c)
	log.Printf("[EVENTS] subscriber gone: %s", r.RemoteAddr)
}

func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()
	for ev := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(ev); err != nil {
			log.Printf("[EVENTS] write failed: %v", err)
			h.remove(c)
			return
		}
	}
}

// ============================================================
// Frame Ingest
// ============================================================

// FrameIngest принимает кадры детектора по WebSocket для одной сессии.
type FrameIngest struct {
	sessions *service.SessionManager
}

func NewFrameIngest(sessions *service.SessionManager) *FrameIngest {
	return &FrameIngest{sessions: sessions}
}

// ServeFrames обслуживает /ws/frames?session=<id>. На каждый кадр
// отвечает FrameResult либо {"error": "..."}.
func (f *FrameIngest) ServeFrames(w http.ResponseWriter, r *http.Request) {
	session, err := f.sessions.Get(r.URL.Query().Get("session"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[FRAMES] upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	log.Printf("[FRAMES] stream opened for session %s", session.ID)

	var count int
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[FRAMES] read failed: %v", err)
			}
			break
		}

		var reply any
		var frame models.Frame
		if err := json.Unmarshal(msg, &frame); err != nil {
			reply = map[string]string{"error": "invalid frame: " + err.Error()}
		} else if res, err := session.ProcessFrame(frame); err != nil {
			reply = map[string]string{"error": err.Error()}
		} else {
			reply = res
			count++
		}

		if err := conn.WriteJSON(reply); err != nil {
			if !errors.Is(err, websocket.ErrCloseSent) {
				log.Printf("[FRAMES] write failed: %v", err)
			}
			break
		}
	}
	log.Printf("[FRAMES] stream closed for session %s after %d frames", session.ID, count)
}

// Routes собирает mux для отдельного WebSocket-листенера.
func Routes(h *Hub, f *FrameIngest) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/events", h.ServeEvents)
	mux.HandleFunc("/ws/frames", f.ServeFrames)
	return mux
}
