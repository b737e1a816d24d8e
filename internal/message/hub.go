package message

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultSendQueueSize = 64
	defaultWriteTimeout  = 5 * time.Second
)

// Frame is the JSON payload pushed to websocket subscribers.
type Frame struct {
	Type       string `json:"type"`
	Text       string `json:"text"`
	ServerTime int64  `json:"serverTime"`
}

// Hub pushes combat text to websocket subscribers keyed by combatant id.
// Send never blocks: each subscriber has its own queue and writer goroutine,
// and a subscriber whose queue is full is disconnected.
type Hub struct {
	mu          sync.Mutex
	subscribers map[string]*subscriber

	queueSize    int
	writeTimeout time.Duration
}

type subscriber struct {
	conn    *websocket.Conn
	sendCh  chan []byte
	closeCh chan struct{}
	once    sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() {
		close(s.closeCh)
		_ = s.conn.Close()
	})
}

// NewHub creates an empty hub. Zero arguments select defaults.
func NewHub(queueSize int, writeTimeout time.Duration) *Hub {
	if queueSize <= 0 {
		queueSize = defaultSendQueueSize
	}
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &Hub{
		subscribers:  make(map[string]*subscriber),
		queueSize:    queueSize,
		writeTimeout: writeTimeout,
	}
}

// Subscribe attaches conn to combatantID, replacing any previous connection.
func (h *Hub) Subscribe(combatantID string, conn *websocket.Conn) {
	h.subscribe(combatantID, conn)
}

func (h *Hub) subscribe(combatantID string, conn *websocket.Conn) *subscriber {
	sub := &subscriber{
		conn:    conn,
		sendCh:  make(chan []byte, h.queueSize),
		closeCh: make(chan struct{}),
	}

	h.mu.Lock()
	old := h.subscribers[combatantID]
	h.subscribers[combatantID] = sub
	h.mu.Unlock()

	if old != nil {
		old.close()
	}
	go h.writePump(combatantID, sub)
	return sub
}

// Unsubscribe detaches and closes the connection of combatantID.
func (h *Hub) Unsubscribe(combatantID string) {
	h.mu.Lock()
	sub, ok := h.subscribers[combatantID]
	if ok {
		delete(h.subscribers, combatantID)
	}
	h.mu.Unlock()

	if ok {
		sub.close()
	}
}

// Subscribed reports whether combatantID has a live connection.
func (h *Hub) Subscribed(combatantID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.subscribers[combatantID]
	return ok
}

// Send implements Sink. Lines for unknown recipients are dropped.
func (h *Hub) Send(recipientID, text string) {
	h.mu.Lock()
	sub, ok := h.subscribers[recipientID]
	h.mu.Unlock()
	if !ok {
		return
	}

	data, err := json.Marshal(Frame{
		Type:       "combat_text",
		Text:       text,
		ServerTime: time.Now().UnixMilli(),
	})
	if err != nil {
		slog.Error("failed to marshal combat text", "error", err)
		return
	}

	select {
	case sub.sendCh <- data:
	default:
		slog.Warn("send queue full, disconnecting slow subscriber", "combatant", recipientID)
		h.drop(recipientID, sub)
	}
}

// drop removes sub only if it is still the current subscriber of id.
func (h *Hub) drop(id string, sub *subscriber) {
	h.mu.Lock()
	if h.subscribers[id] == sub {
		delete(h.subscribers, id)
	}
	h.mu.Unlock()
	sub.close()
}

func (h *Hub) writePump(id string, sub *subscriber) {
	for {
		select {
		case data := <-sub.sendCh:
			if err := sub.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout)); err != nil {
				h.drop(id, sub)
				return
			}
			if err := sub.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				slog.Warn("websocket write failed", "combatant", id, "error", err)
				h.drop(id, sub)
				return
			}
		case <-sub.closeCh:
			return
		}
	}
}

// Handler upgrades GET /ws?id=<combatant> and subscribes the connection.
// The read loop only exists to notice the client going away.
func (h *Hub) Handler() http.Handler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		if id == "" {
			http.Error(w, "missing id", http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("websocket upgrade failed", "error", err)
			return
		}

		sub := h.subscribe(id, conn)
		slog.Info("combat text subscriber connected", "combatant", id)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		h.drop(id, sub)
		slog.Info("combat text subscriber disconnected", "combatant", id)
	})
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := h.subscribers
	h.subscribers = make(map[string]*subscriber)
	h.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
}
