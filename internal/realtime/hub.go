package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"backend-antrian-bank/internal/models"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

const (
	broadcastDelay = 50 * time.Millisecond
	writeTimeout   = 3 * time.Second
	pingInterval   = 20 * time.Second
	readTimeout    = 60 * time.Second
	maxWorkers     = 20
)

// SnapshotFunc returns the queue ordered by position.
type SnapshotFunc func(ctx context.Context) ([]models.QueueEntry, error)

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

/*
|--------------------------------------------------------------------------
| Payload
|--------------------------------------------------------------------------
*/

type QueueUpdate struct {
	Type         string              `json:"type"`
	Data         []models.QueueEntry `json:"data"`
	NowServing   []models.QueueEntry `json:"now_serving"`
	WaitingCount int                 `json:"waiting_count"`
	Timestamp    string              `json:"timestamp"`
}

/*
|--------------------------------------------------------------------------
| Client Registry
|--------------------------------------------------------------------------
*/

type client struct {
	conn      Conn
	writeMux  sync.Mutex
	closeChan chan struct{}
	closed    bool
	id        string
}

// Hub pushes the ordered queue to every connected display. Broadcasts are debounced
// so a burst of mutations costs one snapshot read.
type Hub struct {
	snapshot SnapshotFunc
	log      *zap.Logger
	delay    time.Duration

	mu            sync.RWMutex
	clients       map[Conn]*client
	clientCounter uint64

	timerMu  sync.Mutex
	timer    *time.Timer
	stopped  bool
	inflight sync.WaitGroup

	lastMu  sync.RWMutex
	lastMsg []byte
}

func NewHub(snapshot SnapshotFunc, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		snapshot: snapshot,
		log:      log.Named("realtime"),
		delay:    broadcastDelay,
		clients:  make(map[Conn]*client),
	}
}

// QueueWebSocket serves one display connection until it closes.
func (h *Hub) QueueWebSocket(c *websocket.Conn) {
	cl := h.register(c)
	defer h.unregister(c)

	h.log.Info("client connected", zap.String("client", cl.id), zap.String("remote", c.RemoteAddr().String()))

	c.SetReadDeadline(time.Now().Add(readTimeout))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(readTimeout))
	})

	go h.sendInitial(cl)
	go h.pingLoop(cl)

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure,
			) {
				h.log.Warn("unexpected close", zap.String("client", cl.id), zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(c Conn) *client {
	id := atomic.AddUint64(&h.clientCounter, 1)
	cl := &client{
		conn:      c,
		closeChan: make(chan struct{}),
		id:        fmt.Sprintf("client-%d", id),
	}

	h.mu.Lock()
	h.clients[c] = cl
	total := len(h.clients)
	h.mu.Unlock()

	h.log.Debug("client registered", zap.String("client", cl.id), zap.Int("total", total))
	return cl
}

func (h *Hub) unregister(c Conn) {
	h.mu.Lock()
	if cl, ok := h.clients[c]; ok {
		cl.markClosed()
		delete(h.clients, c)
	}
	total := len(h.clients)
	h.mu.Unlock()

	_ = c.Close()
	h.log.Debug("client unregistered", zap.Int("total", total))
}

func (cl *client) markClosed() {
	cl.writeMux.Lock()
	defer cl.writeMux.Unlock()
	if !cl.closed {
		cl.closed = true
		close(cl.closeChan)
	}
}

func (h *Hub) pingLoop(cl *client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cl.writeMux.Lock()
			if cl.closed {
				cl.writeMux.Unlock()
				return
			}
			cl.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			err := cl.conn.WriteMessage(websocket.PingMessage, nil)
			cl.writeMux.Unlock()

			if err != nil {
				h.log.Debug("ping failed", zap.String("client", cl.id), zap.Error(err))
				return
			}
		case <-cl.closeChan:
			return
		}
	}
}

/*
|--------------------------------------------------------------------------
| Broadcast Logic
|--------------------------------------------------------------------------
*/

// BroadcastQueueUpdate schedules a broadcast. Calls within the debounce window collapse into one.
func (h *Hub) BroadcastQueueUpdate() {
	h.timerMu.Lock()
	defer h.timerMu.Unlock()

	if h.stopped {
		return
	}
	if h.timer != nil {
		h.timer.Reset(h.delay)
		return
	}

	h.timer = time.AfterFunc(h.delay, func() {
		h.timerMu.Lock()
		h.timer = nil
		if h.stopped {
			h.timerMu.Unlock()
			return
		}
		h.inflight.Add(1)
		h.timerMu.Unlock()

		defer h.inflight.Done()
		h.Broadcast(context.Background())
	})
}

// Close cancels a pending broadcast, waits for one already running and disconnects
// every client. BroadcastQueueUpdate is a no-op afterwards.
func (h *Hub) Close() {
	h.timerMu.Lock()
	h.stopped = true
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
	h.timerMu.Unlock()

	h.inflight.Wait()

	h.mu.RLock()
	conns := make([]Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		h.unregister(c)
	}
	h.log.Info("realtime hub closed", zap.Int("clients", len(conns)))
}

// Broadcast sends the current snapshot to all clients now.
func (h *Hub) Broadcast(ctx context.Context) {
	message, err := h.buildMessage(ctx)
	if err != nil {
		h.log.Error("build queue update failed", zap.Error(err))
		return
	}

	h.lastMu.Lock()
	h.lastMsg = message
	h.lastMu.Unlock()

	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for _, cl := range h.clients {
		clients = append(clients, cl)
	}
	h.mu.RUnlock()

	if len(clients) == 0 {
		return
	}

	sem := make(chan struct{}, maxWorkers)
	var wg sync.WaitGroup
	for _, cl := range clients {
		wg.Add(1)
		sem <- struct{}{}
		go func(cl *client) {
			defer wg.Done()
			defer func() { <-sem }()
			h.write(cl, message)
		}(cl)
	}
	wg.Wait()
}

// sendInitial gives a new client the last broadcast, or a fresh snapshot when none was sent yet.
func (h *Hub) sendInitial(cl *client) {
	h.lastMu.RLock()
	cached := h.lastMsg
	h.lastMu.RUnlock()

	if len(cached) > 0 {
		h.write(cl, cached)
		return
	}

	message, err := h.buildMessage(context.Background())
	if err != nil {
		h.log.Error("build initial queue update failed", zap.String("client", cl.id), zap.Error(err))
		return
	}
	h.write(cl, message)
}

func (h *Hub) buildMessage(ctx context.Context) ([]byte, error) {
	entries, err := h.snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("queue snapshot: %w", err)
	}

	update := QueueUpdate{
		Type:       "queue_update",
		Data:       entries,
		NowServing: []models.QueueEntry{},
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	for _, e := range entries {
		switch e.Status {
		case models.StatusServing:
			update.NowServing = append(update.NowServing, e)
		case models.StatusWaiting:
			update.WaitingCount++
		}
	}
	return json.Marshal(update)
}

// write drops the client on the first failed write.
func (h *Hub) write(cl *client, message []byte) {
	cl.writeMux.Lock()
	if cl.closed {
		cl.writeMux.Unlock()
		return
	}

	cl.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	err := cl.conn.WriteMessage(websocket.TextMessage, message)
	cl.writeMux.Unlock()

	if err != nil {
		h.log.Debug("write failed, dropping client", zap.String("client", cl.id), zap.Error(err))
		h.unregister(cl.conn)
	}
}
