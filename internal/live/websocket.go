// Package live pushes review-queue updates to the admin console over a
// websocket, so pending counts and queue pages update without polling
// from the browser.
package live

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/sayonsom/workpal/internal/domain"
	"github.com/sayonsom/workpal/internal/review"
	"github.com/sayonsom/workpal/internal/session"
)

const defaultPollInterval = 15 * time.Second

// Handler upgrades admin connections and streams queue state.
type Handler struct {
	svc           *review.Service
	sessions      *session.Manager
	allowedOrigin string
	isDev         bool
	pollInterval  time.Duration
}

// NewHandler creates the live handler.
func NewHandler(svc *review.Service, sessions *session.Manager, allowedOrigin string, isDev bool) *Handler {
	return &Handler{
		svc:           svc,
		sessions:      sessions,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
		pollInterval:  defaultPollInterval,
	}
}

// clientMessage is what the admin console sends.
type clientMessage struct {
	Type   string `json:"type"`
	Status string `json:"status,omitempty"`
}

// serverMessage is what the server pushes.
type serverMessage struct {
	Type    string                `json:"type"`
	Count   int                   `json:"count,omitempty"`
	Items   []domain.ReviewRecord `json:"items,omitempty"`
	Cursor  string                `json:"cursor,omitempty"`
	Message string                `json:"message,omitempty"`
}

// ServeHTTP implements http.Handler for the websocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Get(r.Context(), r)
	if err != nil || !sess.HasAccessToken() {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "session_id", sess.ID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "session_id", sess.ID)
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn := &adminConn{
		ws:    ws,
		queue: review.NewQueue(h.svc, sess.ID, domain.ReviewPending, review.DefaultPageSize),
	}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		defer cancel()
		h.readLoop(ctx, conn)
	}()

	go func() {
		defer wg.Done()
		defer cancel()
		h.pushLoop(ctx, conn)
	}()

	wg.Wait()
	slog.Info("Admin live session ended", "session_id", sess.ID)
}

type adminConn struct {
	ws *websocket.Conn

	mu    sync.Mutex
	queue *review.Queue
}

func (h *Handler) readLoop(ctx context.Context, conn *adminConn) {
	for {
		_, message, err := conn.ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client")
			} else if ctx.Err() == nil {
				slog.Warn("WebSocket read error", "error", err)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "subscribe":
			conn.mu.Lock()
			conn.queue = review.NewQueue(h.svc, h.queueSession(conn), domain.ReviewStatus(msg.Status), review.DefaultPageSize)
			queue := conn.queue
			conn.mu.Unlock()
			if err := queue.Load(ctx); err != nil {
				h.writeJSON(conn.ws, serverMessage{Type: "error", Message: "failed to load queue"})
				continue
			}
			h.pushQueue(conn, queue)
		case "load_more":
			conn.mu.Lock()
			queue := conn.queue
			conn.mu.Unlock()
			// LoadMore is a silent no-op with no cursor or while a page
			// fetch is in flight; rapid clicks cannot duplicate pages.
			if err := queue.LoadMore(ctx); err != nil {
				h.writeJSON(conn.ws, serverMessage{Type: "error", Message: "failed to load more"})
				continue
			}
			h.pushQueue(conn, queue)
		case "ping":
			h.writeJSON(conn.ws, serverMessage{Type: "pong"})
		}
	}
}

// pushLoop re-fetches the pending-count summary on an interval and pushes
// it when it changes.
func (h *Handler) pushLoop(ctx context.Context, conn *adminConn) {
	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()

	last := -1
	for {
		select {
		case <-ticker.C:
			conn.mu.Lock()
			queue := conn.queue
			conn.mu.Unlock()
			if err := queue.RefreshSummary(ctx); err != nil {
				slog.Debug("Pending count refresh failed", "error", err)
				continue
			}
			if count := queue.PendingCount(); count != last {
				last = count
				h.writeJSON(conn.ws, serverMessage{Type: "pending_count", Count: count})
			}
		case <-ctx.Done():
			return
		}
	}
}

func (h *Handler) pushQueue(conn *adminConn, queue *review.Queue) {
	h.writeJSON(conn.ws, serverMessage{
		Type:   "queue",
		Items:  queue.Items(),
		Cursor: queue.Cursor(),
	})
}

func (h *Handler) queueSession(conn *adminConn) string {
	return conn.queue.SessionID()
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" || h.allowedOrigin == "" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *Handler) writeJSON(ws *websocket.Conn, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := ws.Write(context.Background(), websocket.MessageText, data); err != nil {
		slog.Debug("WebSocket write error", "error", err)
	}
}
