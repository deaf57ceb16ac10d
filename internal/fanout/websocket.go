package fanout

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 5 * time.Second
	maxMessageSize = 512
)

// Upgrader accepts websocket connections from any origin; the service is read-only.
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// WebsocketSubscriber writes hub payloads to one websocket connection.
type WebsocketSubscriber struct {
	id   string
	conn *websocket.Conn

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// NewWebsocketSubscriber wraps conn with a fresh subscriber id.
func NewWebsocketSubscriber(conn *websocket.Conn) *WebsocketSubscriber {
	return &WebsocketSubscriber{
		id:   "ws:" + uuid.NewString(),
		conn: conn,
	}
}

func (s *WebsocketSubscriber) ID() string { return s.id }

// Send writes payload as a text frame. The write deadline is the earlier of the
// ctx deadline and writeWait from now.
func (s *WebsocketSubscriber) Send(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

// Close sends a close frame and releases the connection. Safe to call more than once.
func (s *WebsocketSubscriber) Close() error {
	s.closeOnce.Do(func() {
		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		s.writeMu.Unlock()
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}

// ReadPump discards client frames until the connection fails or the client
// closes it. Callers disconnect the subscriber when it returns.
func (s *WebsocketSubscriber) ReadPump() {
	s.conn.SetReadLimit(maxMessageSize)
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}
