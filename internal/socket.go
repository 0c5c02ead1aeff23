package internal

import (
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"printdock.app/api/internal/uploads"
)

const (
	SOCKET_PING_EVERY    = time.Second * 30 // Ping sockets every 30 seconds
	SOCKET_PING_TIMEOUT  = time.Second * 10 // Timeout ping after 10 seconds and close socket
	SOCKET_WRITE_TIMEOUT = time.Second * 5
)

// Websocket messages always match this structure
type SocketMsg struct {
	Command string `json:"command"`
	Data    any    `json:"data"`
}

type socketClient struct {
	userID string
	conn   *websocket.Conn
	mu     sync.Mutex // gorilla allows one concurrent writer
}

func (s *socketClient) writeJSON(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(SOCKET_WRITE_TIMEOUT))
	return s.conn.WriteJSON(v)
}

func (s *socketClient) ping() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(SOCKET_PING_TIMEOUT))
}

// SocketHub keeps the open upload status sockets, keyed by a per-connection id.
type SocketHub struct {
	Logger   *logrus.Logger
	Upgrader websocket.Upgrader
	sockets  sync.Map
}

func NewSocketHub(logger *logrus.Logger, allowedOrigins []string) *SocketHub {
	hub := &SocketHub{Logger: logger}
	hub.Upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, origin)
		},
	}
	return hub
}

// PingSockets pings all connected sockets, if any fail or timeout, they are closed and deleted.
func (h *SocketHub) PingSockets() {
	ticker := time.NewTicker(SOCKET_PING_EVERY)
	defer ticker.Stop()
	for range ticker.C {
		h.sockets.Range(func(key, value any) bool {
			client := value.(*socketClient)
			if err := client.ping(); err != nil {
				h.Logger.Warnf("ping error: %s", err)
				if err := client.conn.Close(); err != nil {
					h.Logger.Errorf("ping close error: %s", err)
				}
				h.sockets.Delete(key)
			}
			return true
		})
	}
}

// HandleSocket registers conn for userID, gives the client its socket key and then reads
// until the connection closes. Clients do not send commands; reading keeps control
// frames flowing.
func (h *SocketHub) HandleSocket(userID string, conn *websocket.Conn) {
	socketKey := uuid.NewString()
	client := &socketClient{userID: userID, conn: conn}
	h.sockets.Store(socketKey, client)
	defer func() {
		conn.Close()
		h.sockets.Delete(socketKey)
	}()

	if err := client.writeJSON(&SocketMsg{Command: "websocket-key", Data: socketKey}); err != nil {
		h.Logger.Errorf("[WS] failed to send key to client: %s", err)
		return
	}
	defaultCloseHandler := conn.CloseHandler()
	conn.SetCloseHandler(func(code int, text string) error {
		h.Logger.Infof("[WS] closing conn for '%s'", socketKey)
		return defaultCloseHandler(code, text)
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.Logger.Errorf("[WS] unexpected close error: %v", err)
			}
			return
		}
	}
}

// Notify sends an upload status event to every socket userID has open.
func (h *SocketHub) Notify(userID string, ev uploads.Event) {
	msg := &SocketMsg{Command: "upload-status", Data: ev}
	h.sockets.Range(func(key, value any) bool {
		client := value.(*socketClient)
		if client.userID != userID {
			return true
		}
		if err := client.writeJSON(msg); err != nil {
			h.Logger.Warnf("[WS] status write to '%s' failed: %s", key, err)
		}
		return true
	})
}
