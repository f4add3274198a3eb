package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gak/gochartapi/internal/grammar"
	"github.com/gak/gochartapi/internal/logging"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are enforced by the CORS middleware configuration.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 64 << 10
)

// WSMessage is one frame of the live preview protocol.
//
// Clients send {"type":"build","id":"...","data":{definition}} and receive
// {"type":"url","id":"...","data":{URLResponse}} or {"type":"error",...}.
// A "ping" is answered with "pong".
type WSMessage struct {
	Type  string          `json:"type"`
	ID    string          `json:"id,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// handleWebSocket upgrades the connection and serves live URL previews:
// every definition the client sends is answered with its chart URL.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.With(s.logger.Warn(), logging.Component("api"), logging.ErrorField(err)).Msg("websocket upgrade failed")
		return
	}

	send := make(chan WSMessage, 16)
	done := make(chan struct{})
	go s.wsWritePump(conn, send, done)
	go s.wsReadPump(conn, send, done)
}

// wsReadPump reads definitions from the connection and queues the replies.
// It closes send when the peer goes away and stops once done is closed.
func (s *Server) wsReadPump(conn *websocket.Conn, send chan<- WSMessage, done <-chan struct{}) {
	defer close(send)
	reply := func(msg WSMessage) bool {
		select {
		case send <- msg:
			return true
		case <-done:
			return false
		}
	}

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.With(s.logger.Warn(), logging.Component("api"), logging.ErrorField(err)).Msg("websocket read failed")
			}
			return
		}

		var msg, out WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			out = WSMessage{Type: "error", Error: "invalid message: " + err.Error()}
		} else {
			switch msg.Type {
			case "build":
				out = s.buildPreview(msg)
			case "ping":
				out = WSMessage{Type: "pong", ID: msg.ID}
			default:
				out = WSMessage{Type: "error", ID: msg.ID, Error: "unknown message type " + msg.Type}
			}
		}
		if !reply(out) {
			return
		}
	}
}

// buildPreview turns a build request into a url or error reply.
func (s *Server) buildPreview(msg WSMessage) WSMessage {
	fail := func(err error) WSMessage {
		return WSMessage{Type: "error", ID: msg.ID, Error: err.Error()}
	}
	def, err := grammar.Parse(msg.Data)
	if err != nil {
		return fail(err)
	}
	c, err := s.builder.Build(def)
	if err != nil {
		return fail(err)
	}
	u, err := c.URL()
	if err != nil {
		return fail(err)
	}
	width, height := c.Size()
	data, err := json.Marshal(URLResponse{Type: c.Variant().Tag(), URL: u, Width: width, Height: height})
	if err != nil {
		return fail(err)
	}
	return WSMessage{Type: "url", ID: msg.ID, Data: data}
}

// wsWritePump writes queued replies and keepalive pings to the connection.
func (s *Server) wsWritePump(conn *websocket.Conn, send <-chan WSMessage, done chan<- struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
		close(done)
	}()

	for {
		select {
		case msg, ok := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				logging.With(s.logger.Debug(), logging.Component("api"), logging.ErrorField(err)).Msg("websocket write failed")
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
