package api

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/parth-patel-1/DAU-Chatbot/pkg/session"
)

const wsWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// ClientFrame is a message sent by the browser over the socket.
type ClientFrame struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

// ServerFrame carries the same events as the SSE stream.
type ServerFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// HandleWebSocket serves the chat over a websocket. Client frames are
// {"type":"chat","message":...} and {"type":"clear"}. Closing the socket
// cancels a turn in flight.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	header := http.Header{}
	sess := s.session(r, func(c *http.Cookie) { header.Add("Set-Cookie", c.String()) })

	conn, err := upgrader.Upgrade(w, r, header)
	if err != nil {
		s.Logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	var (
		writeMu sync.Mutex
		turns   sync.WaitGroup
	)
	defer func() {
		cancel()
		turns.Wait()
		conn.Close()
	}()

	emit := func(event string, data any) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		return conn.WriteJSON(ServerFrame{Event: event, Data: data})
	}
	emitError := func(msg string) {
		emit("error", map[string]string{"error": msg})
	}

	log := s.Logger.With("session", sess.ID())
	log.Debug("websocket connected")

	for {
		var frame ClientFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("websocket closed", "error", err)
			}
			return
		}

		switch frame.Type {
		case "chat":
			if strings.TrimSpace(frame.Message) == "" {
				emitError(session.ErrEmptyPrompt.Error())
				continue
			}
			turns.Add(1)
			go func(prompt string) {
				defer turns.Done()
				if err := s.streamTurn(ctx, sess, prompt, nil, emit); err != nil {
					emitError(err.Error())
				}
			}(frame.Message)
		case "clear":
			if err := sess.Clear(); err != nil {
				emitError(err.Error())
				continue
			}
			emit("cleared", nil)
		default:
			emitError("unknown frame type: " + frame.Type)
		}
	}
}
