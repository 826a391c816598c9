package handler

import (
	"log"
	"net/http"
	"time"

	"vanishly/backend/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allows connections from any origin. Tighten for production.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades the connection into a presence session for one
// chat. While the socket is open the user counts as present (which delays
// deletion for that chat) and receives that chat's deletion events. Closing
// the socket, cleanly or not, clears the presence flag.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	userID, ok := userIDFromRequest(c)
	if !ok {
		return
	}

	chatID := c.Query("chat_id")
	if chatID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "chat_id is required"})
		return
	}

	if err := h.Facade.SetPresence(chatID, userID, true); err != nil {
		respondError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.clearPresence(chatID, userID)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to upgrade connection"})
		return
	}

	session := &presenceSession{
		handler: h,
		chatID:  chatID,
		userID:  userID,
		conn:    conn,
	}
	session.run()
}

func (h *Handler) clearPresence(chatID, userID string) {
	if err := h.Facade.SetPresence(chatID, userID, false); err != nil {
		log.Printf("ERROR: Failed to clear presence for user %s in chat %s: %v", userID, chatID, err)
	}
}

// presenceSession pumps deletion events from Redis to the socket and
// watches the socket for closure.
type presenceSession struct {
	handler *Handler
	chatID  string
	userID  string
	conn    *websocket.Conn
}

func (s *presenceSession) run() {
	go s.writePump()
	go s.readPump()
}

// readPump discards client frames; its job is noticing disconnects. The
// deferred presence clear is what turns an abnormal close into an inactive
// presence row instead of a permanent deletion blocker.
func (s *presenceSession) readPump() {
	defer func() {
		s.conn.Close()
		s.handler.clearPresence(s.chatID, s.userID)
	}()

	s.conn.SetReadLimit(512)
	s.conn.SetReadDeadline(time.Now().Add(config.PongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(config.PongWait))
		return nil
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("error reading message: %v", err)
			}
			break
		}
	}
}

// writePump forwards the chat's deletion events and keeps the connection
// alive with pings.
func (s *presenceSession) writePump() {
	pubsub := s.handler.Storage.SubscribeDeletions(s.chatID)
	ticker := time.NewTicker(config.PingPeriod)

	defer func() {
		ticker.Stop()
		pubsub.Close()
		s.conn.Close()
	}()

	events := pubsub.Channel()
	for {
		select {
		case msg, ok := <-events:
			s.conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
