package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/disc-herniation-assistant/internal/domain"
	"github.com/disc-herniation-assistant/internal/service"
)

const (
	maxFrameBytes      = 64 << 10
	defaultTurnTimeout = 90 * time.Second
	writeWait          = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ChatFrame is a question sent over the chat socket.
type ChatFrame struct {
	Question string `json:"question"`
}

// ChatEvent is a server frame on the chat socket. Exactly one field is set.
type ChatEvent struct {
	Transcript *service.Transcript `json:"transcript,omitempty"`
	Answer     *service.Answer     `json:"answer,omitempty"`
	Error      *domain.APIError    `json:"error,omitempty"`
}

// handleChatSocket serves a chat session over WebSocket. The transcript is
// sent first, then every question frame gets an answer or an error frame.
func (s *Server) handleChatSocket(c *gin.Context) {
	name := c.Param("name")

	// Validation and lookup failures are reported before the upgrade.
	transcript, err := s.session.Transcript(c.Request.Context(), name)
	if err != nil {
		s.writeError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.WithError(err).Warn("Chat socket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxFrameBytes)

	if err := s.writeEvent(conn, ChatEvent{Transcript: transcript}); err != nil {
		return
	}

	// The request deadline covers the upgrade only; each turn gets its own.
	base := context.WithoutCancel(c.Request.Context())
	turnTimeout := s.configManager.GetServerConfig().RequestTimeout
	if turnTimeout <= 0 {
		turnTimeout = defaultTurnTimeout
	}

	for {
		var frame ChatFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.WithError(err).Debug("Chat socket closed")
			}
			return
		}

		ctx, cancel := context.WithTimeout(base, turnTimeout)
		answer, err := s.session.SubmitChatTurn(ctx, name, frame.Question)
		cancel()

		event := ChatEvent{Answer: &answer}
		if err != nil {
			event = ChatEvent{Error: s.socketError(c, err)}
		}
		if err := s.writeEvent(conn, event); err != nil {
			return
		}
	}
}

func (s *Server) writeEvent(conn *websocket.Conn, event ChatEvent) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	if err := conn.WriteJSON(event); err != nil {
		s.logger.WithError(err).Debug("Chat socket write failed")
		return err
	}
	return nil
}

func (s *Server) socketError(c *gin.Context, err error) *domain.APIError {
	status, apiErr := s.describeError(c, err)
	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).WithField("code", apiErr.Code).Error("Chat turn failed")
	}
	return apiErr
}
