package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/adr-causality-server/internal/domain"
	"github.com/adr-causality-server/internal/middleware"
)

const (
	liveWriteWait    = 10 * time.Second
	livePongWait     = 60 * time.Second
	liveMaxFrameSize = 1 << 20
)

// LiveMessage is sent for every case frame received on the live socket.
// Clients re-send the case as the form is edited and render the preview.
type LiveMessage struct {
	Sequence int                 `json:"sequence"`
	Result   *AssessmentResponse `json:"result,omitempty"`
	Error    *BatchItemError     `json:"error,omitempty"`
}

func (s *Server) upgrader() websocket.Upgrader {
	allowed := s.cfg.Server.AllowedOrigins
	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, o := range allowed {
				if o == "*" || o == origin {
					return true
				}
			}
			return false
		},
	}
}

// handleLive handles GET /api/v1/assessments/live. Each text frame holds a
// case; each reply holds the suggestion or the validation failure for it.
func (s *Server) handleLive(c *gin.Context) {
	up := s.upgrader()
	conn, err := up.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.WithError(err).Warn("Live preview upgrade failed")
		return
	}
	defer conn.Close()

	logger := s.logger.WithField("correlation_id", c.GetString(middleware.CorrelationIDKey))
	logger.Debug("Live preview connected")

	conn.SetReadLimit(liveMaxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(livePongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(livePongWait))
	})

	ctx := c.Request.Context()
	for seq := 1; ; seq++ {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.WithError(err).Warn("Live preview closed unexpectedly")
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(livePongWait))

		msg := LiveMessage{Sequence: seq}
		var cs domain.Case
		if err := json.Unmarshal(data, &cs); err != nil {
			msg.Error = &BatchItemError{Code: domain.ErrInvalidInput, Message: "malformed case JSON"}
		} else if suggestion, err := s.assessor.Assess(ctx, &cs); err != nil {
			var ve *domain.ValidationError
			if errors.As(err, &ve) {
				msg.Error = &BatchItemError{Code: domain.ErrValidation, Field: ve.Field, Message: ve.Message}
			} else {
				logger.WithError(err).Error("Live preview assessment failed")
				msg.Error = &BatchItemError{Code: domain.ErrInternalServer, Message: "assessment failed"}
			}
		} else {
			msg.Result = newAssessmentResponse(suggestion)
		}

		_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
		if err := conn.WriteJSON(msg); err != nil {
			logger.WithError(err).Debug("Live preview write failed")
			return
		}
	}
}
