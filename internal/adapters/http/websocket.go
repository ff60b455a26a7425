package httpadapter

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"
)

const (
	eventStatus        = "status"
	eventTyping        = "typing"
	eventLegalQuery    = "legal_query"
	eventLegalResponse = "legal_response"

	socketGreeting   = "Connected to UK Legal Chatbot"
	socketMaxPayload = 64 << 10
	socketQueryLimit = 2 * time.Minute
)

// socketEnvelope is the frame exchanged on /ws in both directions.
type socketEnvelope struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data,omitempty"`
}

func (rt *Router) legalQuerySocket() websocket.Handler {
	return func(conn *websocket.Conn) {
		defer conn.Close()
		conn.MaxPayloadBytes = socketMaxPayload

		// The handshake cannot set cookies, so a connection without one
		// gets a session of its own for its lifetime.
		sessionID := sessionFromRequest(conn.Request())
		if sessionID == "" {
			sessionID = uuid.NewString()
		}
		ctx := conn.Request().Context()
		logger := rt.logger.With("session_id", sessionID, "request_id", requestIDFromContext(ctx))

		if err := sendEvent(conn, eventStatus, map[string]any{"msg": socketGreeting, "session_id": sessionID}); err != nil {
			return
		}
		logger.Info("ws.connected")

		for {
			var in socketEnvelope
			if err := websocket.JSON.Receive(conn, &in); err != nil {
				if !errors.Is(err, io.EOF) {
					logger.Warn("ws.receive_failed", "error", err)
				}
				logger.Info("ws.disconnected")
				return
			}
			if in.Event != eventLegalQuery {
				continue
			}
			message, _ := in.Data["message"].(string)
			if err := rt.answerSocketQuery(ctx, conn, sessionID, message); err != nil {
				logger.Warn("ws.send_failed", "error", err)
				return
			}
		}
	}
}

func (rt *Router) answerSocketQuery(ctx context.Context, conn *websocket.Conn, sessionID, message string) error {
	if err := sendEvent(conn, eventTyping, map[string]any{"typing": true}); err != nil {
		return err
	}

	queryCtx, cancel := context.WithTimeout(ctx, socketQueryLimit)
	reply, err := rt.chat.Ask(queryCtx, sessionID, message)
	cancel()

	if sendErr := sendEvent(conn, eventTyping, map[string]any{"typing": false}); sendErr != nil {
		return sendErr
	}
	if err != nil {
		rt.logger.Error("ws.chat_failed", "session_id", sessionID, "error", err)
		return sendEvent(conn, eventLegalResponse, map[string]any{"message": chatErrorMessage(err), "type": "error"})
	}
	return sendEvent(conn, eventLegalResponse, chatSuccessPayload(reply))
}

func sendEvent(conn *websocket.Conn, event string, data map[string]any) error {
	return websocket.JSON.Send(conn, socketEnvelope{Event: event, Data: data})
}
