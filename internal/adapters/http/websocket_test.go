package httpadapter

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/net/websocket"

	"github.com/kirillkom/defence-assistant/internal/config"
)

func dialSocket(t *testing.T, server *httptest.Server, cookie string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	cfg, err := websocket.NewConfig(wsURL, server.URL)
	if err != nil {
		t.Fatalf("websocket config: %v", err)
	}
	if cookie != "" {
		cfg.Header = http.Header{"Cookie": []string{sessionCookieName + "=" + cookie}}
	}
	conn, err := websocket.DialConfig(cfg)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func receiveEvent(t *testing.T, conn *websocket.Conn) socketEnvelope {
	t.Helper()
	var env socketEnvelope
	if err := websocket.JSON.Receive(conn, &env); err != nil {
		t.Fatalf("receive event: %v", err)
	}
	return env
}

func TestWebSocketAnswersLegalQuery(t *testing.T) {
	handler, deps := newTestRouter(config.Config{})
	server := httptest.NewServer(handler)
	defer server.Close()

	conn := dialSocket(t, server, "")

	status := receiveEvent(t, conn)
	if status.Event != eventStatus || status.Data["msg"] != socketGreeting {
		t.Fatalf("unexpected greeting: %+v", status)
	}
	sessionID, _ := status.Data["session_id"].(string)
	if sessionID == "" {
		t.Fatalf("expected a session id in the greeting")
	}

	if err := websocket.JSON.Send(conn, socketEnvelope{Event: eventLegalQuery, Data: map[string]any{"message": "What is the small claims limit?"}}); err != nil {
		t.Fatalf("send query: %v", err)
	}

	typingOn := receiveEvent(t, conn)
	if typingOn.Event != eventTyping || typingOn.Data["typing"] != true {
		t.Fatalf("expected typing=true, got %+v", typingOn)
	}
	typingOff := receiveEvent(t, conn)
	if typingOff.Event != eventTyping || typingOff.Data["typing"] != false {
		t.Fatalf("expected typing=false, got %+v", typingOff)
	}
	response := receiveEvent(t, conn)
	if response.Event != eventLegalResponse || response.Data["message"] != "answer" || response.Data["type"] != "success" {
		t.Fatalf("unexpected response: %+v", response)
	}

	if deps.chat.gotSession != sessionID {
		t.Fatalf("expected chat to run under %q, got %q", sessionID, deps.chat.gotSession)
	}
	if deps.chat.gotMessage != "What is the small claims limit?" {
		t.Fatalf("unexpected message forwarded: %q", deps.chat.gotMessage)
	}
}

func TestWebSocketUsesSessionCookie(t *testing.T) {
	handler, _ := newTestRouter(config.Config{})
	server := httptest.NewServer(handler)
	defer server.Close()

	const session = "0b7e9a52-1d55-4c1e-8f43-2a3c3f0d9e61"
	conn := dialSocket(t, server, session)

	status := receiveEvent(t, conn)
	if status.Data["session_id"] != session {
		t.Fatalf("expected cookie session %q, got %+v", session, status.Data)
	}
}

func TestWebSocketReportsChatErrors(t *testing.T) {
	handler, deps := newTestRouter(config.Config{})
	deps.chat.err = errors.New("llm exploded")
	server := httptest.NewServer(handler)
	defer server.Close()

	conn := dialSocket(t, server, "")
	receiveEvent(t, conn)

	if err := websocket.JSON.Send(conn, socketEnvelope{Event: eventLegalQuery, Data: map[string]any{"message": "help"}}); err != nil {
		t.Fatalf("send query: %v", err)
	}
	receiveEvent(t, conn)
	receiveEvent(t, conn)

	response := receiveEvent(t, conn)
	if response.Data["type"] != "error" || response.Data["message"] != chatFailureMessage {
		t.Fatalf("unexpected error response: %+v", response)
	}
}
