package server

import (
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dailyinspo/inspo/internal/chat"
	"github.com/dailyinspo/inspo/pkg/models"
)

func dialSession(t *testing.T, srv *httptest.Server, sessionID int64) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") +
		fmt.Sprintf("/api/chat/sessions/%d/ws", sessionID)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) chat.OutboundFrame {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var frame chat.OutboundFrame
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestChatWS_MessageRoundTrip(t *testing.T) {
	svc, _, cleanup := testService(t)
	defer cleanup()

	project := seedProject(t, svc, "Live chat")
	session := seedSession(t, svc, project.ID, "Socket thread")

	srv := httptest.NewServer(svc.Router())
	defer srv.Close()

	conn := dialSession(t, srv, session.ID)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(chat.InboundFrame{
		Type:    "message",
		Role:    "user",
		Content: "Is this thing on?",
	}))

	// The user message echoes back, then the assistant reply follows.
	first := readFrame(t, conn)
	assert.Equal(t, "message", first.Type)
	require.NotNil(t, first.Data)
	assert.Equal(t, models.RoleUser, first.Data.Role)
	assert.Equal(t, "Is this thing on?", first.Data.Content)

	second := readFrame(t, conn)
	require.NotNil(t, second.Data)
	assert.Equal(t, models.RoleAssistant, second.Data.Role)
	assert.Equal(t, "Assistant reply", second.Data.Content)
}

func TestChatWS_BroadcastReachesAllListeners(t *testing.T) {
	svc, _, cleanup := testService(t)
	defer cleanup()

	project := seedProject(t, svc, "Live chat")
	session := seedSession(t, svc, project.ID, "Socket thread")

	srv := httptest.NewServer(svc.Router())
	defer srv.Close()

	sender := dialSession(t, srv, session.ID)
	defer sender.Close()
	observer := dialSession(t, srv, session.ID)
	defer observer.Close()

	require.NoError(t, sender.WriteJSON(chat.InboundFrame{
		Type:    "message",
		Role:    "user",
		Content: "hello everyone",
	}))

	for _, conn := range []*websocket.Conn{sender, observer} {
		frame := readFrame(t, conn)
		require.NotNil(t, frame.Data)
		assert.Equal(t, "hello everyone", frame.Data.Content)
	}
}

func TestChatWS_MalformedFramesIgnored(t *testing.T) {
	svc, _, cleanup := testService(t)
	defer cleanup()

	project := seedProject(t, svc, "Live chat")
	session := seedSession(t, svc, project.ID, "Socket thread")

	srv := httptest.NewServer(svc.Router())
	defer srv.Close()

	conn := dialSession(t, srv, session.ID)
	defer conn.Close()

	// Unknown type and bad role are dropped without closing the socket.
	require.NoError(t, conn.WriteJSON(chat.InboundFrame{Type: "ping"}))
	require.NoError(t, conn.WriteJSON(chat.InboundFrame{
		Type: "message", Role: "narrator", Content: "ignored",
	}))
	require.NoError(t, conn.WriteJSON(chat.InboundFrame{
		Type: "message", Role: "user", Content: "still alive",
	}))

	frame := readFrame(t, conn)
	require.NotNil(t, frame.Data)
	assert.Equal(t, "still alive", frame.Data.Content)
}

func TestChatWS_UnknownSessionRejected(t *testing.T) {
	svc, _, cleanup := testService(t)
	defer cleanup()

	srv := httptest.NewServer(svc.Router())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/chat/sessions/999/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	if conn != nil {
		conn.Close()
	}
	require.NotNil(t, resp)
	assert.Equal(t, 404, resp.StatusCode)
}
