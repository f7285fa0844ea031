package speech

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/studio-chat/backend/internal/config"
	"github.com/zhouzirui/studio-chat/backend/internal/service/ai"
	chatService "github.com/zhouzirui/studio-chat/backend/internal/service/chat"
)

type incoming struct {
	Type string `json:"type"`
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

func setup(t *testing.T) (*httptest.Server, *chatService.Conversation) {
	t.Helper()
	factory := func(context.Context, string) (ai.Client, error) { return nil, nil }
	chatSvc := chatService.NewService(factory, config.ChatConfig{HistoryLimit: 20}, nil)
	conv := chatSvc.CreateConversation(context.Background())

	r := chi.NewRouter()
	New(chatSvc, nil).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, conv
}

func wsURL(srv *httptest.Server, id string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/conversations/" + id + "/speech/ws"
}

func TestWebSocketForwardsSpeakEvents(t *testing.T) {
	srv, conv := setup(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, conv.ID), nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg incoming
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "connected", msg.Type)

	require.True(t, conv.Speak("hello there"))

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "speak", msg.Type)
	assert.Equal(t, "hello there", msg.Data.Text)
	assert.NotEmpty(t, msg.Data.ID)
}

func TestWebSocketSecondSubscriberRejected(t *testing.T) {
	srv, conv := setup(t)

	first, _, err := websocket.DefaultDialer.Dial(wsURL(srv, conv.ID), nil)
	require.NoError(t, err)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, conv.ID), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	require.NoError(t, first.Close())

	assert.Eventually(t, func() bool {
		_, release, err := conv.SpeechEvents()
		if err != nil {
			return false
		}
		release()
		return true
	}, 5*time.Second, 20*time.Millisecond)
}

func TestWebSocketUnknownConversation(t *testing.T) {
	srv, _ := setup(t)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "missing"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
