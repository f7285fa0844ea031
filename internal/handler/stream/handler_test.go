package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/zhouzirui/studio-chat/backend/internal/config"
	chatModel "github.com/zhouzirui/studio-chat/backend/internal/model/chat"
	"github.com/zhouzirui/studio-chat/backend/internal/service/ai"
	chatService "github.com/zhouzirui/studio-chat/backend/internal/service/chat"
)

type silentClient struct{}

func (silentClient) Reply(context.Context, ai.ChatRequest) (string, error) { return "", nil }

func (silentClient) GenerateImage(context.Context, string) (*genai.GenerateContentResponse, error) {
	return nil, nil
}

func newServer(t *testing.T) (*httptest.Server, *chatService.Service) {
	t.Helper()
	factory := func(context.Context, string) (ai.Client, error) { return silentClient{}, nil }
	chatSvc := chatService.NewService(factory, config.ChatConfig{HistoryLimit: 20}, nil)

	r := chi.NewRouter()
	New(chatSvc, nil).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, chatSvc
}

// readEvent reads one SSE event block and returns its event name and data.
func readEvent(t *testing.T, reader *bufio.Reader) (string, string) {
	t.Helper()
	var event, data string
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if event != "" {
				return event, data
			}
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestEventsStreamsCurrentSnapshotFirst(t *testing.T) {
	srv, chatSvc := newServer(t)
	conv := chatSvc.CreateConversation(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/conversations/"+conv.ID+"/events", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	event, data := readEvent(t, reader)
	assert.Equal(t, "state", event)
	var first chatModel.State
	require.NoError(t, json.Unmarshal([]byte(data), &first))
	assert.False(t, first.Initialized)
	assert.Zero(t, first.Version)

	require.NoError(t, conv.Initialize(context.Background(), "k", "P"))

	_, data = readEvent(t, reader)
	var next chatModel.State
	require.NoError(t, json.Unmarshal([]byte(data), &next))
	assert.True(t, next.Initialized)
	assert.Len(t, next.Messages, 2)
}

func TestEventsUnknownConversation(t *testing.T) {
	srv, _ := newServer(t)

	resp, err := http.Get(srv.URL + "/conversations/missing/events")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
