package chat_test

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/genai"

	"github.com/zhouzirui/studio-chat/backend/internal/config"
	"github.com/zhouzirui/studio-chat/backend/internal/service/ai"
	chat "github.com/zhouzirui/studio-chat/backend/internal/service/chat"
)

type echoClient struct{}

func (echoClient) Reply(_ context.Context, req ai.ChatRequest) (string, error) {
	return "echo: " + req.Message, nil
}

func (echoClient) GenerateImage(context.Context, string) (*genai.GenerateContentResponse, error) {
	return nil, nil
}

func newService() *chat.Service {
	factory := func(context.Context, string) (ai.Client, error) { return echoClient{}, nil }
	return chat.NewService(factory, config.ChatConfig{HistoryLimit: 20}, nil)
}

func TestServiceGetConversation(t *testing.T) {
	svc := newService()
	defer svc.Close()
	ctx := context.Background()

	conv := svc.CreateConversation(ctx)

	got, err := svc.GetConversation(ctx, conv.ID)
	if err != nil {
		t.Fatalf("GetConversation err: %v", err)
	}
	if got != conv {
		t.Fatalf("unexpected conversation: got %s want %s", got.ID, conv.ID)
	}
	if got.Initialized() {
		t.Fatal("new conversation should not be initialized")
	}
}

func TestServiceGetConversationNotFound(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	if _, err := svc.GetConversation(ctx, "missing"); !errors.Is(err, chat.ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}
}

func TestServiceDeleteConversation(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	conv := svc.CreateConversation(ctx)
	if err := svc.DeleteConversation(ctx, conv.ID); err != nil {
		t.Fatalf("DeleteConversation err: %v", err)
	}
	if _, err := svc.GetConversation(ctx, conv.ID); !errors.Is(err, chat.ErrConversationNotFound) {
		t.Fatalf("expected deleted conversation to be gone, got %v", err)
	}
	if err := svc.DeleteConversation(ctx, conv.ID); !errors.Is(err, chat.ErrConversationNotFound) {
		t.Fatalf("expected second delete to fail, got %v", err)
	}
	if _, _, err := conv.SpeechEvents(); err == nil {
		t.Fatal("expected speech bridge to be closed after delete")
	}
}

func TestServiceConversationsAreIndependent(t *testing.T) {
	svc := newService()
	defer svc.Close()
	ctx := context.Background()

	first := svc.CreateConversation(ctx)
	second := svc.CreateConversation(ctx)

	if err := first.Initialize(ctx, "key", ""); err != nil {
		t.Fatalf("Initialize err: %v", err)
	}
	if err := first.SendMessage(ctx, "hi"); err != nil {
		t.Fatalf("SendMessage err: %v", err)
	}

	if got := len(first.State().Messages); got != 2 {
		t.Fatalf("first conversation: got %d messages want 2", got)
	}
	if got := first.State().Messages[1].Content; got != "echo: hi" {
		t.Fatalf("unexpected reply %q", got)
	}
	if got := len(second.State().Messages); got != 0 {
		t.Fatalf("second conversation: got %d messages want 0", got)
	}
	if err := second.SendMessage(ctx, "hi"); !errors.Is(err, chat.ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
}
