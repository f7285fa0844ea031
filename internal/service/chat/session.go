package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/studio-chat/backend/internal/model/chat"
	"github.com/zhouzirui/studio-chat/backend/internal/service/ai"
)

// AcknowledgementText is the synthetic model turn appended after a system prompt.
const AcknowledgementText = "OK. I'm ready."

// Session binds the initialized credentials to the remote client built for them.
// It is created once by NewSession and handed to every dispatcher call.
type Session struct {
	chat.Session
	client ai.Client
}

// NewSession validates apiKey and builds the remote client. A blank system
// prompt is stored as empty.
func NewSession(ctx context.Context, newClient ai.Factory, apiKey, systemPrompt string) (*Session, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrAPIKeyRequired
	}
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = ""
	}

	client, err := newClient(ctx, apiKey)
	if err != nil {
		return nil, fmt.Errorf("build model client: %w", err)
	}

	return &Session{
		Session: chat.Session{
			ID:           uuid.NewString(),
			APIKey:       apiKey,
			SystemPrompt: systemPrompt,
			CreatedAt:    time.Now().UTC(),
		},
		client: client,
	}, nil
}

func newTurn(role chat.Role, content string) chat.Turn {
	return chat.Turn{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		IsUser:    role == chat.RoleUser,
		CreatedAt: time.Now().UTC(),
	}
}
