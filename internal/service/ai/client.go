package ai

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/zhouzirui/studio-chat/backend/internal/config"
	"github.com/zhouzirui/studio-chat/backend/internal/model/chat"
)

// ErrImageUnsupported is returned by providers that cannot generate images.
var ErrImageUnsupported = errors.New("image generation is not supported by this provider")

// ChatRequest carries one outbound chat call.
type ChatRequest struct {
	SystemPrompt string
	History      []chat.Turn
	Message      string
}

// Client is the remote model surface used by the dispatcher.
type Client interface {
	// Reply returns the model text for req. An empty string means the model
	// produced no text.
	Reply(ctx context.Context, req ChatRequest) (string, error)
	// GenerateImage returns the raw structured response of the image model.
	GenerateImage(ctx context.Context, prompt string) (*genai.GenerateContentResponse, error)
}

// Factory builds a Client bound to a session API key.
type Factory func(ctx context.Context, apiKey string) (Client, error)

// NewFactory returns the Factory for the configured provider.
func NewFactory(cfg config.AIConfig, historyLimit int, logger *zap.Logger) (Factory, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("ai")

	switch cfg.Provider {
	case config.ProviderGemini, "":
		return func(ctx context.Context, apiKey string) (Client, error) {
			client, err := NewGeminiClient(ctx, cfg, apiKey, historyLimit, logger)
			if err != nil {
				return nil, err
			}
			return client, nil
		}, nil
	case config.ProviderArk:
		return func(ctx context.Context, apiKey string) (Client, error) {
			client, err := NewArkClient(ctx, cfg, apiKey, historyLimit, logger)
			if err != nil {
				return nil, err
			}
			return client, nil
		}, nil
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", cfg.Provider)
	}
}
