package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/zhouzirui/studio-chat/backend/internal/config"
)

// ArkClient runs chat turns through an eino chain backed by an Ark model.
type ArkClient struct {
	chain        compose.Runnable[map[string]any, *schema.Message]
	historyLimit int
	logger       *zap.Logger
}

// NewArkClient compiles the chat chain for apiKey.
func NewArkClient(ctx context.Context, cfg config.AIConfig, apiKey string, historyLimit int, logger *zap.Logger) (*ArkClient, error) {
	chatModel, err := cfg.NewChatModel(ctx, apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &ArkClient{
		chain:        runnable,
		historyLimit: historyLimit,
		logger:       logger.With(zap.String("provider", string(config.ProviderArk))),
	}, nil
}

// Reply runs the chain with the trimmed history and the user query.
func (c *ArkClient) Reply(ctx context.Context, req ChatRequest) (string, error) {
	input := map[string]any{
		"history": buildSchemaMessages(req.SystemPrompt, req.History, c.historyLimit),
		"query":   req.Message,
	}

	response, err := c.chain.Invoke(ctx, input)
	if err != nil {
		return "", errors.Wrap(err, "ark chain invoke")
	}
	if response == nil {
		return "", nil
	}

	c.logger.Debug("chat reply received", zap.Int("length", len(response.Content)))
	return response.Content, nil
}

// GenerateImage is not available on Ark chat models.
func (c *ArkClient) GenerateImage(context.Context, string) (*genai.GenerateContentResponse, error) {
	return nil, ErrImageUnsupported
}
