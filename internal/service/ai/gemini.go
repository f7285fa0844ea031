package ai

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/zhouzirui/studio-chat/backend/internal/config"
)

// contentGenerator is the subset of *genai.Models used here.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiClient talks to the Gemini API through the genai SDK.
type GeminiClient struct {
	models       contentGenerator
	chatModel    string
	imageModel   string
	historyLimit int
	temperature  *float32
	topP         *float32
	maxTokens    int32
	logger       *zap.Logger
}

// NewGeminiClient creates a client bound to apiKey. No request is made.
func NewGeminiClient(ctx context.Context, cfg config.AIConfig, apiKey string, historyLimit int, logger *zap.Logger) (*GeminiClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini api key is empty")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.Gemini.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.Gemini.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, errors.Wrap(err, "create genai client")
	}

	return newGeminiClient(client.Models, cfg, historyLimit, logger), nil
}

func newGeminiClient(models contentGenerator, cfg config.AIConfig, historyLimit int, logger *zap.Logger) *GeminiClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &GeminiClient{
		models:       models,
		chatModel:    cfg.Gemini.ChatModel,
		imageModel:   cfg.Gemini.ImageModel,
		historyLimit: historyLimit,
		logger:       logger.With(zap.String("provider", string(config.ProviderGemini))),
	}
	if cfg.Temperature != nil {
		val := float32(*cfg.Temperature)
		c.temperature = &val
	}
	if cfg.TopP != nil {
		val := float32(*cfg.TopP)
		c.topP = &val
	}
	if cfg.MaxTokens != nil {
		c.maxTokens = int32(*cfg.MaxTokens)
	}
	return c
}

// Reply sends the message together with the conversation history.
func (c *GeminiClient) Reply(ctx context.Context, req ChatRequest) (string, error) {
	contents := buildGeminiContents(req.History, c.historyLimit, req.Message)

	genCfg := &genai.GenerateContentConfig{
		Temperature:     c.temperature,
		TopP:            c.topP,
		MaxOutputTokens: c.maxTokens,
	}
	if req.SystemPrompt != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}

	resp, err := c.models.GenerateContent(ctx, c.chatModel, contents, genCfg)
	if err != nil {
		return "", errors.Wrap(err, "gemini generate content")
	}

	text := responseText(resp)
	c.logger.Debug("chat reply received",
		zap.String("model", c.chatModel),
		zap.Int("historyTurns", len(contents)-1),
		zap.Int("length", len(text)))
	return text, nil
}

// GenerateImage asks the image model for a picture. The response is returned
// untouched; extracting the payload is the caller's concern.
func (c *GeminiClient) GenerateImage(ctx context.Context, prompt string) (*genai.GenerateContentResponse, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	genCfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}

	resp, err := c.models.GenerateContent(ctx, c.imageModel, contents, genCfg)
	if err != nil {
		return nil, errors.Wrap(err, "gemini generate image")
	}
	return resp, nil
}

// responseText concatenates the text parts of the first candidate, skipping
// thought summaries.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil {
		return ""
	}

	var builder strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Thought || part.Text == "" {
			continue
		}
		builder.WriteString(part.Text)
	}
	return builder.String()
}
