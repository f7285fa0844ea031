package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/zhouzirui/studio-chat/backend/internal/config"
	"github.com/zhouzirui/studio-chat/backend/internal/model/chat"
)

type fakeGenerator struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
	resp     *genai.GenerateContentResponse
	err      error
}

func (f *fakeGenerator) GenerateContent(_ context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.contents = contents
	f.config = cfg
	return f.resp, f.err
}

func textResponse(parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Role: string(genai.RoleModel), Parts: parts}}},
	}
}

func testAIConfig() config.AIConfig {
	temperature := 0.5
	maxTokens := 128
	return config.AIConfig{
		Provider:    config.ProviderGemini,
		Gemini:      config.GeminiConfig{ChatModel: "chat-model", ImageModel: "image-model"},
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	}
}

func TestGeminiReplySendsHistoryAndSystemInstruction(t *testing.T) {
	gen := &fakeGenerator{resp: textResponse(&genai.Part{Text: "Hel"}, &genai.Part{Text: "lo"})}
	client := newGeminiClient(gen, testAIConfig(), 10, nil)

	history := []chat.Turn{
		{Role: chat.RoleUser, Content: "earlier", IsUser: true},
		{Role: chat.RoleModel, Content: "noted"},
	}
	got, err := client.Reply(context.Background(), ChatRequest{
		SystemPrompt: "Be brief.",
		History:      history,
		Message:      "hi",
	})
	require.NoError(t, err)

	assert.Equal(t, "Hello", got)
	assert.Equal(t, "chat-model", gen.model)
	require.Len(t, gen.contents, 3)
	assert.Equal(t, string(genai.RoleUser), gen.contents[0].Role)
	assert.Equal(t, "hi", gen.contents[2].Parts[0].Text)
	require.NotNil(t, gen.config.SystemInstruction)
	assert.Equal(t, "Be brief.", gen.config.SystemInstruction.Parts[0].Text)
	require.NotNil(t, gen.config.Temperature)
	assert.InDelta(t, 0.5, *gen.config.Temperature, 1e-6)
	assert.Equal(t, int32(128), gen.config.MaxOutputTokens)
}

func TestGeminiReplyWrapsErrors(t *testing.T) {
	cause := errors.New("quota exceeded")
	client := newGeminiClient(&fakeGenerator{err: cause}, testAIConfig(), 10, nil)

	_, err := client.Reply(context.Background(), ChatRequest{Message: "hi"})
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestGeminiGenerateImageUsesImageModel(t *testing.T) {
	resp := textResponse(&genai.Part{InlineData: &genai.Blob{MIMEType: "image/png", Data: []byte{1}}})
	gen := &fakeGenerator{resp: resp}
	client := newGeminiClient(gen, testAIConfig(), 10, nil)

	got, err := client.GenerateImage(context.Background(), "a red car")
	require.NoError(t, err)

	assert.Same(t, resp, got)
	assert.Equal(t, "image-model", gen.model)
	assert.Contains(t, gen.config.ResponseModalities, "IMAGE")
}

func TestResponseTextSkipsThoughtsAndHandlesEmpty(t *testing.T) {
	assert.Empty(t, responseText(nil))
	assert.Empty(t, responseText(&genai.GenerateContentResponse{}))
	assert.Equal(t, "answer", responseText(textResponse(
		&genai.Part{Text: "thinking", Thought: true},
		&genai.Part{Text: "answer"},
	)))
}

func TestNewGeminiClientRejectsBlankKey(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), testAIConfig(), "  ", 10, nil)
	assert.Error(t, err)
}

func TestNewFactoryRejectsUnknownProvider(t *testing.T) {
	_, err := NewFactory(config.AIConfig{Provider: "openai"}, 10, nil)
	assert.Error(t, err)
}
