package chat

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/zhouzirui/studio-chat/backend/internal/model/chat"
	"github.com/zhouzirui/studio-chat/backend/internal/service/ai"
)

// Dispatcher performs one remote call per user action and folds the outcome
// into a StateStore. It holds no conversation state of its own.
type Dispatcher struct {
	timeout time.Duration
	logger  *zap.Logger
}

// NewDispatcher returns a dispatcher. A zero timeout leaves deadlines to the caller.
func NewDispatcher(timeout time.Duration, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{timeout: timeout, logger: logger}
}

// SendMessage appends the user turn, asks the model, and appends its reply.
// An empty reply appends nothing and is not an error.
func (d *Dispatcher) SendMessage(ctx context.Context, store *StateStore, sess *Session, text string) error {
	if sess == nil {
		store.Update(func(st *chat.State) { st.LastError = msgNotInitialized })
		return ErrNotInitialized
	}

	var history []chat.Turn
	store.Update(func(st *chat.State) {
		history = append([]chat.Turn(nil), st.Messages...)
		st.IsLoading = true
		st.LastError = ""
		st.Messages = append(st.Messages, newTurn(chat.RoleUser, text))
	})

	callCtx, cancel := d.callContext(ctx)
	defer cancel()

	reply, err := safeCall(func() (string, error) {
		return sess.client.Reply(callCtx, ai.ChatRequest{
			SystemPrompt: sess.SystemPrompt,
			History:      history,
			Message:      text,
		})
	})
	if err != nil {
		d.logger.Warn("chat request failed", zap.String("session", sess.ID), zap.Error(err))
		store.Update(func(st *chat.State) {
			st.LastError = chatErrorPrefix + err.Error()
			st.IsLoading = false
		})
		return &RemoteCallError{Op: "chat", Err: err}
	}

	if reply == "" {
		d.logger.Debug("chat reply was empty", zap.String("session", sess.ID))
	}
	store.Update(func(st *chat.State) {
		if reply != "" {
			st.Messages = append(st.Messages, newTurn(chat.RoleModel, reply))
		}
		st.IsLoading = false
	})
	return nil
}

// GenerateImage asks the image model for a picture and stores it on success.
// A response without a decodable payload keeps the previous image.
func (d *Dispatcher) GenerateImage(ctx context.Context, store *StateStore, sess *Session, prompt string) error {
	if sess == nil {
		store.Update(func(st *chat.State) { st.LastError = msgNotInitialized })
		return ErrNotInitialized
	}

	store.Update(func(st *chat.State) {
		st.IsLoading = true
		st.LastError = ""
	})

	callCtx, cancel := d.callContext(ctx)
	defer cancel()

	resp, err := safeCall(func() (*genai.GenerateContentResponse, error) {
		return sess.client.GenerateImage(callCtx, prompt)
	})
	if err != nil {
		d.logger.Error("image generation failed", zap.String("session", sess.ID), zap.Error(err))
		store.Update(func(st *chat.State) {
			st.LastError = imageErrorPrefix + err.Error()
			st.IsLoading = false
		})
		return &RemoteCallError{Op: "image", Err: err}
	}

	img, ok := extractImage(resp)
	if !ok {
		store.Update(func(st *chat.State) {
			st.LastError = msgImageFailed
			st.IsLoading = false
		})
		return ErrEmptyImage
	}

	img.Prompt = prompt
	img.CreatedAt = time.Now().UTC()
	d.logger.Info("image generated",
		zap.String("session", sess.ID),
		zap.String("format", img.Format),
		zap.Int("width", img.Width),
		zap.Int("height", img.Height))

	store.Update(func(st *chat.State) {
		st.Image = img
		st.IsLoading = false
	})
	return nil
}

func (d *Dispatcher) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.timeout > 0 {
		return context.WithTimeout(ctx, d.timeout)
	}
	return context.WithCancel(ctx)
}

// safeCall turns a panicking client into an error so the loading flag is
// always reset.
func safeCall[T any](fn func() (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("model client panicked: %v", r)
		}
	}()
	return fn()
}

// extractImage takes the first inline payload of the first candidate and
// checks that it decodes as an image. Payloads that arrive still
// base64-encoded are decoded first.
func extractImage(resp *genai.GenerateContentResponse) (*chat.Image, bool) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, false
	}
	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil {
		return nil, false
	}

	var blob *genai.Blob
	for _, part := range candidate.Content.Parts {
		if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
			blob = part.InlineData
			break
		}
	}
	if blob == nil {
		return nil, false
	}

	data := blob.Data
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		decoded, decodeErr := base64.StdEncoding.DecodeString(string(data))
		if decodeErr != nil {
			return nil, false
		}
		cfg, format, err = image.DecodeConfig(bytes.NewReader(decoded))
		if err != nil {
			return nil, false
		}
		data = decoded
	}

	mimeType := blob.MIMEType
	if mimeType == "" {
		mimeType = "image/" + format
	}

	return &chat.Image{
		Data:     append([]byte(nil), data...),
		MIMEType: mimeType,
		Format:   format,
		Width:    cfg.Width,
		Height:   cfg.Height,
		Size:     len(data),
	}, true
}
