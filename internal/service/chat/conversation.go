package chat

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/zhouzirui/studio-chat/backend/internal/model/chat"
	"github.com/zhouzirui/studio-chat/backend/internal/service/ai"
	"github.com/zhouzirui/studio-chat/backend/internal/service/speech"
)

// Conversation is the state one presentation client works against: the
// observable snapshot, the current session, and the speech bridge.
//
// Initialize, SendMessage and GenerateImage are serialized: a call waits
// until the previous one finished, or gives up when its context ends.
type Conversation struct {
	ID        string
	CreatedAt time.Time

	store      *StateStore
	session    atomic.Pointer[Session]
	newClient  ai.Factory
	dispatcher *Dispatcher
	speech     *speech.Bridge
	inflight   *semaphore.Weighted
	logger     *zap.Logger
}

// NewConversation creates an uninitialized conversation.
func NewConversation(id string, newClient ai.Factory, dispatcher *Dispatcher, logger *zap.Logger) *Conversation {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("conversation", id))
	if dispatcher == nil {
		dispatcher = NewDispatcher(0, logger)
	}

	return &Conversation{
		ID:         id,
		CreatedAt:  time.Now().UTC(),
		store:      NewStateStore(),
		newClient:  newClient,
		dispatcher: dispatcher,
		speech:     speech.NewBridge(logger),
		inflight:   semaphore.NewWeighted(1),
		logger:     logger,
	}
}

// Initialize starts a new session. On success the transcript is reset and,
// for a non-blank system prompt, seeded with the prompt and an acknowledgement.
// On failure the previous session and transcript stay in place.
func (c *Conversation) Initialize(ctx context.Context, apiKey, systemPrompt string) error {
	if err := c.inflight.Acquire(ctx, 1); err != nil {
		return err
	}
	defer c.inflight.Release(1)

	sess, err := NewSession(ctx, c.newClient, apiKey, systemPrompt)
	if err != nil {
		message := initErrorPrefix + err.Error()
		if errors.Is(err, ErrAPIKeyRequired) {
			message = msgAPIKeyRequired
		}
		c.store.Update(func(st *chat.State) { st.LastError = message })
		c.logger.Info("initialization rejected", zap.Error(err))
		return err
	}

	c.session.Store(sess)
	c.store.Update(func(st *chat.State) {
		st.LastError = ""
		st.Initialized = true
		st.Messages = make([]chat.Turn, 0, 2)
		if sess.SystemPrompt != "" {
			st.Messages = append(st.Messages,
				newTurn(chat.RoleSystem, sess.SystemPrompt),
				newTurn(chat.RoleModel, AcknowledgementText),
			)
		}
	})

	c.logger.Info("session initialized",
		zap.String("session", sess.ID),
		zap.Bool("systemPrompt", sess.SystemPrompt != ""))
	return nil
}

// SendMessage forwards text to the model of the current session.
func (c *Conversation) SendMessage(ctx context.Context, text string) error {
	if err := c.inflight.Acquire(ctx, 1); err != nil {
		return err
	}
	defer c.inflight.Release(1)

	return c.dispatcher.SendMessage(ctx, c.store, c.session.Load(), text)
}

// GenerateImage asks the image model of the current session for a picture.
func (c *Conversation) GenerateImage(ctx context.Context, prompt string) error {
	if err := c.inflight.Acquire(ctx, 1); err != nil {
		return err
	}
	defer c.inflight.Release(1)

	return c.dispatcher.GenerateImage(ctx, c.store, c.session.Load(), prompt)
}

// Speak emits a speak event unless text is blank.
func (c *Conversation) Speak(text string) bool {
	return c.speech.Speak(text)
}

// SpeechEvents attaches the single speech consumer.
func (c *Conversation) SpeechEvents() (<-chan speech.Event, func(), error) {
	return c.speech.Attach()
}

// State returns the current snapshot.
func (c *Conversation) State() chat.State {
	return c.store.Snapshot()
}

// Subscribe streams snapshots until ctx ends.
func (c *Conversation) Subscribe(ctx context.Context) <-chan chat.State {
	return c.store.Subscribe(ctx)
}

// Initialized reports whether a session is in place.
func (c *Conversation) Initialized() bool {
	return c.session.Load() != nil
}

// Close releases the speech consumer.
func (c *Conversation) Close() {
	c.speech.Close()
}
