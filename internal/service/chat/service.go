package chat

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zhouzirui/studio-chat/backend/internal/config"
	"github.com/zhouzirui/studio-chat/backend/internal/service/ai"
)

// Service keeps the conversations of connected clients in memory.
type Service struct {
	mu            sync.RWMutex
	conversations map[string]*Conversation

	newClient  ai.Factory
	dispatcher *Dispatcher
	logger     *zap.Logger
}

// NewService builds the registry. newClient is called once per Initialize.
func NewService(newClient ai.Factory, cfg config.ChatConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("chat")

	return &Service{
		conversations: make(map[string]*Conversation),
		newClient:     newClient,
		dispatcher:    NewDispatcher(cfg.RequestTimeout, logger),
		logger:        logger,
	}
}

// CreateConversation provisions an empty, uninitialized conversation.
func (s *Service) CreateConversation(_ context.Context) *Conversation {
	conv := NewConversation(uuid.NewString(), s.newClient, s.dispatcher, s.logger)

	s.mu.Lock()
	s.conversations[conv.ID] = conv
	s.mu.Unlock()

	s.logger.Debug("conversation created", zap.String("conversation", conv.ID))
	return conv
}

// GetConversation retrieves a conversation by identifier.
func (s *Service) GetConversation(_ context.Context, id string) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, ErrConversationNotFound
	}
	return conv, nil
}

// DeleteConversation drops a conversation and closes its speech bridge.
func (s *Service) DeleteConversation(_ context.Context, id string) error {
	s.mu.Lock()
	conv, ok := s.conversations[id]
	delete(s.conversations, id)
	s.mu.Unlock()

	if !ok {
		return ErrConversationNotFound
	}
	conv.Close()
	return nil
}

// Close closes every conversation.
func (s *Service) Close() {
	s.mu.Lock()
	conversations := s.conversations
	s.conversations = make(map[string]*Conversation)
	s.mu.Unlock()

	for _, conv := range conversations {
		conv.Close()
	}
}
