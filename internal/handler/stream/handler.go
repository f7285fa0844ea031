package stream

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	chatService "github.com/zhouzirui/studio-chat/backend/internal/service/chat"
	"github.com/zhouzirui/studio-chat/backend/pkg/utils"
)

const defaultHeartbeat = 15 * time.Second

// Handler streams conversation state snapshots via Server-Sent Events
type Handler struct {
	chatSvc   *chatService.Service
	heartbeat time.Duration
	logger    *zap.Logger
}

// New creates a new stream handler
func New(chatSvc *chatService.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		chatSvc:   chatSvc,
		heartbeat: defaultHeartbeat,
		logger:    logger.Named("http.stream"),
	}
}

// RegisterRoutes registers the SSE endpoint
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/conversations/{conversationID}/events", h.handleEvents)
}

// handleEvents writes the current snapshot first, then every later one, until
// the client disconnects. Snapshots a slow client missed are skipped.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversationID")
	conv, err := h.chatSvc.GetConversation(r.Context(), id)
	if err != nil {
		_ = utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		_ = utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	ctx := r.Context()
	updates := conv.Subscribe(ctx)
	h.logger.Debug("state stream opened", zap.String("conversation", id))

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("state stream closed", zap.String("conversation", id))
			return
		case st, ok := <-updates:
			if !ok {
				return
			}
			if err := utils.SendSSEEvent(w, flusher, "state", strconv.FormatUint(st.Version, 10), st); err != nil {
				h.logger.Debug("state stream write failed", zap.String("conversation", id), zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := utils.SendSSEComment(w, flusher, "heartbeat"); err != nil {
				return
			}
		}
	}
}
