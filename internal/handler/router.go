package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zhouzirui/studio-chat/backend/internal/handler/chat"
	"github.com/zhouzirui/studio-chat/backend/internal/handler/preset"
	"github.com/zhouzirui/studio-chat/backend/internal/handler/speech"
	"github.com/zhouzirui/studio-chat/backend/internal/handler/stream"
	middlewarePkg "github.com/zhouzirui/studio-chat/backend/internal/middleware"
	presetModel "github.com/zhouzirui/studio-chat/backend/internal/model/preset"
	chatService "github.com/zhouzirui/studio-chat/backend/internal/service/chat"
	"github.com/zhouzirui/studio-chat/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(presets presetModel.Store, chatSvc *chatService.Service, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		_ = utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		preset.New(presets).RegisterRoutes(api)
		chat.New(chatSvc, presets, logger).RegisterRoutes(api)
		stream.New(chatSvc, logger).RegisterRoutes(api)
		speech.New(chatSvc, logger).RegisterRoutes(api)
	})

	return r
}
