package chat

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/studio-chat/backend/internal/model/preset"
	chatService "github.com/zhouzirui/studio-chat/backend/internal/service/chat"
	"github.com/zhouzirui/studio-chat/backend/pkg/utils"
)

// Handler 会话相关的HTTP处理器
type Handler struct {
	chatSvc *chatService.Service
	presets preset.Store
	logger  *zap.Logger
}

// New 创建会话处理器
func New(chatSvc *chatService.Service, presets preset.Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		chatSvc: chatSvc,
		presets: presets,
		logger:  logger.Named("http.chat"),
	}
}

// RegisterRoutes 注册会话相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/conversations", h.handleCreateConversation)
	r.Get("/conversations/{conversationID}", h.handleGetConversation)
	r.Delete("/conversations/{conversationID}", h.handleDeleteConversation)
	r.Post("/conversations/{conversationID}/session", h.handleInitialize)
	r.Post("/conversations/{conversationID}/messages", h.handleSendMessage)
	r.Post("/conversations/{conversationID}/images", h.handleGenerateImage)
	r.Get("/conversations/{conversationID}/image", h.handleGetImage)
	r.Post("/conversations/{conversationID}/speak", h.handleSpeak)
}

type conversationResponse struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

// handleCreateConversation 创建一个未初始化的会话
func (h *Handler) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	conv := h.chatSvc.CreateConversation(r.Context())
	h.respond(w, http.StatusCreated, conversationResponse{ID: conv.ID, CreatedAt: conv.CreatedAt})
}

// handleGetConversation 返回会话当前的状态快照
func (h *Handler) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.respond(w, http.StatusOK, conv.State())
}

func (h *Handler) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversationID")
	if err := h.chatSvc.DeleteConversation(r.Context(), id); err != nil {
		h.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleInitialize 使用客户端提供的 API Key 初始化会话
func (h *Handler) handleInitialize(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var payload struct {
		APIKey       string `json:"apiKey"`
		SystemPrompt string `json:"systemPrompt"`
		PresetID     string `json:"presetId"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	systemPrompt := payload.SystemPrompt
	if payload.PresetID != "" {
		p, found := h.presets.FindByID(payload.PresetID)
		if !found {
			h.respondError(w, http.StatusBadRequest, "preset not found")
			return
		}
		if strings.TrimSpace(systemPrompt) == "" {
			systemPrompt = p.SystemPrompt
		}
	}

	if err := conv.Initialize(r.Context(), payload.APIKey, systemPrompt); err != nil {
		h.respondActionError(w, conv, err)
		return
	}
	h.respond(w, http.StatusOK, conv.State())
}

// handleSendMessage 发送一条用户消息并等待模型回复
func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(payload.Text) == "" {
		h.respondError(w, http.StatusBadRequest, "text is required")
		return
	}

	h.logger.Debug("send message",
		zap.String("conversation", conv.ID),
		zap.Int("length", len(payload.Text)))

	if err := conv.SendMessage(r.Context(), payload.Text); err != nil {
		h.respondActionError(w, conv, err)
		return
	}
	h.respond(w, http.StatusOK, conv.State())
}

// handleGenerateImage 根据提示词生成图片
func (h *Handler) handleGenerateImage(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var payload struct {
		Prompt string `json:"prompt"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(payload.Prompt) == "" {
		h.respondError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	if err := conv.GenerateImage(r.Context(), payload.Prompt); err != nil {
		h.respondActionError(w, conv, err)
		return
	}
	h.respond(w, http.StatusOK, conv.State())
}

// handleGetImage 返回最近一次生成的图片
func (h *Handler) handleGetImage(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.lookup(w, r)
	if !ok {
		return
	}

	img := conv.State().Image
	if img == nil {
		h.respondError(w, http.StatusNotFound, "no image generated")
		return
	}

	w.Header().Set("Content-Type", img.MIMEType)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(img.Data); err != nil {
		h.logger.Warn("write image failed", zap.String("conversation", conv.ID), zap.Error(err))
	}
}

// handleSpeak 请求朗读一段文本；空白文本不产生事件
func (h *Handler) handleSpeak(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !conv.Speak(payload.Text) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.respond(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*chatService.Conversation, bool) {
	id := chi.URLParam(r, "conversationID")
	conv, err := h.chatSvc.GetConversation(r.Context(), id)
	if err != nil {
		h.respondError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	return conv, true
}

// respondActionError 按错误类别映射状态码；错误信息优先取 State.LastError。
func (h *Handler) respondActionError(w http.ResponseWriter, conv *chatService.Conversation, err error) {
	status := StatusFor(err)
	message := conv.State().LastError
	if message == "" {
		message = err.Error()
	}
	if status >= http.StatusInternalServerError {
		h.logger.Warn("conversation action failed",
			zap.String("conversation", conv.ID),
			zap.Int("status", status),
			zap.Error(err))
	}
	h.respondError(w, status, message)
}

// StatusFor maps a conversation error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, chatService.ErrConversationNotFound):
		return http.StatusNotFound
	case chatService.IsValidation(err):
		return http.StatusBadRequest
	case chatService.IsPrecondition(err):
		return http.StatusPreconditionFailed
	case chatService.IsRemote(err):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) respond(w http.ResponseWriter, status int, payload interface{}) {
	if err := utils.RespondJSON(w, status, payload); err != nil {
		h.logger.Warn("encode response failed", zap.Error(err))
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	if err := utils.RespondError(w, status, message); err != nil {
		h.logger.Warn("encode error response failed", zap.Error(err))
	}
}
