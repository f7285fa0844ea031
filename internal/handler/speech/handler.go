package speech

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	chatService "github.com/zhouzirui/studio-chat/backend/internal/service/chat"
	speechService "github.com/zhouzirui/studio-chat/backend/internal/service/speech"
	"github.com/zhouzirui/studio-chat/backend/pkg/utils"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = 54 * time.Second
	writeWait    = 10 * time.Second
)

// Handler 将会话的朗读事件通过 WebSocket 推送给唯一的语音客户端
type Handler struct {
	chatSvc  *chatService.Service
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// New 创建语音事件处理器
func New(chatSvc *chatService.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		chatSvc: chatSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger.Named("http.speech"),
	}
}

// RegisterRoutes 注册语音事件路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/conversations/{conversationID}/speech/ws", h.handleWebSocket)
}

type outgoingMessage struct {
	Type           string      `json:"type"`
	ConversationID string      `json:"conversationId,omitempty"`
	Data           interface{} `json:"data,omitempty"`
	Timestamp      int64       `json:"timestamp"`
}

// handleWebSocket 处理WebSocket连接
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversationID")
	conv, err := h.chatSvc.GetConversation(r.Context(), id)
	if err != nil {
		_ = utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}

	events, release, err := conv.SpeechEvents()
	switch {
	case errors.Is(err, speechService.ErrSubscriberAttached):
		_ = utils.RespondError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, speechService.ErrBridgeClosed):
		_ = utils.RespondError(w, http.StatusGone, err.Error())
		return
	case err != nil:
		_ = utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer release()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.String("conversation", id), zap.Error(err))
		return
	}
	defer conn.Close()

	h.logger.Info("speech client attached", zap.String("conversation", id))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	go h.readLoop(conn, cancel)

	if err := h.send(conn, outgoingMessage{Type: "connected", ConversationID: id}); err != nil {
		return
	}

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("speech client detached", zap.String("conversation", id))
			return
		case ev, ok := <-events:
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "conversation closed"))
				return
			}
			if err := h.send(conn, outgoingMessage{Type: "speak", ConversationID: id, Data: ev}); err != nil {
				h.logger.Warn("speak event write failed", zap.String("conversation", id), zap.Error(err))
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop 只负责处理控制帧并感知断开；客户端发来的数据帧被忽略。
func (h *Handler) readLoop(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}

func (h *Handler) send(conn *websocket.Conn, msg outgoingMessage) error {
	msg.Timestamp = time.Now().Unix()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}
