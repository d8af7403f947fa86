package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"voice-tutor-go/internal/middleware"
	"voice-tutor-go/internal/service"
	"voice-tutor-go/pkg/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源，来源限制由 CORS 中间件负责
	},
}

// WelcomeHandler 负责欢迎会话的 HTTP 与 WebSocket 接口。
type WelcomeHandler struct {
	welcomeService service.WelcomeService
	roadmapService service.RoadmapService
}

// NewWelcomeHandler 创建一个新的 WelcomeHandler。
func NewWelcomeHandler(welcomeService service.WelcomeService, roadmapService service.RoadmapService) *WelcomeHandler {
	return &WelcomeHandler{welcomeService: welcomeService, roadmapService: roadmapService}
}

// ChatRequest 是 /welcome/chat 的请求体。
type ChatRequest struct {
	GuestID   string `json:"guest_id" binding:"required"`
	UserInput string `json:"user_input"`
}

// GenerateRoadmapRequest 接受 learning_summary 或 guest_id 之一；两者都有时以会话为准。
type GenerateRoadmapRequest struct {
	LearningSummary string `json:"learning_summary"`
	GuestID         string `json:"guest_id"`
}

var errGuestMismatch = errors.New("token does not belong to this guest")

// checkGuest 在启用访客 token 时确认请求操作的是自己的会话。
func checkGuest(c *gin.Context, guestID string) bool {
	claimed, ok := middleware.GuestIDFrom(c)
	if ok && claimed != guestID {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": errGuestMismatch.Error()})
		return false
	}
	return true
}

func (h *WelcomeHandler) Start(c *gin.Context) {
	result, err := h.welcomeService.Start(c.Request.Context())
	if err != nil {
		abortWithError(c, "WelcomeHandler", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *WelcomeHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	if !checkGuest(c, req.GuestID) {
		return
	}
	result, err := h.welcomeService.Process(c.Request.Context(), req.GuestID, req.UserInput)
	if err != nil {
		abortWithError(c, "WelcomeHandler", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *WelcomeHandler) GenerateRoadmap(c *gin.Context) {
	var req GenerateRoadmapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	var (
		result *service.CreateRoadmapResult
		err    error
	)
	switch {
	case req.GuestID != "":
		if !checkGuest(c, req.GuestID) {
			return
		}
		result, err = h.welcomeService.GenerateRoadmap(c.Request.Context(), req.GuestID)
	case req.LearningSummary != "":
		result, err = h.roadmapService.CreateWithAudio(c.Request.Context(), req.LearningSummary, "")
	default:
		badRequest(c, "learning_summary or guest_id is required")
		return
	}
	if err != nil {
		abortWithError(c, "WelcomeHandler", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Stream 处理 /welcome/ws/:guest_id。每个文本帧是一句用户输入，每个回复是一轮处理结果的 JSON。
func (h *WelcomeHandler) Stream(c *gin.Context) {
	guestID := c.Param("guest_id")
	if !checkGuest(c, guestID) {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("[WelcomeHandler] WebSocket 升级失败", err)
		return
	}
	defer conn.Close()
	log.Infof("[WelcomeHandler] WebSocket 连接已建立, guest=%s", guestID)

	for {
		msgType, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warnf("[WelcomeHandler] 从 WebSocket 读取消息失败: %v", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		result, err := h.welcomeService.Process(c.Request.Context(), guestID, string(message))
		if err != nil {
			_ = conn.WriteJSON(gin.H{"detail": err.Error()})
			if statusFor(err) == http.StatusNotFound {
				return
			}
			continue
		}
		if err := conn.WriteJSON(result); err != nil {
			log.Warnf("[WelcomeHandler] 写入 WebSocket 失败: %v", err)
			return
		}
	}
}
