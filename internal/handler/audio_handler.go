package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"voice-tutor-go/internal/service"
)

// AudioHandler 负责语音合成、音频会话和音频文件下载。
type AudioHandler struct {
	audioService service.AudioService
}

// NewAudioHandler 创建一个新的 AudioHandler。
func NewAudioHandler(audioService service.AudioService) *AudioHandler {
	return &AudioHandler{audioService: audioService}
}

// TextToSpeechRequest 是 /text-to-speech 的请求体。
type TextToSpeechRequest struct {
	Text      string `json:"text" binding:"required"`
	SessionID string `json:"session_id"`
}

// SessionRequest 是 /cleanup-session 的请求体。
type SessionRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

func (h *AudioHandler) CreateSession(c *gin.Context) {
	id, err := h.audioService.CreateSession(c.Request.Context())
	if err != nil {
		abortWithError(c, "AudioHandler", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": id})
}

func (h *AudioHandler) TextToSpeech(c *gin.Context) {
	var req TextToSpeechRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	ref, err := h.audioService.Synthesize(c.Request.Context(), req.Text, req.SessionID)
	if err != nil {
		abortWithError(c, "AudioHandler", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"audio_url": ref.URL})
}

func (h *AudioHandler) CleanupSession(c *gin.Context) {
	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	found, err := h.audioService.CleanupSession(c.Request.Context(), req.SessionID)
	if err != nil {
		abortWithError(c, "AudioHandler", err)
		return
	}
	if !found {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "Session not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Session cleaned up"})
}

// ServeAudio 返回 /audio/:filename 对应的 wav 文件。
func (h *AudioHandler) ServeAudio(c *gin.Context) {
	data, err := h.audioService.Open(c.Request.Context(), c.Param("filename"))
	if err != nil {
		abortWithError(c, "AudioHandler", err)
		return
	}
	c.Data(http.StatusOK, "audio/wav", data)
}
