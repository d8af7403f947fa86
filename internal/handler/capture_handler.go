package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"voice-tutor-go/pkg/log"
	"voice-tutor-go/pkg/speech"
)

// CaptureHandler 把上传的录音转写为文字。
type CaptureHandler struct {
	transcriber speech.Transcriber
	maxBytes    int64
}

// NewCaptureHandler 创建一个新的 CaptureHandler。maxBytes <= 0 表示不限制大小。
func NewCaptureHandler(transcriber speech.Transcriber, maxBytes int64) *CaptureHandler {
	return &CaptureHandler{transcriber: transcriber, maxBytes: maxBytes}
}

// Capture 处理 multipart 表单中的 "audio" 文件。
func (h *CaptureHandler) Capture(c *gin.Context) {
	if h.maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)
	}
	fileHeader, err := c.FormFile("audio")
	if err != nil {
		badRequest(c, "missing audio file: "+err.Error())
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		abortWithError(c, "CaptureHandler", err)
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		abortWithError(c, "CaptureHandler", err)
		return
	}
	log.Infof("[CaptureHandler] 收到录音: %s, %d 字节", fileHeader.Filename, len(audio))

	transcript, err := h.transcriber.Transcribe(c.Request.Context(), audio)
	if err != nil {
		abortWithError(c, "CaptureHandler", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transcript": transcript})
}
