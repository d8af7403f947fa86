// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"voice-tutor-go/internal/repository"
	"voice-tutor-go/internal/service"
	"voice-tutor-go/pkg/log"
)

// notFound 列出映射为 404 的错误。
var notFound = []error{
	repository.ErrSessionNotFound,
	service.ErrRoadmapNotFound,
	service.ErrLessonNotFound,
	service.ErrSummaryAudioNotFound,
	service.ErrAudioNotFound,
}

func statusFor(err error) int {
	for _, target := range notFound {
		if errors.Is(err, target) {
			return http.StatusNotFound
		}
	}
	if errors.Is(err, service.ErrSessionNotReady) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// abortWithError 写出 {"detail": ...}，并按错误类型选择状态码。
func abortWithError(c *gin.Context, component string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Errorf("[%s] %s %s 失败: %v", component, c.Request.Method, c.Request.URL.Path, err)
	} else {
		log.Warnf("[%s] %s %s: %v", component, c.Request.Method, c.Request.URL.Path, err)
	}
	c.AbortWithStatusJSON(status, gin.H{"detail": err.Error()})
}

func badRequest(c *gin.Context, detail string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"detail": detail})
}

// Healthz 用于存活探针。
func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Recovery 用于 gin.CustomRecovery：panic 时同样返回 {"detail": ...}。
func Recovery(c *gin.Context, recovered any) {
	log.Errorf("[Recovery] %s %s panic: %v", c.Request.Method, c.Request.URL.Path, recovered)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": fmt.Sprintf("internal server error: %v", recovered)})
}
