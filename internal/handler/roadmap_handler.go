package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"voice-tutor-go/internal/service"
	"voice-tutor-go/pkg/log"
)

// RoadmapHandler 负责路线的生成、查询和检索。
type RoadmapHandler struct {
	roadmapService service.RoadmapService
}

// NewRoadmapHandler 创建一个新的 RoadmapHandler。
func NewRoadmapHandler(roadmapService service.RoadmapService) *RoadmapHandler {
	return &RoadmapHandler{roadmapService: roadmapService}
}

// CreateRoadmapRequest 是 /create-roadmap 的请求体。
type CreateRoadmapRequest struct {
	Prompt    string `json:"prompt" binding:"required"`
	SessionID string `json:"session_id"`
}

func (h *RoadmapHandler) CreateRoadmap(c *gin.Context) {
	var req CreateRoadmapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	log.Infof("[RoadmapHandler] 生成路线请求, session=%q", req.SessionID)
	result, err := h.roadmapService.CreateWithAudio(c.Request.Context(), req.Prompt, req.SessionID)
	if err != nil {
		abortWithError(c, "RoadmapHandler", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *RoadmapHandler) GetLesson(c *gin.Context) {
	day, err := strconv.Atoi(c.Param("day"))
	if err != nil {
		badRequest(c, "day must be an integer")
		return
	}
	lesson, err := h.roadmapService.GetDay(c.Request.Context(), c.Param("roadmap_id"), day)
	if err != nil {
		abortWithError(c, "RoadmapHandler", err)
		return
	}
	c.JSON(http.StatusOK, lesson)
}

func (h *RoadmapHandler) ListRoadmaps(c *gin.Context) {
	roadmaps, err := h.roadmapService.List(c.Request.Context())
	if err != nil {
		abortWithError(c, "RoadmapHandler", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"roadmaps": roadmaps})
}

func (h *RoadmapHandler) GetRoadmap(c *gin.Context) {
	view, err := h.roadmapService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, "RoadmapHandler", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *RoadmapHandler) SummaryAudio(c *gin.Context) {
	data, err := h.roadmapService.SummaryAudio(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, "RoadmapHandler", err)
		return
	}
	c.Data(http.StatusOK, "audio/wav", data)
}

// Search 在已索引的路线中做全文检索。
func (h *RoadmapHandler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		badRequest(c, "query parameter q is required")
		return
	}
	size, err := strconv.Atoi(c.DefaultQuery("size", "10"))
	if err != nil || size <= 0 {
		size = 10
	}
	results, err := h.roadmapService.Search(c.Request.Context(), query, size)
	if err != nil {
		abortWithError(c, "RoadmapHandler", err)
		return
	}
	log.Infof("[RoadmapHandler] 检索成功, q=%q, 返回 %d 条结果", query, len(results))
	c.JSON(http.StatusOK, gin.H{"results": results})
}
