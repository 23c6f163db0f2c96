// Package http 轮次进度与归档结果的查询接口
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fieldfresh/mate/internal/matching/application"
)

// Handler 撮合服务的 HTTP 查询处理器
type Handler struct {
	manager *application.RoundManager
}

// NewHandler 创建处理器
func NewHandler(manager *application.RoundManager) *Handler {
	return &Handler{manager: manager}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)

	api := r.Group("/api/v1")
	api.GET("/rounds/:id", h.getRound)
	api.GET("/rounds/:id/matches", h.getMatches)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":           "ok",
		"in_flight_rounds": h.manager.InFlightRounds(),
	})
}

// getRound 优先返回累积中的轮次进度，已清算的轮次回落到归档
func (h *Handler) getRound(c *gin.Context) {
	roundID := c.Param("id")

	if status, ok := h.manager.RoundStatus(roundID); ok {
		c.JSON(http.StatusOK, gin.H{"state": "accumulating", "round": status})
		return
	}

	archived, err := h.manager.RoundArchive(c.Request.Context(), roundID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if archived == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "round not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"state": "cleared",
		"round": gin.H{
			"roundId":    archived.RoundID,
			"clearedAt":  archived.ClearedAt,
			"buyOrders":  archived.BuyOrders,
			"sellOrders": archived.SellOrders,
			"objective":  archived.Objective,
			"optimal":    archived.Optimal,
			"matchCount": archived.MatchCount,
		},
	})
}

func (h *Handler) getMatches(c *gin.Context) {
	roundID := c.Param("id")

	archived, err := h.manager.RoundArchive(c.Request.Context(), roundID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if archived == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "round not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"roundId": archived.RoundID,
		"matches": archived.Matches,
	})
}
