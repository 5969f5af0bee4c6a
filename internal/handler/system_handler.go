package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/kgbold/bold/internal/config"
)

// SystemHandler 系统处理器
type SystemHandler struct {
	cfg *config.Config
}

// NewSystemHandler 创建系统处理器
func NewSystemHandler(cfg *config.Config) *SystemHandler {
	return &SystemHandler{cfg: cfg}
}

// Health 健康检查
func (h *SystemHandler) Health(c *gin.Context) {
	Success(c, gin.H{
		"status":  "ok",
		"name":    h.cfg.App.Name,
		"version": h.cfg.App.Version,
	})
}
