package router

import (
	"github.com/gin-gonic/gin"

	"github.com/kgbold/bold/internal/config"
	"github.com/kgbold/bold/internal/handler"
	"github.com/kgbold/bold/internal/middleware"
)

// SetupRouter 设置路由
func SetupRouter(h *handler.Handlers, cfg *config.Config) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(middleware.RecoveryMiddleware())
	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.AuthMiddleware(cfg.Auth.JWTSecret))

	// 健康检查
	r.GET("/health", h.System.Health)

	// API v1
	v1 := r.Group("/api/v1")
	{
		// Dataset 数据集
		datasets := v1.Group("/datasets")
		{
			datasets.POST("", h.Dataset.CreateDataset)
			datasets.GET("", h.Dataset.ListDatasets)
			datasets.GET("/:id", h.Dataset.GetDataset)
			datasets.PUT("/:id", h.Dataset.UpdateDataset)
			datasets.DELETE("/:id", h.Dataset.DeleteDataset)
			datasets.POST("/:id/import", h.Dataset.ImportDataset)
			datasets.GET("/:id/search", h.Dataset.SearchTerms)
			datasets.POST("/:id/query", h.Dataset.QueryDataset)
		}

		// Upload 数据文件上传
		v1.POST("/uploads", h.Dataset.UploadFiles)

		// LODC 数据目录
		lodc := v1.Group("/lodc")
		{
			lodc.GET("", h.LODC.ListCatalog)
			lodc.GET("/:id", h.LODC.GetCatalogDataset)
		}

		// Task 后台任务
		tasks := v1.Group("/tasks")
		{
			tasks.GET("", h.Task.ListTasks)
			tasks.GET("/:id", h.Task.GetTask)
			tasks.DELETE("/:id", h.Task.RevokeTask)
		}
	}

	return r
}
