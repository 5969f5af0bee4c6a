package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/kgbold/bold/internal/service/lodc"
)

// LODCHandler LOD Cloud 目录处理器
type LODCHandler struct {
	client *lodc.Client
}

// NewLODCHandler 创建目录处理器
func NewLODCHandler(client *lodc.Client) *LODCHandler {
	return &LODCHandler{client: client}
}

// ListCatalog 列出目录中的数据集
// downloadable=true 时只返回有可导入转储的条目
func (h *LODCHandler) ListCatalog(c *gin.Context) {
	catalog, err := h.client.FetchAll(c.Request.Context())
	if err != nil {
		Error(c, err)
		return
	}

	onlyDownloadable := c.Query("downloadable") == "true"
	items := make([]lodc.Dataset, 0, len(catalog))
	for _, entry := range catalog {
		if onlyDownloadable && len(entry.KGDownloads()) == 0 {
			continue
		}
		items = append(items, entry)
	}
	Success(c, items)
}

// GetCatalogDataset 获取目录中的单个数据集
func (h *LODCHandler) GetCatalogDataset(c *gin.Context) {
	entry, err := h.client.FetchDataset(c.Request.Context(), c.Param("id"))
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, entry)
}
