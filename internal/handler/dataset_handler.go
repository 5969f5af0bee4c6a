package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kgbold/bold/internal/service/dataset"
)

// DatasetHandler 数据集处理器
type DatasetHandler struct {
	svc *dataset.Service
}

// NewDatasetHandler 创建数据集处理器
func NewDatasetHandler(svc *dataset.Service) *DatasetHandler {
	return &DatasetHandler{svc: svc}
}

// CreateDataset 创建数据集并排队导入
func (h *DatasetHandler) CreateDataset(c *gin.Context) {
	var req dataset.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	data, err := h.svc.Create(c.Request.Context(), &req)
	if err != nil {
		Error(c, err)
		return
	}
	Created(c, data)
}

// GetDataset 获取数据集
func (h *DatasetHandler) GetDataset(c *gin.Context) {
	data, err := h.svc.Get(c.Param("id"))
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, data)
}

// ListDatasets 列出数据集
func (h *DatasetHandler) ListDatasets(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	searchTerm := c.Query("search")

	datasets, total, err := h.svc.List(page, pageSize, searchTerm)
	if err != nil {
		Error(c, err)
		return
	}
	SuccessWithPagination(c, datasets, total, page, pageSize)
}

// UpdateDataset 更新数据集
func (h *DatasetHandler) UpdateDataset(c *gin.Context) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	data, err := h.svc.Update(c.Param("id"), req.Name, req.Description)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, data)
}

// DeleteDataset 删除数据集，回收在后台执行
func (h *DatasetHandler) DeleteDataset(c *gin.Context) {
	taskID, err := h.svc.Delete(c.Param("id"))
	if err != nil {
		Error(c, err)
		return
	}
	Accepted(c, gin.H{"task_id": taskID})
}

// ImportDataset 重新导入数据集
func (h *DatasetHandler) ImportDataset(c *gin.Context) {
	data, err := h.svc.Import(c.Param("id"))
	if err != nil {
		Error(c, err)
		return
	}
	Accepted(c, data)
}

// UploadFiles 上传数据文件，返回的路径可填进 upload 来源
func (h *DatasetHandler) UploadFiles(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	var paths []string
	for _, header := range form.File["files"] {
		file, err := header.Open()
		if err != nil {
			Error(c, err)
			return
		}
		path, err := h.svc.SaveUpload(c.Request.Context(), header.Filename, file)
		file.Close()
		if err != nil {
			Error(c, err)
			return
		}
		paths = append(paths, path)
	}
	if len(paths) == 0 {
		BadRequest(c, "no files uploaded")
		return
	}
	Created(c, gin.H{"files": paths})
}

// SearchTerms 在数据集中搜索词项
func (h *DatasetHandler) SearchTerms(c *gin.Context) {
	var req dataset.SearchTermsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	result, err := h.svc.SearchTerms(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, result)
}

// QueryDataset 在数据集上执行 SPARQL 查询
// 结果按查询服务返回的内容类型原样透传
func (h *DatasetHandler) QueryDataset(c *gin.Context) {
	var req dataset.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	result, err := h.svc.RunQuery(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		Error(c, err)
		return
	}
	c.Data(200, result.ContentType, result.Data)
}
