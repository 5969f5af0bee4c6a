package repository

import (
	"github.com/kgbold/bold/internal/model"
	"gorm.io/gorm"
)

// datasetRepository 数据集仓库
type datasetRepository struct {
	db *gorm.DB
}

// NewDatasetRepository 创建数据集仓库
func NewDatasetRepository(db *gorm.DB) DatasetRepository {
	return &datasetRepository{db: db}
}

// Create 创建数据集
func (r *datasetRepository) Create(dataset *model.Dataset) error {
	return r.db.Create(dataset).Error
}

// GetByID 根据ID获取数据集
func (r *datasetRepository) GetByID(id string) (*model.Dataset, error) {
	var dataset model.Dataset
	err := r.db.Where("id = ?", id).First(&dataset).Error
	if err != nil {
		return nil, err
	}
	return &dataset, nil
}

// List 列出数据集，支持按名称/描述搜索
func (r *datasetRepository) List(offset, limit int, search string) ([]*model.Dataset, int64, error) {
	var datasets []*model.Dataset
	var total int64

	query := r.db.Model(&model.Dataset{})
	if search != "" {
		pattern := "%" + search + "%"
		query = query.Where("name ILIKE ? OR description ILIKE ?", pattern, pattern)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&datasets).Error
	return datasets, total, err
}

// Update 更新数据集
func (r *datasetRepository) Update(dataset *model.Dataset) error {
	return r.db.Save(dataset).Error
}

// UpdateFields 部分更新数据集字段
func (r *datasetRepository) UpdateFields(id string, fields map[string]interface{}) error {
	return r.db.Model(&model.Dataset{}).Where("id = ?", id).Updates(fields).Error
}

// Delete 删除数据集及其任务记录
func (r *datasetRepository) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&model.Task{}, "owner_kind = ? AND owner_id = ?", "dataset", id).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Dataset{}, "id = ?", id).Error
	})
}

// FindBySparqlEndpoint 按 SPARQL 端点查找数据集
func (r *datasetRepository) FindBySparqlEndpoint(endpoint string) (*model.Dataset, error) {
	var dataset model.Dataset
	err := r.db.Where("sparql_endpoint = ?", endpoint).First(&dataset).Error
	if err != nil {
		return nil, err
	}
	return &dataset, nil
}
