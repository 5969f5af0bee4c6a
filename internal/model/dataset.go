package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DatasetState 数据集导入状态
type DatasetState string

const (
	DatasetQueued    DatasetState = "QUEUED"    // 等待导入
	DatasetImporting DatasetState = "IMPORTING" // 导入中
	DatasetImported  DatasetState = "IMPORTED"  // 导入完成
	DatasetFailed    DatasetState = "FAILED"    // 导入失败
)

// DatasetMode 查询后端模式
type DatasetMode string

const (
	ModeLocal  DatasetMode = "LOCAL"  // 本地 Stardog 数据库
	ModeSparql DatasetMode = "SPARQL" // 远程 SPARQL 端点
)

// SearchMode 词项搜索后端模式
type SearchMode string

const (
	SearchLocal    SearchMode = "LOCAL"    // 本地 Meilisearch 词项索引
	SearchWikidata SearchMode = "WIKIDATA" // Wikidata 实体搜索 API
	SearchTriplyDB SearchMode = "TRIPLYDB" // TriplyDB 托管的全文索引
)

// 数据集来源类型
const (
	SourceURLs     = "urls"     // URL 列表下载
	SourceLODC     = "lodc"     // LOD Cloud 目录数据集
	SourceExisting = "existing" // 已存在的数据库
	SourceSparql   = "sparql"   // 远程 SPARQL 端点
	SourceUpload   = "upload"   // 用户上传的文件
)

// Dataset 知识图谱数据集
type Dataset struct {
	ID             string       `json:"id" gorm:"primaryKey;size:36"`
	Name           string       `json:"name" gorm:"size:255;index"`
	Description    string       `json:"description" gorm:"type:text"`
	Source         JSON         `json:"source" gorm:"type:jsonb"` // {source_type, urls|lodc_id|database|sparql}
	Mode           DatasetMode  `json:"mode" gorm:"size:20;default:LOCAL"`
	SearchMode     SearchMode   `json:"search_mode" gorm:"size:20;default:LOCAL"`
	State          DatasetState `json:"state" gorm:"size:20;index;default:QUEUED"`
	LocalDatabase  string       `json:"local_database" gorm:"size:255"`
	SparqlEndpoint string       `json:"sparql_endpoint" gorm:"size:255"`
	Statistics     JSON         `json:"statistics" gorm:"type:jsonb"`
	Namespaces     Namespaces   `json:"namespaces" gorm:"type:jsonb"`
	ImportTaskID   string       `json:"import_task_id" gorm:"size:36"`
	CreatedAt      time.Time    `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time    `json:"updated_at" gorm:"autoUpdateTime"`
}

// BeforeCreate GORM 钩子，创建前生成 UUID
func (d *Dataset) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	return nil
}

// TableName 指定表名
func (Dataset) TableName() string {
	return "datasets"
}

// SourceType 返回来源类型标签
func (d *Dataset) SourceType() string {
	if d.Source == nil {
		return ""
	}
	t, _ := d.Source["source_type"].(string)
	return t
}

// SourceURLList 返回 urls 来源的 URL 列表
func (d *Dataset) SourceURLList() []string {
	raw, ok := d.Source["urls"].([]interface{})
	if !ok {
		return nil
	}
	urls := make([]string, 0, len(raw))
	for _, u := range raw {
		if s, ok := u.(string); ok {
			urls = append(urls, s)
		}
	}
	return urls
}

// SourceString 返回来源中的字符串字段
func (d *Dataset) SourceString(key string) string {
	if d.Source == nil {
		return ""
	}
	s, _ := d.Source[key].(string)
	return s
}

// TripleCount 返回统计信息中的三元组数量
func (d *Dataset) TripleCount() int64 {
	if d.Statistics == nil {
		return 0
	}
	switch v := d.Statistics["triple_count"].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}
