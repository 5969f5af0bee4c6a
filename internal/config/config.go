package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Stardog  StardogConfig
	Meili    MeiliConfig
	Lodc     LodcConfig
	Storage  StorageConfig
	Import   ImportConfig
	Query    QueryConfig
	Auth     AuthConfig
}

// AuthConfig 认证配置
type AuthConfig struct {
	JWTSecret string
}

// AppConfig 应用配置
type AppConfig struct {
	Name        string
	Environment string
	Version     string
	Debug       bool
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host         string
	Port         int
	Mode         string
	ReadTimeout  int
	WriteTimeout int
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
}

// RedisConfig Redis配置
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// StardogConfig Stardog 三元组存储配置
type StardogConfig struct {
	Endpoint string
	Username string
	Password string
	// 容器内可见的数据目录，加载文件时本地路径需要映射过去
	ImportRoot   string
	DownloadRoot string
}

// MeiliConfig Meilisearch 词项索引配置
type MeiliConfig struct {
	Host   string
	APIKey string
}

// LodcConfig Linked Open Data Cloud 目录配置
type LodcConfig struct {
	Endpoint string
	CacheTTL int // 秒
	Timeout  int // 秒
}

// StorageConfig 本地存储目录配置
type StorageConfig struct {
	ImportDir   string
	DownloadDir string
	DataDir     string
}

// ImportConfig 导入流水线配置
type ImportConfig struct {
	Workers         int
	MinTermCount    int
	IndexBatchSize  int
	DownloadTimeout int // 秒
	ExportTimeout   int // 秒，单个词项导出查询的超时
}

// QueryConfig 查询配置
type QueryConfig struct {
	MaxRedirects   int
	DefaultLimit   int
	DefaultTimeout int // 毫秒
}

var globalConfig *Config

// Load 加载配置
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// 环境变量
	v.SetEnvPrefix("BOLD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	globalConfig = &cfg
	return &cfg, nil
}

// Get 获取全局配置
func Get() *Config {
	if globalConfig == nil {
		panic("config not loaded")
	}
	return globalConfig
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// GetAddr 获取服务器地址
func (c *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetAddr 获取 Redis 地址
func (c *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "bold")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.debug", true)

	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 30)

	// Database
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "bold")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.maxLifetime", 300)

	// Redis
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	// Stardog
	v.SetDefault("stardog.endpoint", "http://localhost:5820")
	v.SetDefault("stardog.username", "admin")
	v.SetDefault("stardog.password", "admin")
	v.SetDefault("stardog.importRoot", "/var/data/import")
	v.SetDefault("stardog.downloadRoot", "/var/data/downloads")

	// Meilisearch
	v.SetDefault("meili.host", "http://localhost:7700")
	v.SetDefault("meili.apiKey", "masterKey")

	// LOD Cloud
	v.SetDefault("lodc.endpoint", "https://lod-cloud.net")
	v.SetDefault("lodc.cacheTTL", 86400)
	v.SetDefault("lodc.timeout", 30)

	// Storage
	v.SetDefault("storage.importDir", "./storage/import")
	v.SetDefault("storage.downloadDir", "./storage/downloads")
	v.SetDefault("storage.dataDir", "./storage/data")

	// Import
	v.SetDefault("import.workers", 4)
	v.SetDefault("import.minTermCount", 3)
	v.SetDefault("import.indexBatchSize", 5000)
	v.SetDefault("import.downloadTimeout", 600)
	v.SetDefault("import.exportTimeout", 3600)

	// Query
	v.SetDefault("query.maxRedirects", 3)
	v.SetDefault("query.defaultLimit", 10)
	v.SetDefault("query.defaultTimeout", 5000)

	// Auth
	v.SetDefault("auth.jwtSecret", "change-me")
}
