// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// 可选的目录后端与匹配引擎。
const (
	CatalogBackendRedis         = "redis"
	CatalogBackendMySQL         = "mysql"
	CatalogBackendElasticsearch = "elasticsearch"

	SearchEngineFuse  = "fuse"
	SearchEngineBleve = "bleve"
)

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Log           LogConfig           `mapstructure:"log"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Catalog       CatalogConfig       `mapstructure:"catalog"`
	Search        SearchConfig        `mapstructure:"search"`
	Cover         CoverConfig         `mapstructure:"cover"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// JWTConfig 存储 JWT 相关的配置。
type JWTConfig struct {
	Secret                 string `mapstructure:"secret"`
	Issuer                 string `mapstructure:"issuer"`
	AccessTokenExpireHours int    `mapstructure:"access_token_expire_hours"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ElasticsearchConfig 存储 Elasticsearch 相关的配置。
type ElasticsearchConfig struct {
	Addresses string `mapstructure:"addresses"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
}

// MinIOConfig 存储封面图所在对象存储的配置。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	Region          string `mapstructure:"region"`
	BucketName      string `mapstructure:"bucket_name"`
}

// KafkaConfig 存储目录变更事件主题的配置。
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
	Enabled bool   `mapstructure:"enabled"`
}

// CatalogConfig 描述目录数据从哪个后端分页读取。
type CatalogConfig struct {
	Backend        string `mapstructure:"backend"`
	PageSize       int    `mapstructure:"page_size"`
	RedisKeyPrefix string `mapstructure:"redis_key_prefix"`
	ESIndex        string `mapstructure:"es_index"`
}

// SearchConfig 控制模糊匹配与索引缓存。
type SearchConfig struct {
	Engine             string        `mapstructure:"engine"`
	Limit              int           `mapstructure:"limit"`
	FreshnessWindow    time.Duration `mapstructure:"freshness_window"`
	Threshold          float64       `mapstructure:"threshold"`
	Distance           int           `mapstructure:"distance"`
	MinMatchCharLength int           `mapstructure:"min_match_char_length"`
	BleveFuzziness     int           `mapstructure:"bleve_fuzziness"`
	BuildTimeout       time.Duration `mapstructure:"build_timeout"`
}

// CoverConfig 控制封面并发拉取。
type CoverConfig struct {
	Concurrency int           `mapstructure:"concurrency"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_path", "")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "shelf")
	v.SetDefault("jwt.access_token_expire_hours", 24)
	v.SetDefault("database.mysql.dsn", "")
	v.SetDefault("database.redis.addr", "localhost:6379")
	v.SetDefault("database.redis.password", "")
	v.SetDefault("database.redis.db", 0)
	v.SetDefault("elasticsearch.addresses", "http://localhost:9200")
	v.SetDefault("elasticsearch.username", "")
	v.SetDefault("elasticsearch.password", "")
	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.access_key_id", "")
	v.SetDefault("minio.secret_access_key", "")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.region", "us-east-1")
	v.SetDefault("minio.bucket_name", "shelf-covers")
	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.topic", "catalog-changes")
	v.SetDefault("kafka.group_id", "shelf-search")
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("catalog.backend", CatalogBackendRedis)
	v.SetDefault("catalog.page_size", 50)
	v.SetDefault("catalog.redis_key_prefix", "catalog:")
	v.SetDefault("catalog.es_index", "catalog")
	v.SetDefault("search.engine", SearchEngineFuse)
	v.SetDefault("search.limit", 10)
	v.SetDefault("search.freshness_window", 15*time.Minute)
	v.SetDefault("search.threshold", 0.6)
	v.SetDefault("search.distance", 100)
	v.SetDefault("search.min_match_char_length", 2)
	v.SetDefault("search.bleve_fuzziness", 2)
	v.SetDefault("search.build_timeout", time.Minute)
	v.SetDefault("cover.concurrency", 16)
	v.SetDefault("cover.timeout", 5*time.Second)
}

// Load 读取指定路径的 YAML 文件并返回配置；path 为空时只使用默认值和环境变量。
// 环境变量形如 SHELF_CATALOG_BACKEND，会覆盖文件中的值。
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("SHELF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验会影响搜索语义的配置项。
func (c *Config) Validate() error {
	switch c.Catalog.Backend {
	case CatalogBackendRedis, CatalogBackendMySQL, CatalogBackendElasticsearch:
	default:
		return fmt.Errorf("config: unsupported catalog.backend %q", c.Catalog.Backend)
	}
	switch c.Search.Engine {
	case SearchEngineFuse, SearchEngineBleve:
	default:
		return fmt.Errorf("config: unsupported search.engine %q", c.Search.Engine)
	}
	if c.Catalog.PageSize <= 0 {
		return fmt.Errorf("config: catalog.page_size must be positive, got %d", c.Catalog.PageSize)
	}
	if c.Search.Limit <= 0 {
		return fmt.Errorf("config: search.limit must be positive, got %d", c.Search.Limit)
	}
	if c.Search.FreshnessWindow <= 0 {
		return fmt.Errorf("config: search.freshness_window must be positive, got %s", c.Search.FreshnessWindow)
	}
	if c.Search.Threshold < 0 || c.Search.Threshold > 1 {
		return fmt.Errorf("config: search.threshold must be within [0,1], got %v", c.Search.Threshold)
	}
	return nil
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
func Init(configPath string) {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	Conf = *cfg
}
