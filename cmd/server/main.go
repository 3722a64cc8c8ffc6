// Package main 是搜索服务的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"shelf-search-go/internal/config"
	"shelf-search-go/internal/handler"
	"shelf-search-go/internal/middleware"
	"shelf-search-go/internal/pipeline"
	"shelf-search-go/internal/repository"
	"shelf-search-go/internal/search"
	"shelf-search-go/internal/service"
	"shelf-search-go/pkg/database"
	"shelf-search-go/pkg/es"
	"shelf-search-go/pkg/kafka"
	"shelf-search-go/pkg/log"
	"shelf-search-go/pkg/storage"
	"shelf-search-go/pkg/token"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 初始化配置
	configPath := os.Getenv("SHELF_CONFIG")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}
	config.Init(configPath)
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	ctx := context.Background()

	// 3. 初始化目录存储与封面存储
	catalogRepo, closeCatalog, err := newCatalogRepository(ctx, cfg)
	if err != nil {
		log.Fatal("初始化目录存储失败", err)
	}
	defer closeCatalog()

	minioClient, err := storage.InitMinIO(ctx, cfg.MinIO, false)
	if err != nil {
		log.Fatal("初始化 MinIO 失败", err)
	}
	coverRepo := repository.NewCoverRepository(minioClient, cfg.MinIO.BucketName)

	// 4. 初始化 Service (依赖注入)
	matcher, err := search.NewMatcher(cfg.Search)
	if err != nil {
		log.Fatal("初始化匹配引擎失败", err)
	}
	indexService := service.NewIndexService(
		service.NewCatalogFetcher(catalogRepo, cfg.Catalog.PageSize),
		matcher,
		search.NewMemoryCache(),
		cfg.Search.FreshnessWindow,
		service.WithBuildTimeout(cfg.Search.BuildTimeout),
	)
	coverResolver := service.NewCoverResolver(coverRepo, cfg.Cover.Concurrency, cfg.Cover.Timeout)
	searchService := service.NewSearchService(indexService, coverResolver, cfg.Search.Limit)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTokenExpireHours)

	// 5. 启动后台 Kafka 消费者，目录变更时丢弃缓存索引
	consumerCtx, stopConsumer := context.WithCancel(ctx)
	consumerDone := make(chan struct{})
	if cfg.Kafka.Enabled {
		go func() {
			defer close(consumerDone)
			kafka.StartConsumer(consumerCtx, cfg.Kafka, pipeline.NewInvalidator(indexService))
		}()
	} else {
		close(consumerDone)
		log.Info("Kafka 未启用，缓存索引仅按新鲜窗口过期")
	}

	// 6. 设置 Gin 模式并注册路由
	gin.SetMode(cfg.Server.Mode)
	r := setupRouter(jwtManager, handler.NewSearchHandler(searchService))

	// 7. 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("服务启动于 %s, 目录后端: %s, 匹配引擎: %s", srv.Addr, cfg.Catalog.Backend, cfg.Search.Engine)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 设置一个5秒的超时上下文
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("HTTP 服务器关闭失败: %v", err)
	}
	stopConsumer()
	select {
	case <-consumerDone:
	case <-shutdownCtx.Done():
		log.Warnf("等待 Kafka 消费者退出超时")
	}

	log.Info("服务已优雅关闭")
}

// setupRouter 注册中间件和搜索路由。/search 是 /api/v1/search 的别名。
func setupRouter(jwtManager *token.JWTManager, searchHandler *handler.SearchHandler) *gin.Engine {
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.Use(middleware.RequestLogger(), gin.Recovery(), middleware.CORS())

	auth := middleware.AuthMiddleware(jwtManager)

	apiV1 := r.Group("/api/v1")
	{
		apiV1.POST("/search", auth, searchHandler.Search)
	}
	r.POST("/search", auth, searchHandler.Search)

	return r
}

// newCatalogRepository 按配置选择目录后端，返回的关闭函数用于释放连接。
func newCatalogRepository(ctx context.Context, cfg config.Config) (repository.CatalogRepository, func(), error) {
	switch cfg.Catalog.Backend {
	case config.CatalogBackendMySQL:
		db, err := database.InitMySQL(cfg.Database.MySQL.DSN)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		return repository.NewCatalogMySQLRepository(db), closeFn, nil

	case config.CatalogBackendElasticsearch:
		client, err := es.InitES(ctx, cfg.Elasticsearch, cfg.Catalog.ESIndex)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewCatalogESRepository(client, cfg.Catalog.ESIndex), func() {}, nil

	default:
		rdb, err := database.InitRedis(ctx, cfg.Database.Redis)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewCatalogRedisRepository(rdb, cfg.Catalog.RedisKeyPrefix), func() { _ = rdb.Close() }, nil
	}
}
