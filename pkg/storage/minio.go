// Package storage 提供了与对象存储服务（如 MinIO）交互的功能。
package storage

import (
	"context"
	"fmt"
	"shelf-search-go/internal/config"
	"shelf-search-go/pkg/log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// NewMinIOClient 根据配置创建 MinIO 客户端。配置了 region 时不再额外查询存储桶位置。
func NewMinIOClient(cfg config.MinIOConfig) (*minio.Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 MinIO 客户端失败: %w", err)
	}
	return client, nil
}

// InitMinIO 初始化 MinIO 客户端并确保指定的存储桶存在。
// createBucket 为 false 时（搜索服务只读封面）只检查存储桶是否存在。
func InitMinIO(ctx context.Context, cfg config.MinIOConfig, createBucket bool) (*minio.Client, error) {
	// 1. 初始化 MinIO 客户端
	client, err := NewMinIOClient(cfg)
	if err != nil {
		return nil, err
	}
	log.Info("MinIO 客户端初始化成功")

	// 2. 检查存储桶 (Bucket) 是否存在
	bucketName := cfg.BucketName
	exists, err := client.BucketExists(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("检查 MinIO 存储桶失败: %w", err)
	}
	if exists {
		log.Infof("存储桶 '%s' 已存在", bucketName)
		return client, nil
	}
	if !createBucket {
		log.Warnf("存储桶 '%s' 不存在，所有条目都将没有封面", bucketName)
		return client, nil
	}

	log.Infof("存储桶 '%s' 不存在，正在创建...", bucketName)
	if err := client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
		return nil, fmt.Errorf("创建 MinIO 存储桶失败: %w", err)
	}
	log.Infof("存储桶 '%s' 创建成功", bucketName)
	return client, nil
}
