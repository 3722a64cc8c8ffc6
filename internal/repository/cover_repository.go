package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
)

// ErrCoverNotFound 表示对象存储中没有该条目的封面，属于正常情况。
var ErrCoverNotFound = errors.New("cover not found")

// CoverRepository 接口定义了条目封面的读写操作。
type CoverRepository interface {
	// GetCover 返回对象的原始字节；对象不存在时返回 ErrCoverNotFound。
	GetCover(ctx context.Context, key string) ([]byte, error)
	PutCover(ctx context.Context, key string, data []byte, contentType string) error
}

// coverRepository 是 CoverRepository 接口的 MinIO 实现。
type coverRepository struct {
	client     *minio.Client
	bucketName string
}

// NewCoverRepository 创建一个新的 CoverRepository 实例。
func NewCoverRepository(client *minio.Client, bucketName string) CoverRepository {
	return &coverRepository{client: client, bucketName: bucketName}
}

func (r *coverRepository) GetCover(ctx context.Context, key string) ([]byte, error) {
	obj, err := r.client.GetObject(ctx, r.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapCoverError(key, err)
	}
	defer obj.Close()

	// GetObject 是惰性的，真正的请求错误在第一次读取时才返回
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, mapCoverError(key, err)
	}
	return data, nil
}

func (r *coverRepository) PutCover(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := r.client.PutObject(ctx, r.bucketName, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("上传封面 %s 失败: %w", key, err)
	}
	return nil
}

func mapCoverError(key string, err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrCoverNotFound, key)
	}
	return fmt.Errorf("读取封面 %s 失败: %w", key, err)
}
