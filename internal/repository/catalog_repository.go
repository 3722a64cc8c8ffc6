// Package repository 定义了与目录存储、封面存储进行数据交换的接口和实现。
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"shelf-search-go/internal/model"
	"shelf-search-go/pkg/log"
	"strconv"

	"github.com/go-redis/redis/v8"
)

// CatalogPage 是一次分页查询的结果。Next 为空表示已经没有后续页。
type CatalogPage struct {
	Rows []model.CatalogRow
	Next string
}

// CatalogRepository 接口定义了目录行的分页读取与写入操作。
type CatalogRepository interface {
	// QueryItems 读取 ownerID 分区下排序键以 item# 开头的行。
	// cursor 为空表示从头开始，limit 是单页的最大行数。
	QueryItems(ctx context.Context, ownerID, cursor string, limit int) (CatalogPage, error)
	// SaveRows 以覆盖写的方式保存目录行。
	SaveRows(ctx context.Context, rows []model.CatalogRow) error
}

// catalogRedisRepository 把每个用户的目录保存为一个 Hash：
// key = <prefix>owner#<ownerId>，field = 排序键，value = 行的 JSON。
type catalogRedisRepository struct {
	rdb    *redis.Client
	prefix string
}

// NewCatalogRedisRepository 创建一个基于 Redis Hash 的 CatalogRepository 实例。
func NewCatalogRedisRepository(rdb *redis.Client, prefix string) CatalogRepository {
	return &catalogRedisRepository{rdb: rdb, prefix: prefix}
}

func (r *catalogRedisRepository) partitionKey(ownerID string) string {
	return r.prefix + model.OwnerPartition(ownerID)
}

// QueryItems 使用 HSCAN 游标分页；Redis 的 COUNT 只是提示，单页可能多于或少于 limit。
func (r *catalogRedisRepository) QueryItems(ctx context.Context, ownerID, cursor string, limit int) (CatalogPage, error) {
	var start uint64
	if cursor != "" {
		parsed, err := strconv.ParseUint(cursor, 10, 64)
		if err != nil {
			return CatalogPage{}, fmt.Errorf("非法的 Redis 游标 %q: %w", cursor, err)
		}
		start = parsed
	}

	kvs, next, err := r.rdb.HScan(ctx, r.partitionKey(ownerID), start, model.ItemSortKeyPrefix+"*", int64(limit)).Result()
	if err != nil {
		return CatalogPage{}, fmt.Errorf("HSCAN %s 失败: %w", r.partitionKey(ownerID), err)
	}

	// kvs 是 field、value 交替排列的切片
	rows := make([]model.CatalogRow, 0, len(kvs)/2)
	for i := 0; i+1 < len(kvs); i += 2 {
		var row model.CatalogRow
		if err := json.Unmarshal([]byte(kvs[i+1]), &row); err != nil {
			// 跳过会让索引悄悄缺少条目，整页失败让本次重建中止
			log.Errorf("[CatalogRepo] 目录行无法解析, owner: %s, field: %s, error: %v", ownerID, kvs[i], err)
			return CatalogPage{}, fmt.Errorf("解析目录行 %s 失败: %w", kvs[i], err)
		}
		if row.SK == "" {
			row.SK = kvs[i]
		}
		rows = append(rows, row)
	}

	page := CatalogPage{Rows: rows}
	if next != 0 {
		page.Next = strconv.FormatUint(next, 10)
	}
	return page, nil
}

// SaveRows 使用一个 pipeline 写入全部行。
func (r *catalogRedisRepository) SaveRows(ctx context.Context, rows []model.CatalogRow) error {
	if len(rows) == 0 {
		return nil
	}
	pipe := r.rdb.TxPipeline()
	for _, row := range rows {
		data, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("序列化目录行失败 (sk %s): %w", row.SK, err)
		}
		pipe.HSet(ctx, r.prefix+row.PK, row.SK, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("写入 Redis 目录失败: %w", err)
	}
	return nil
}
