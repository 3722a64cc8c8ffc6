package repository

import (
	"context"
	"fmt"
	"shelf-search-go/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// catalogMySQLRepository 是 CatalogRepository 接口的 GORM 实现，按 (pk, sk) 做 keyset 分页。
type catalogMySQLRepository struct {
	db *gorm.DB
}

// NewCatalogMySQLRepository 创建一个新的基于 GORM 的 CatalogRepository 实例。
func NewCatalogMySQLRepository(db *gorm.DB) CatalogRepository {
	return &catalogMySQLRepository{db: db}
}

// QueryItems 的游标是上一页最后一行的排序键。
func (r *catalogMySQLRepository) QueryItems(ctx context.Context, ownerID, cursor string, limit int) (CatalogPage, error) {
	var rows []model.CatalogRow
	q := r.db.WithContext(ctx).
		Where("pk = ? AND sk LIKE ?", model.OwnerPartition(ownerID), model.ItemSortKeyPrefix+"%")
	if cursor != "" {
		q = q.Where("sk > ?", cursor)
	}
	if err := q.Order("sk ASC").Limit(limit).Find(&rows).Error; err != nil {
		return CatalogPage{}, fmt.Errorf("查询目录行失败: %w", err)
	}

	page := CatalogPage{Rows: rows}
	if limit > 0 && len(rows) == limit {
		page.Next = rows[len(rows)-1].SK
	}
	return page, nil
}

// SaveRows 在主键冲突时更新全部列。
func (r *catalogMySQLRepository) SaveRows(ctx context.Context, rows []model.CatalogRow) error {
	if len(rows) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		CreateInBatches(rows, 100).Error
	if err != nil {
		return fmt.Errorf("写入目录行失败: %w", err)
	}
	return nil
}
