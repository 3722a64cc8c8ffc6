// Package model 定义了目录条目、存储行与搜索响应的数据结构。
package model

import (
	"fmt"
	"strings"
)

const (
	// OwnerPartitionPrefix 是目录存储中按用户分区的键前缀。
	OwnerPartitionPrefix = "owner#"
	// ItemSortKeyPrefix 只匹配条目行，同一分区下的 library# 等行会被过滤掉。
	ItemSortKeyPrefix = "item#"
	// LibrarySortKeyPrefix 标识书库行。
	LibrarySortKeyPrefix = "library#"
)

// OwnerPartition 返回用户在目录存储中的分区键。
func OwnerPartition(ownerID string) string {
	return OwnerPartitionPrefix + ownerID
}

// ItemSortKey 返回条目行的排序键。
func ItemSortKey(itemID string) string {
	return ItemSortKeyPrefix + itemID
}

// CoverObjectKey 返回条目封面在对象存储中的 key。
func CoverObjectKey(ownerID, libraryID, itemID string) string {
	return fmt.Sprintf("user/%s/library/%s/item/%s", ownerID, libraryID, itemID)
}

// CatalogRow 对应目录存储中的一行原始数据，三种后端共用同一结构。
type CatalogRow struct {
	PK          string   `gorm:"column:pk;type:varchar(64);primaryKey" json:"pk"`
	SK          string   `gorm:"column:sk;type:varchar(191);primaryKey" json:"sk"`
	ID          string   `gorm:"column:id;type:varchar(64);not null" json:"id"`
	OwnerID     string   `gorm:"column:owner_id;type:varchar(64);not null" json:"ownerId"`
	LibraryID   string   `gorm:"column:library_id;type:varchar(64)" json:"libraryId"`
	LibraryName string   `gorm:"column:library_name;type:varchar(255)" json:"libraryName"`
	Title       string   `gorm:"column:title;type:varchar(512)" json:"title"`
	Authors     []string `gorm:"column:authors;type:text;serializer:json" json:"authors"`
	ISBN        string   `gorm:"column:isbn;type:varchar(32)" json:"isbn"`
	Summary     string   `gorm:"column:summary;type:text" json:"summary"`
	Type        string   `gorm:"column:type;type:varchar(32)" json:"type"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (CatalogRow) TableName() string {
	return "catalog_rows"
}

// IsItem 判断该行是否为条目行。
func (r CatalogRow) IsItem() bool {
	return strings.HasPrefix(r.SK, ItemSortKeyPrefix)
}

// CatalogItem 是参与模糊匹配的目录条目，每次重建索引时从原始行新建，之后不再修改。
type CatalogItem struct {
	ID          string
	OwnerID     string
	LibraryID   string
	LibraryName string
	Title       string
	Authors     []string
	ISBN        string
	Summary     string
	Type        string
	// Keywords = {title} ∪ authors，仅用于匹配，不会直接返回给前端。
	Keywords []string
}

// NewCatalogItem 根据原始行构造条目并计算关键词集合。
func NewCatalogItem(row CatalogRow) CatalogItem {
	authors := make([]string, len(row.Authors))
	copy(authors, row.Authors)

	keywords := make([]string, 0, len(authors)+1)
	keywords = append(keywords, row.Title)
	keywords = append(keywords, authors...)

	return CatalogItem{
		ID:          row.ID,
		OwnerID:     row.OwnerID,
		LibraryID:   row.LibraryID,
		LibraryName: row.LibraryName,
		Title:       row.Title,
		Authors:     authors,
		ISBN:        row.ISBN,
		Summary:     row.Summary,
		Type:        row.Type,
		Keywords:    keywords,
	}
}

// SearchResultDTO 定义了返回给前端的单条搜索结果。
type SearchResultDTO struct {
	ID          string   `json:"id"`
	ISBN        string   `json:"isbn"`
	LibraryID   string   `json:"libraryId"`
	LibraryName string   `json:"libraryName"`
	Summary     string   `json:"summary"`
	Title       string   `json:"title"`
	Type        string   `json:"type"`
	Authors     []string `json:"authors"`
	Picture     string   `json:"picture,omitempty"` // base64 编码的封面原始字节
	Score       float64  `json:"score"`
}

// NewSearchResultDTO 从条目和匹配分数构造响应条目，封面由调用方补充。
func NewSearchResultDTO(item CatalogItem, score float64) SearchResultDTO {
	authors := item.Authors
	if authors == nil {
		authors = []string{}
	}
	return SearchResultDTO{
		ID:          item.ID,
		ISBN:        item.ISBN,
		LibraryID:   item.LibraryID,
		LibraryName: item.LibraryName,
		Summary:     item.Summary,
		Title:       item.Title,
		Type:        item.Type,
		Authors:     authors,
		Score:       score,
	}
}
