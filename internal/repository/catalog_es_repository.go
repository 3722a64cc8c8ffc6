package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"shelf-search-go/internal/model"
	"shelf-search-go/pkg/log"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// catalogESRepository 是 CatalogRepository 接口的 Elasticsearch 实现，用 search_after 分页。
type catalogESRepository struct {
	client    *elasticsearch.Client
	indexName string
}

// NewCatalogESRepository 创建一个新的基于 Elasticsearch 的 CatalogRepository 实例。
func NewCatalogESRepository(client *elasticsearch.Client, indexName string) CatalogRepository {
	return &catalogESRepository{client: client, indexName: indexName}
}

type esSearchResponse struct {
	Hits struct {
		Hits []struct {
			Source model.CatalogRow `json:"_source"`
			Sort   []interface{}    `json:"sort"`
		} `json:"hits"`
	} `json:"hits"`
}

var docIDReplacer = strings.NewReplacer("#", "_")

// catalogDocumentID 组合分区键与排序键，保证同一行重复写入时覆盖。'#' 不能出现在 URL 路径中。
func catalogDocumentID(row model.CatalogRow) string {
	return docIDReplacer.Replace(row.PK + "." + row.SK)
}

// QueryItems 的游标是上一页最后一行的 sk 排序值。
func (r *catalogESRepository) QueryItems(ctx context.Context, ownerID, cursor string, limit int) (CatalogPage, error) {
	// 1. 构建查询：pk 精确匹配 + sk 前缀过滤，按 sk 升序
	query := map[string]interface{}{
		"size": limit,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{
					map[string]interface{}{"term": map[string]interface{}{"pk": model.OwnerPartition(ownerID)}},
					map[string]interface{}{"prefix": map[string]interface{}{"sk": model.ItemSortKeyPrefix}},
				},
			},
		},
		"sort": []interface{}{
			map[string]interface{}{"sk": "asc"},
		},
	}
	if cursor != "" {
		query["search_after"] = []interface{}{cursor}
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return CatalogPage{}, fmt.Errorf("编码 ES 查询失败: %w", err)
	}

	// 2. 执行查询
	res, err := r.client.Search(
		r.client.Search.WithContext(ctx),
		r.client.Search.WithIndex(r.indexName),
		r.client.Search.WithBody(&buf),
	)
	if err != nil {
		return CatalogPage{}, fmt.Errorf("ES 查询目录失败: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Errorf("[CatalogRepo] Elasticsearch 返回错误: %s", res.String())
		return CatalogPage{}, fmt.Errorf("ES 查询目录失败: %s", res.Status())
	}

	// 3. 解析结果
	var parsed esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return CatalogPage{}, fmt.Errorf("解析 ES 响应失败: %w", err)
	}

	hits := parsed.Hits.Hits
	page := CatalogPage{Rows: make([]model.CatalogRow, 0, len(hits))}
	for _, hit := range hits {
		page.Rows = append(page.Rows, hit.Source)
	}
	if limit > 0 && len(hits) == limit {
		last := hits[len(hits)-1]
		page.Next = last.Source.SK
		if len(last.Sort) > 0 {
			if s, ok := last.Sort[0].(string); ok {
				page.Next = s
			}
		}
	}
	return page, nil
}

// SaveRows 逐行写入并立即刷新，写入后即可被查询到。
func (r *catalogESRepository) SaveRows(ctx context.Context, rows []model.CatalogRow) error {
	for _, row := range rows {
		docBytes, err := json.Marshal(row)
		if err != nil {
			return err
		}

		req := esapi.IndexRequest{
			Index:      r.indexName,
			DocumentID: catalogDocumentID(row),
			Body:       bytes.NewReader(docBytes),
			Refresh:    "true",
		}
		res, err := req.Do(ctx, r.client)
		if err != nil {
			return err
		}
		if res.IsError() {
			log.Errorf("[CatalogRepo] 写入目录行到 Elasticsearch 出错: %s", res.String())
			res.Body.Close()
			return errors.New("failed to index catalog row")
		}
		res.Body.Close()
	}
	return nil
}
