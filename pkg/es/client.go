// Package es 提供了与 Elasticsearch 交互的客户端功能。
package es

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"shelf-search-go/internal/config"
	"shelf-search-go/pkg/log"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
)

// catalogMapping 与 model.CatalogRow 的 json 字段对应。pk/sk 用 keyword 以支持 term、prefix 与排序。
const catalogMapping = `{
	"mappings": {
		"properties": {
			"pk": { "type": "keyword" },
			"sk": { "type": "keyword" },
			"id": { "type": "keyword" },
			"ownerId": { "type": "keyword" },
			"libraryId": { "type": "keyword" },
			"libraryName": { "type": "text" },
			"title": { "type": "text" },
			"authors": { "type": "text" },
			"isbn": { "type": "keyword" },
			"summary": { "type": "text", "index": false },
			"type": { "type": "keyword" }
		}
	}
}`

// NewClient 根据配置创建 Elasticsearch 客户端。
func NewClient(esCfg config.ElasticsearchConfig) (*elasticsearch.Client, error) {
	var addresses []string
	for _, a := range strings.Split(esCfg.Addresses, ",") {
		if a = strings.TrimSpace(a); a != "" {
			addresses = append(addresses, a)
		}
	}
	cfg := elasticsearch.Config{
		Addresses: addresses,
		Username:  esCfg.Username,
		Password:  esCfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	return elasticsearch.NewClient(cfg)
}

// InitES 初始化 Elasticsearch 客户端，并确保目录索引存在。
func InitES(ctx context.Context, esCfg config.ElasticsearchConfig, indexName string) (*elasticsearch.Client, error) {
	client, err := NewClient(esCfg)
	if err != nil {
		return nil, err
	}
	if err := CreateIndexIfNotExists(ctx, client, indexName); err != nil {
		return nil, err
	}
	return client, nil
}

// CreateIndexIfNotExists 检查索引是否存在，如果不存在则创建它
func CreateIndexIfNotExists(ctx context.Context, client *elasticsearch.Client, indexName string) error {
	res, err := client.Indices.Exists([]string{indexName}, client.Indices.Exists.WithContext(ctx))
	if err != nil {
		log.Errorf("检查索引是否存在时出错: %v", err)
		return err
	}
	res.Body.Close()
	// 如果 res.StatusCode 是 200，说明索引已存在
	if res.StatusCode == http.StatusOK {
		log.Infof("索引 '%s' 已存在", indexName)
		return nil
	}
	// 如果 res.StatusCode 是 404，说明索引不存在，需要创建
	if res.StatusCode != http.StatusNotFound {
		log.Errorf("检查索引 '%s' 是否存在时收到意外的状态码: %d", indexName, res.StatusCode)
		return fmt.Errorf("检查索引是否存在时收到意外的状态码: %d", res.StatusCode)
	}

	res, err = client.Indices.Create(
		indexName,
		client.Indices.Create.WithContext(ctx),
		client.Indices.Create.WithBody(strings.NewReader(catalogMapping)),
	)
	if err != nil {
		log.Errorf("创建索引 '%s' 失败: %v", indexName, err)
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Errorf("创建索引 '%s' 时 Elasticsearch 返回错误: %s", indexName, res.String())
		return errors.New("创建索引时 Elasticsearch 返回错误")
	}

	log.Infof("索引 '%s' 创建成功", indexName)
	return nil
}
