package main

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"shelf-search-go/internal/model"
	"shelf-search-go/internal/repository"
	"shelf-search-go/internal/service"
	"shelf-search-go/pkg/log"
	"shelf-search-go/pkg/tasks"
	"strings"
	"time"
)

// SeedFile 是导入文件的顶层结构。
type SeedFile struct {
	Owners []SeedOwner `json:"owners"`
}

// SeedOwner 是一个用户的全部书库。OwnerID 可以带连字符。
type SeedOwner struct {
	OwnerID   string        `json:"ownerId"`
	Libraries []SeedLibrary `json:"libraries"`
}

type SeedLibrary struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Items []SeedItem `json:"items"`
}

type SeedItem struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Authors []string `json:"authors"`
	ISBN    string   `json:"isbn"`
	Summary string   `json:"summary"`
	Type    string   `json:"type"`
	// Cover 是相对于导入文件所在目录的封面路径，可以为空。
	Cover string `json:"cover"`
}

func loadSeedFile(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取导入文件失败: %w", err)
	}
	var file SeedFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("解析导入文件失败: %w", err)
	}
	return &file, nil
}

// rows 把一个用户的书库展开为目录行：每个书库一行，每个条目一行。
func (o SeedOwner) rows(ownerID string) ([]model.CatalogRow, error) {
	var rows []model.CatalogRow
	for _, lib := range o.Libraries {
		if lib.ID == "" {
			return nil, fmt.Errorf("用户 %s 存在没有 id 的书库", ownerID)
		}
		rows = append(rows, model.CatalogRow{
			PK:          model.OwnerPartition(ownerID),
			SK:          model.LibrarySortKeyPrefix + lib.ID,
			ID:          lib.ID,
			OwnerID:     ownerID,
			LibraryID:   lib.ID,
			LibraryName: lib.Name,
		})
		for _, item := range lib.Items {
			if item.ID == "" || strings.TrimSpace(item.Title) == "" {
				return nil, fmt.Errorf("书库 %s 中的条目缺少 id 或 title", lib.ID)
			}
			authors := item.Authors
			if authors == nil {
				authors = []string{}
			}
			rows = append(rows, model.CatalogRow{
				PK:          model.OwnerPartition(ownerID),
				SK:          model.ItemSortKey(item.ID),
				ID:          item.ID,
				OwnerID:     ownerID,
				LibraryID:   lib.ID,
				LibraryName: lib.Name,
				Title:       item.Title,
				Authors:     authors,
				ISBN:        item.ISBN,
				Summary:     item.Summary,
				Type:        item.Type,
			})
		}
	}
	return rows, nil
}

type seedSummary struct {
	Owners int
	Rows   int
	Covers int
	Events int
}

// seeder 的 covers 和 publish 可以为空，此时跳过对应步骤。
type seeder struct {
	catalog repository.CatalogRepository
	covers  repository.CoverRepository
	publish func(ctx context.Context, task tasks.CatalogChangeTask) error
	now     func() time.Time
}

// Run 逐个用户导入；任意一步失败立即返回，已写入的数据不会回滚。
func (s *seeder) Run(ctx context.Context, file *SeedFile, baseDir string) (seedSummary, error) {
	var summary seedSummary
	for _, owner := range file.Owners {
		ownerID, err := service.NormalizeOwnerID(owner.OwnerID)
		if err != nil {
			return summary, fmt.Errorf("无效的 ownerId %q: %w", owner.OwnerID, err)
		}

		// 1. 写入目录行
		rows, err := owner.rows(ownerID)
		if err != nil {
			return summary, err
		}
		if err := s.catalog.SaveRows(ctx, rows); err != nil {
			return summary, err
		}
		summary.Owners++
		summary.Rows += len(rows)
		log.Infof("[Seeder] 用户 %s 写入 %d 行", ownerID, len(rows))

		// 2. 上传封面
		if s.covers != nil {
			n, err := s.uploadCovers(ctx, ownerID, owner, baseDir)
			summary.Covers += n
			if err != nil {
				return summary, err
			}
		}

		// 3. 通知搜索实例丢弃旧索引
		if s.publish != nil {
			task := tasks.CatalogChangeTask{OwnerID: ownerID, Action: tasks.ActionReload, OccurredAt: s.now().UTC()}
			if err := s.publish(ctx, task); err != nil {
				return summary, fmt.Errorf("发送目录变更事件失败: %w", err)
			}
			summary.Events++
		}
	}
	return summary, nil
}

func (s *seeder) uploadCovers(ctx context.Context, ownerID string, owner SeedOwner, baseDir string) (int, error) {
	uploaded := 0
	for _, lib := range owner.Libraries {
		for _, item := range lib.Items {
			if item.Cover == "" {
				continue
			}
			path := item.Cover
			if !filepath.IsAbs(path) {
				path = filepath.Join(baseDir, path)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return uploaded, fmt.Errorf("读取封面文件失败: %w", err)
			}
			key := model.CoverObjectKey(ownerID, lib.ID, item.ID)
			if err := s.covers.PutCover(ctx, key, data, coverContentType(path, data)); err != nil {
				return uploaded, err
			}
			uploaded++
		}
	}
	return uploaded, nil
}

func coverContentType(path string, data []byte) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return http.DetectContentType(data)
}
