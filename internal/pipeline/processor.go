// Package pipeline 定义了目录变更事件的处理流程。
package pipeline

import (
	"context"
	"fmt"
	"shelf-search-go/internal/service"
	"shelf-search-go/pkg/log"
	"shelf-search-go/pkg/tasks"
)

// Invalidator 在用户目录变更后丢弃其缓存索引，下一次搜索会重新读取目录。
type Invalidator struct {
	indexes service.IndexService
}

// NewInvalidator 创建一个新的 Invalidator 实例。
func NewInvalidator(indexes service.IndexService) *Invalidator {
	return &Invalidator{indexes: indexes}
}

// Process 处理一条目录变更事件。ownerId 可以是带连字符的 UUID，也可以已经是规范化格式。
func (p *Invalidator) Process(ctx context.Context, task tasks.CatalogChangeTask) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ownerID, err := service.NormalizeOwnerID(task.OwnerID)
	if err != nil {
		return fmt.Errorf("目录变更事件的 ownerId 无效: %w", err)
	}

	switch task.Action {
	case tasks.ActionUpsert, tasks.ActionDelete, tasks.ActionReload:
	default:
		log.Warnf("[Invalidator] 未知的目录变更类型 %q, 仍然丢弃索引, owner: %s", task.Action, ownerID)
	}

	if p.indexes.Invalidate(ownerID) {
		log.Infof("[Invalidator] 目录变更 (%s), 已丢弃用户 %s 的索引, item: %s", task.Action, ownerID, task.ItemID)
	} else {
		log.Debugf("[Invalidator] 目录变更 (%s), 用户 %s 没有缓存索引", task.Action, ownerID)
	}
	return nil
}
