// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

import "time"

// Catalog change actions.
const (
	ActionUpsert = "upsert"
	ActionDelete = "delete"
	// ActionReload 表示整个用户目录被批量替换（例如导入）。
	ActionReload = "reload"
)

// CatalogChangeTask represents a change to one owner's catalog.
// ItemID 和 LibraryID 在 reload 事件中可以为空。
type CatalogChangeTask struct {
	OwnerID    string    `json:"ownerId"`
	LibraryID  string    `json:"libraryId,omitempty"`
	ItemID     string    `json:"itemId,omitempty"`
	Action     string    `json:"action"`
	OccurredAt time.Time `json:"occurredAt"`
}
