package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// CatalogEntry is a mirrored copy of one enriched record.
type CatalogEntry struct {
	Kind         Kind           `json:"kind" gorm:"primaryKey"`           // champion or item
	ID           string         `json:"id" gorm:"primaryKey"`             // e.g., "TFT_Item_Deathblade"
	Name         string         `json:"name"`                             // Display name
	Position     int            `json:"position" gorm:"index"`            // Order within the upstream document
	Data         datatypes.JSON `json:"data" gorm:"type:jsonb;not null"`  // Enriched record as served
	Version      string         `json:"version"`                          // Data Dragon version, e.g. "15.9.1"
	SyncRunID    uuid.UUID      `json:"syncRunId" gorm:"type:uuid;index"` // Refresh run that wrote the row
	LastSyncedAt time.Time      `json:"lastSyncedAt"`
}
