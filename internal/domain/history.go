package domain

import "time"

// History is one "user viewed item" event. Rows are never updated or deleted
// and outlive the catalog row they reference, so no foreign key is declared.
type History struct {
	ID       uint      `json:"id" gorm:"primaryKey"`
	UserID   uint      `json:"user_id" gorm:"not null;index"`
	ItemID   uint      `json:"item_id" gorm:"not null;index"`
	ViewedAt time.Time `json:"viewed_at" gorm:"not null"`
}

// HistoryStats summarises the whole interaction log.
type HistoryStats struct {
	DistinctUsers int64
	Interactions  int64
}
