package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Classification records one call to the image classifier.
type Classification struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	UserID     uint           `json:"user_id" gorm:"not null;index"`
	ModelName  string         `json:"model_name" gorm:"not null"`
	Prompt     string         `json:"-" gorm:"type:text"`
	Output     datatypes.JSON `json:"output" gorm:"type:jsonb"`
	Identified bool           `json:"identified"`
	CreatedAt  time.Time      `json:"created_at"`
}
