package domain

import "time"

type Category struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"uniqueIndex;not null"`
	ImageLink string    `json:"image_link"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CategoryPatch struct {
	Name      *string
	ImageLink *string
}

type Item struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Name         string    `json:"name" gorm:"uniqueIndex;not null"`
	Description  string    `json:"description"`
	ImageLink    string    `json:"image_link"`
	Recycle      string    `json:"recycle"`
	IsReusable   bool      `json:"is_reusable" gorm:"not null;default:false"`
	IsRecyclable bool      `json:"is_recyclable" gorm:"not null;default:false"`
	IsHazardous  bool      `json:"is_hazardous" gorm:"not null;default:false"`
	CategoryID   uint      `json:"category_id" gorm:"not null;index"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Category *Category `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
}

// ItemPatch carries the optional fields of a partial item update.
// CategoryName is resolved to a category id by the service. The image is
// only replaced through an upload.
type ItemPatch struct {
	Name         *string
	Description  *string
	Recycle      *string
	IsReusable   *bool
	IsRecyclable *bool
	IsHazardous  *bool
	CategoryName *string
}

// ItemFilter narrows item listings. Zero values mean "no filter".
type ItemFilter struct {
	Name       string
	CategoryID uint
}
