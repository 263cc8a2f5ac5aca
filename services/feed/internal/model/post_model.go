package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostModel struct {
	ID                string    `gorm:"type:uuid;primary_key;index:idx_posts_created_id,priority:2" json:"id"`
	AuthorID          string    `gorm:"type:uuid;not null;index" json:"author_id"`
	AuthorDisplayName string    `gorm:"type:varchar(255);not null" json:"author_display_name"`
	Title             string    `gorm:"type:varchar(255);not null" json:"title"`
	Body              string    `gorm:"type:text;not null" json:"body"`
	ImageRef          string    `gorm:"type:varchar(500)" json:"image_ref"`
	LikeCount         int64     `gorm:"not null;default:0" json:"like_count"`
	CreatedAt         time.Time `gorm:"not null;index:idx_posts_created_id,priority:1,sort:desc" json:"created_at"`
	LastModifiedAt    time.Time `gorm:"not null" json:"last_modified_at"`
}

func (PostModel) TableName() string {
	return "posts"
}

func (p *PostModel) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}
