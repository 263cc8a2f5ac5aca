package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserModel maps the identity-owned users table. The feed only writes it from the seeder.
type UserModel struct {
	ID              string    `gorm:"type:uuid;primary_key" json:"id"`
	Username        string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"username"`
	Email           string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash    string    `gorm:"type:varchar(255);not null" json:"-"`
	FirstName       string    `gorm:"type:varchar(100)" json:"first_name"`
	LastName        string    `gorm:"type:varchar(100)" json:"last_name"`
	ProfileImageRef string    `gorm:"type:varchar(500)" json:"profile_image_ref"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (UserModel) TableName() string {
	return "users"
}

func (u *UserModel) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}
