package persistent

import (
	"context"

	"blogfeed/services/feed/internal/model"

	"gorm.io/gorm"
)

// NewUser is an account row written by the seeder on behalf of the identity service.
type NewUser struct {
	ID              string
	Username        string
	Email           string
	PasswordHash    string
	FirstName       string
	LastName        string
	ProfileImageRef string
}

type UserWriter interface {
	CreateUser(ctx context.Context, user NewUser) (string, error)
}

type userWriter struct {
	db *gorm.DB
}

func NewUserWriter(db *gorm.DB) UserWriter {
	return &userWriter{db: db}
}

func (w *userWriter) CreateUser(ctx context.Context, user NewUser) (string, error) {
	userModel := &model.UserModel{
		ID:              user.ID,
		Username:        user.Username,
		Email:           user.Email,
		PasswordHash:    user.PasswordHash,
		FirstName:       user.FirstName,
		LastName:        user.LastName,
		ProfileImageRef: user.ProfileImageRef,
	}
	if err := w.db.WithContext(ctx).Create(userModel).Error; err != nil {
		return "", translateError(err)
	}
	return userModel.ID, nil
}
