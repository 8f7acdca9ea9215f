package database

import (
	"context"
	"errors"

	"ipsentry/internal/domain"

	"gorm.io/gorm"
)

var ErrUserNotFound = errors.New("user not found")

func CreateUser(ctx context.Context, user *domain.User) error {
	if DB == nil {
		return errors.New("database not initialised")
	}
	if user == nil {
		return errors.New("nil user")
	}

	db := DB
	if ctx != nil {
		db = db.WithContext(ctx)
	}

	return db.Create(user).Error
}

func GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	if DB == nil {
		return nil, errors.New("database not initialised")
	}

	db := DB
	if ctx != nil {
		db = db.WithContext(ctx)
	}

	var user domain.User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// CountUsers reports how many accounts exist; the first registration is
// promoted to admin.
func CountUsers(ctx context.Context) (int64, error) {
	if DB == nil {
		return 0, errors.New("database not initialised")
	}

	db := DB
	if ctx != nil {
		db = db.WithContext(ctx)
	}

	var count int64
	if err := db.Model(&domain.User{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
