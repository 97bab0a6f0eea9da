// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// ApplicationUser model.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-inquiry-backend/internal/domain"
)

// UpsertUser inserts u, or refreshes its profile columns when a row with the
// same ID already exists. Empty profile values never overwrite stored ones.
func UpsertUser(ctx context.Context, db *gorm.DB, u *domain.ApplicationUser) error {
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now

	updates := []string{"updated_at"}
	if u.UserName != "" {
		updates = append(updates, "user_name")
	}
	if u.Email != "" {
		updates = append(updates, "email")
	}
	if u.FirstName != "" {
		updates = append(updates, "first_name")
	}
	if u.LastName != "" {
		updates = append(updates, "last_name")
	}

	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(updates),
		}).
		Create(u).Error
}

// GetUser fetches a user by id, or ErrNotFound.
func GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.ApplicationUser, error) {
	var u domain.ApplicationUser
	if err := db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}
