// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Inquiry
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. Every
// lookup is scoped by owner, so a row that belongs to another user is
// indistinguishable from a missing one.
//
// Error semantics:
//   - Missing rows yield ErrNotFound (an alias of gorm.ErrRecordNotFound).
//   - An update whose version predicate matched nothing yields ErrStaleVersion;
//     callers decide whether that means "deleted" or "modified" via
//     InquiryExists.
//   - Other DB errors are propagated unchanged.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-inquiry-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrStaleVersion is returned by UpdateInquiry when no row matched the
// (id, owner, version) predicate.
var ErrStaleVersion = errors.New("stale inquiry version")

// CreateInquiry inserts inq as-is. The caller assigns the ID; Version starts
// at 1 and timestamps default to now (UTC).
func CreateInquiry(ctx context.Context, db *gorm.DB, inq *domain.Inquiry) error {
	now := time.Now().UTC()
	if inq.CreatedAt.IsZero() {
		inq.CreatedAt = now
	}
	inq.UpdatedAt = inq.CreatedAt
	if inq.Version == 0 {
		inq.Version = 1
	}
	return db.WithContext(ctx).Omit(clause.Associations).Create(inq).Error
}

// ListInquiries returns every inquiry owned by userID, oldest first with the
// id as a tie-breaker. It returns an empty slice if the user has none.
func ListInquiries(ctx context.Context, db *gorm.DB, userID string) ([]domain.Inquiry, error) {
	out := []domain.Inquiry{}
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// GetInquiry fetches one inquiry by id and owner, or ErrNotFound.
func GetInquiry(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Inquiry, error) {
	var inq domain.Inquiry
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&inq).Error
	if err != nil {
		return nil, err
	}
	return &inq, nil
}

// InquiryExists reports whether an inquiry with id is owned by userID.
func InquiryExists(ctx context.Context, db *gorm.DB, id, userID string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Inquiry{}).
		Where("id = ? AND user_id = ?", id, userID).
		Count(&n).Error
	return n > 0, err
}

// UpdateInquiry writes question, response and owner of inq provided the
// stored version still equals expectedVersion. On success inq.Version and
// inq.UpdatedAt reflect the new row.
func UpdateInquiry(ctx context.Context, db *gorm.DB, inq *domain.Inquiry, expectedVersion int) error {
	now := time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.Inquiry{}).
		Where("id = ? AND user_id = ? AND version = ?", inq.ID, inq.UserID, expectedVersion).
		Updates(map[string]any{
			"question":   inq.Question,
			"response":   inq.Response,
			"user_id":    inq.UserID,
			"version":    expectedVersion + 1,
			"updated_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleVersion
	}
	inq.Version = expectedVersion + 1
	inq.UpdatedAt = now
	return nil
}

// DeleteInquiry removes the inquiry identified by id and owned by userID.
// Called inside a transaction it only stages the removal until commit.
func DeleteInquiry(ctx context.Context, db *gorm.DB, id, userID string) error {
	res := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&domain.Inquiry{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
