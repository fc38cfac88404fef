package repositories

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yatube/yatube/models"
)

// FollowRepository defines the interface for follow data operations
type FollowRepository interface {
	// Follow creates the relation unless it already exists and reports whether a row was inserted.
	Follow(ctx context.Context, userID, authorID uint) (bool, error)
	// Unfollow removes the relation and returns the number of deleted rows.
	Unfollow(ctx context.Context, userID, authorID uint) (int64, error)
	IsFollowing(ctx context.Context, userID, authorID uint) (bool, error)
}

// GormFollowRepository implements FollowRepository on top of gorm.
type GormFollowRepository struct {
	db *gorm.DB
}

// NewGormFollowRepository creates a new GormFollowRepository
func NewGormFollowRepository(db *gorm.DB) *GormFollowRepository {
	return &GormFollowRepository{db: db}
}

func (r *GormFollowRepository) Follow(ctx context.Context, userID, authorID uint) (bool, error) {
	// The unique (user_id, author_id) index makes concurrent follows collapse into one row.
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Omit("User", "Author").
		Create(&models.Follow{UserID: userID, AuthorID: authorID})
	if res.Error != nil {
		return false, fmt.Errorf("follow %d -> %d: %w", userID, authorID, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *GormFollowRepository) Unfollow(ctx context.Context, userID, authorID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Delete(&models.Follow{})
	if res.Error != nil {
		return 0, fmt.Errorf("unfollow %d -> %d: %w", userID, authorID, res.Error)
	}
	return res.RowsAffected, nil
}

func (r *GormFollowRepository) IsFollowing(ctx context.Context, userID, authorID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
