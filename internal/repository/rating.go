package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/user/cinefam/internal/errs"
	"github.com/user/cinefam/internal/model"
)

type RatingRepository struct {
	db *gorm.DB
}

func NewRatingRepository(db *gorm.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

// Upsert sets the household's current rating for a movie. Updates overwrite,
// they never append.
func (r *RatingRepository) Upsert(rating *model.Rating) error {
	if rating.RatedAt.IsZero() {
		rating.RatedAt = time.Now()
	}
	if err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "household_id"}, {Name: "tmdb_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"rating", "rated_at", "profile_id"}),
	}).Create(rating).Error; err != nil {
		return errs.Database("upsert rating", err)
	}
	return nil
}

// Find returns the current rating, nil when the movie is unrated.
func (r *RatingRepository) Find(householdID string, tmdbID int) (*model.Rating, error) {
	var rating model.Rating
	err := r.db.Where("household_id = ? AND tmdb_id = ?", householdID, tmdbID).First(&rating).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errs.Database("find rating", err)
	}
	return &rating, nil
}

// Delete removes the rating for household+movie.
func (r *RatingRepository) Delete(householdID string, tmdbID int) error {
	return errs.Database("delete rating", r.db.Where("household_id = ? AND tmdb_id = ?", householdID, tmdbID).Delete(&model.Rating{}).Error)
}
