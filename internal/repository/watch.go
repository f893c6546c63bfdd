package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/user/cinefam/internal/errs"
	"github.com/user/cinefam/internal/model"
)

type WatchRepository struct {
	db *gorm.DB
}

func NewWatchRepository(db *gorm.DB) *WatchRepository {
	return &WatchRepository{db: db}
}

// Insert appends one watch event. The event sequence is append-only.
func (r *WatchRepository) Insert(w *model.Watch) error {
	return errs.Database("insert watch", r.db.Create(w).Error)
}

// HasRecent reports whether the household already logged this movie at or
// after the given instant. Used for the 24-hour duplicate debounce.
func (r *WatchRepository) HasRecent(householdID string, tmdbID int, since time.Time) (bool, error) {
	var count int64
	err := r.db.Model(&model.Watch{}).
		Where("household_id = ? AND tmdb_id = ? AND watched_at >= ?", householdID, tmdbID, since).
		Count(&count).Error
	return count > 0, errs.Database("count recent watches", err)
}

// HasAny reports whether the household has ever watched the movie.
func (r *WatchRepository) HasAny(householdID string, tmdbID int) (bool, error) {
	var count int64
	err := r.db.Model(&model.Watch{}).
		Where("household_id = ? AND tmdb_id = ?", householdID, tmdbID).
		Count(&count).Error
	return count > 0, errs.Database("count watches", err)
}

// CountForMovie returns the number of remaining events for household+movie.
func (r *WatchRepository) CountForMovie(householdID string, tmdbID int) (int64, error) {
	var count int64
	err := r.db.Model(&model.Watch{}).
		Where("household_id = ? AND tmdb_id = ?", householdID, tmdbID).
		Count(&count).Error
	return count, errs.Database("count watches", err)
}

// FindByID returns one event scoped to the household, nil when absent.
func (r *WatchRepository) FindByID(householdID string, id int) (*model.Watch, error) {
	var w model.Watch
	err := r.db.Where("household_id = ? AND id = ?", householdID, id).First(&w).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errs.Database("find watch", err)
	}
	return &w, nil
}

// FindLatest returns the newest event for household+movie, optionally pinned
// to an exact watched-at instant. Nil when none match.
func (r *WatchRepository) FindLatest(householdID string, tmdbID int, watchedAt *time.Time) (*model.Watch, error) {
	q := r.db.Where("household_id = ? AND tmdb_id = ?", householdID, tmdbID)
	if watchedAt != nil {
		q = q.Where("watched_at = ?", *watchedAt)
	}
	var w model.Watch
	err := q.Order("watched_at DESC").First(&w).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errs.Database("find latest watch", err)
	}
	return &w, nil
}

// Update applies a field patch to one event and returns the updated row.
func (r *WatchRepository) Update(householdID string, id int, updates map[string]interface{}) (*model.Watch, error) {
	err := r.db.Model(&model.Watch{}).
		Where("household_id = ? AND id = ?", householdID, id).
		Updates(updates).Error
	if err != nil {
		return nil, errs.Database("update watch", err)
	}
	return r.FindByID(householdID, id)
}

// Delete removes one event by id, scoped to the household.
func (r *WatchRepository) Delete(householdID string, id int) error {
	return errs.Database("delete watch", r.db.Where("household_id = ? AND id = ?", householdID, id).Delete(&model.Watch{}).Error)
}
