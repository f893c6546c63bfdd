package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/user/cinefam/internal/errs"
	"github.com/user/cinefam/internal/model"
)

type QueueRepository struct {
	db *gorm.DB
}

func NewQueueRepository(db *gorm.DB) *QueueRepository {
	return &QueueRepository{db: db}
}

// Find returns the active item for (household, movie, list type), nil when
// the movie is not on the list.
func (r *QueueRepository) Find(householdID string, tmdbID int, listType string) (*model.QueueItem, error) {
	var item model.QueueItem
	err := r.db.Where("household_id = ? AND tmdb_id = ? AND list_type = ?", householdID, tmdbID, listType).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errs.Database("find queue item", err)
	}
	return &item, nil
}

// Insert adds a queue item. Duplicates are rejected by the caller's
// existence check before this write.
func (r *QueueRepository) Insert(item *model.QueueItem) error {
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	return errs.Database("insert queue item", r.db.Create(item).Error)
}

// Delete removes one item by id.
func (r *QueueRepository) Delete(id int) error {
	return errs.Database("delete queue item", r.db.Delete(&model.QueueItem{}, id).Error)
}

// QueuedIDs returns the subset of tmdbIDs currently queued by the household.
func (r *QueueRepository) QueuedIDs(householdID string, tmdbIDs []int) ([]int, error) {
	if len(tmdbIDs) == 0 {
		return nil, nil
	}
	var ids []int
	err := r.db.Model(&model.QueueItem{}).
		Where("household_id = ? AND list_type = ? AND tmdb_id IN ?", householdID, model.ListTypeQueue, tmdbIDs).
		Pluck("tmdb_id", &ids).Error
	return ids, errs.Database("list queued ids", err)
}
