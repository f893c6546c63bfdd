package repository

import (
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/user/cinefam/internal/errs"
	"github.com/user/cinefam/internal/model"
)

type ProviderRepository struct {
	db *gorm.DB
}

func NewProviderRepository(db *gorm.DB) *ProviderRepository {
	return &ProviderRepository{db: db}
}

// Upsert replaces the cached provider lists for (movie, region). Stale rows
// are superseded here, never expired.
func (r *ProviderRepository) Upsert(tmdbID int, region string, lists *model.ProviderLists) error {
	if lists == nil {
		lists = &model.ProviderLists{}
	}
	flatrate, _ := json.Marshal(lists.Flatrate)
	rent, _ := json.Marshal(lists.Rent)
	buy, _ := json.Marshal(lists.Buy)

	if err := r.db.Exec(`
		INSERT INTO movie_providers (tmdb_id, region, flatrate, rent, buy, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tmdb_id, region) DO UPDATE SET
			flatrate = EXCLUDED.flatrate,
			rent = EXCLUDED.rent,
			buy = EXCLUDED.buy,
			updated_at = EXCLUDED.updated_at
	`, tmdbID, region, flatrate, rent, buy, time.Now()).Error; err != nil {
		return errs.Database("upsert providers", err)
	}
	return nil
}

// Find returns the cached lists for (movie, region), or nil when unknown.
func (r *ProviderRepository) Find(tmdbID int, region string) (*model.ProviderLists, error) {
	var row model.MovieProvider
	err := r.db.Where("tmdb_id = ? AND region = ?", tmdbID, region).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errs.Database("find providers", err)
	}
	return decodeLists(&row), nil
}

// FindBatch returns the cached lists for any of the given movies in region.
// Movies without a cached row are absent from the map.
func (r *ProviderRepository) FindBatch(tmdbIDs []int, region string) (map[int]*model.ProviderLists, error) {
	result := make(map[int]*model.ProviderLists, len(tmdbIDs))
	if len(tmdbIDs) == 0 {
		return result, nil
	}
	var rows []model.MovieProvider
	err := r.db.Where("tmdb_id IN ? AND region = ?", tmdbIDs, region).Find(&rows).Error
	if err != nil {
		return nil, errs.Database("find providers batch", err)
	}
	for i := range rows {
		result[rows[i].TMDBID] = decodeLists(&rows[i])
	}
	return result, nil
}

func decodeLists(row *model.MovieProvider) *model.ProviderLists {
	lists := &model.ProviderLists{}
	json.Unmarshal(row.Flatrate, &lists.Flatrate)
	json.Unmarshal(row.Rent, &lists.Rent)
	json.Unmarshal(row.Buy, &lists.Buy)
	return lists
}
