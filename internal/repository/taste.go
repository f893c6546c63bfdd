package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/user/cinefam/internal/errs"
	"github.com/user/cinefam/internal/model"
)

type TasteRepository struct {
	db *gorm.DB
}

func NewTasteRepository(db *gorm.DB) *TasteRepository {
	return &TasteRepository{db: db}
}

// Find returns the household's taste vector, nil when none has been
// computed yet.
func (r *TasteRepository) Find(householdID string) (*model.HouseholdTaste, error) {
	var taste model.HouseholdTaste
	err := r.db.Where("household_id = ?", householdID).First(&taste).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errs.Database("find taste", err)
	}
	return &taste, nil
}

// Refresh recomputes the taste vector in full as the mean embedding of the
// household's highly-rated movies. A household with no qualifying ratings
// keeps its previous vector.
func (r *TasteRepository) Refresh(householdID string, minRating int) error {
	return errs.Database("refresh taste", r.db.Exec(`
		INSERT INTO household_tastes (household_id, taste, updated_at)
		SELECT r.household_id, avg(m.embedding), now()
		FROM ratings r
		JOIN movies m ON m.tmdb_id = r.tmdb_id
		WHERE r.household_id = $1
		  AND r.rating >= $2
		  AND m.embedding IS NOT NULL
		GROUP BY r.household_id
		ON CONFLICT (household_id) DO UPDATE SET
			taste = EXCLUDED.taste,
			updated_at = EXCLUDED.updated_at
	`, householdID, minRating).Error)
}
