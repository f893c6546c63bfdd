package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/user/cinefam/internal/errs"
	"github.com/user/cinefam/internal/model"
)

type PrefsRepository struct {
	db *gorm.DB
}

func NewPrefsRepository(db *gorm.DB) *PrefsRepository {
	return &PrefsRepository{db: db}
}

// Find returns the household's content policy, or nil when the household
// has not configured one. The policy is owned by the settings surface; the
// core only reads it.
func (r *PrefsRepository) Find(householdID string) (*model.HouseholdPrefs, error) {
	var prefs model.HouseholdPrefs
	err := r.db.Where("household_id = ?", householdID).First(&prefs).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errs.Database("find prefs", err)
	}
	return &prefs, nil
}
