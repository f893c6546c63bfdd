package model

import (
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// HouseholdPrefs is one household's content policy. The core only reads it;
// the settings surface owns mutation.
type HouseholdPrefs struct {
	HouseholdID          string         `json:"household_id" gorm:"primaryKey;size:64"`
	AllowedRatings       pq.StringArray `json:"allowed_ratings" gorm:"type:text[]"`
	MaxRuntime           int            `json:"max_runtime"`
	BlockedKeywords      pq.StringArray `json:"blocked_keywords" gorm:"type:text[]"`
	PreferredServices    pq.StringArray `json:"preferred_streaming_services" gorm:"type:text[]"`
	RewatchExclusionDays int            `json:"rewatch_exclusion_days"`
	Region               string         `json:"region" gorm:"size:8"`
}

// DefaultPrefs returns the policy applied to a household that has not
// configured one yet.
func DefaultPrefs(householdID, region string) *HouseholdPrefs {
	return &HouseholdPrefs{
		HouseholdID:          householdID,
		AllowedRatings:       pq.StringArray{"G", "PG", "PG-13"},
		MaxRuntime:           140,
		RewatchExclusionDays: 365,
		Region:               region,
	}
}

// HouseholdTaste is the derived per-household taste vector, recomputed in
// full from highly-rated movies. Only the similarity query consumes it.
type HouseholdTaste struct {
	HouseholdID string          `json:"household_id" gorm:"primaryKey;size:64"`
	Taste       pgvector.Vector `json:"-" gorm:"type:vector(1536)"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
