package model

import "time"

// Watch is one watch event. Append-only: a household may accumulate many
// events for the same movie (rewatches).
type Watch struct {
	ID          int       `json:"id" gorm:"primaryKey"`
	HouseholdID string    `json:"household_id" gorm:"size:64;index:idx_watches_household_movie"`
	ProfileID   *string   `json:"profile_id" gorm:"size:64"`
	TMDBID      int       `json:"tmdb_id" gorm:"column:tmdb_id;index:idx_watches_household_movie"`
	WatchedAt   time.Time `json:"watched_at" gorm:"index"`
	Notes       *string   `json:"notes"`
	Rewatch     bool      `json:"rewatch"`
}

// Rating is the single current rating of a movie by a household, 1-10.
// Updates overwrite; they never append. A rating may only exist for a movie
// with at least one Watch for that household, enforced by existence checks
// before writes.
type Rating struct {
	ID          int       `json:"id" gorm:"primaryKey"`
	HouseholdID string    `json:"household_id" gorm:"size:64;uniqueIndex:idx_ratings_household_movie"`
	ProfileID   *string   `json:"profile_id" gorm:"size:64"`
	TMDBID      int       `json:"tmdb_id" gorm:"column:tmdb_id;uniqueIndex:idx_ratings_household_movie"`
	Rating      int       `json:"rating"`
	RatedAt     time.Time `json:"rated_at"`
}

// ListTypeQueue is the only list type the queue manager writes today.
const ListTypeQueue = "queue"

// QueueItem is household watch-list membership, independent of watch
// history. At most one active item per (household, movie, list type).
type QueueItem struct {
	ID          int       `json:"id" gorm:"primaryKey"`
	HouseholdID string    `json:"household_id" gorm:"size:64;uniqueIndex:idx_queue_household_movie_type"`
	TMDBID      int       `json:"tmdb_id" gorm:"column:tmdb_id;uniqueIndex:idx_queue_household_movie_type"`
	ListType    string    `json:"list_type" gorm:"size:16;default:queue;uniqueIndex:idx_queue_household_movie_type"`
	AddedBy     *string   `json:"added_by" gorm:"size:64"`
	CreatedAt   time.Time `json:"created_at"`
}
