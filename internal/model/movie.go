package model

import (
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// Movie is the canonical corpus record for one catalog title. Rows are
// created on first reference (search, queue-add, watch or corpus backfill),
// refreshed in place, and never deleted. The embedding stays nil until it
// has been computed.
type Movie struct {
	TMDBID        int              `json:"tmdb_id" gorm:"column:tmdb_id;primaryKey"`
	Title         string           `json:"title"`
	Year          *int             `json:"year"`
	PosterPath    *string          `json:"poster_path"`
	Overview      string           `json:"overview"`
	Runtime       *int             `json:"runtime"`
	Certification *string          `json:"certification"`
	Genres        pq.StringArray   `json:"genres" gorm:"type:text[]"`
	Keywords      pq.StringArray   `json:"keywords" gorm:"type:text[]"`
	Popularity    float64          `json:"popularity"`
	VoteAverage   float64          `json:"vote_average"`
	VoteCount     int              `json:"vote_count"`
	Embedding     *pgvector.Vector `json:"-" gorm:"type:vector(1536)"`
	LastFetchedAt time.Time        `json:"last_fetched_at" gorm:"index"`
}

// Provider is one streaming service entry inside a provider list.
type Provider struct {
	ProviderName string  `json:"provider_name"`
	LogoPath     *string `json:"logo_path"`
}

// MovieProvider caches the watch-provider lists for one movie in one region.
// Entries are recomputed opportunistically; stale rows are acceptable and
// superseded on the next fetch.
type MovieProvider struct {
	TMDBID    int       `json:"tmdb_id" gorm:"column:tmdb_id;primaryKey"`
	Region    string    `json:"region" gorm:"primaryKey;size:8"`
	Flatrate  []byte    `json:"-" gorm:"type:jsonb"`
	Rent      []byte    `json:"-" gorm:"type:jsonb"`
	Buy       []byte    `json:"-" gorm:"type:jsonb"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProviderLists is the decoded form of a MovieProvider row.
type ProviderLists struct {
	Flatrate []Provider `json:"flatrate,omitempty"`
	Rent     []Provider `json:"rent,omitempty"`
	Buy      []Provider `json:"buy,omitempty"`
}

// Empty reports whether no provider is known in any list.
func (p *ProviderLists) Empty() bool {
	return p == nil || (len(p.Flatrate) == 0 && len(p.Rent) == 0 && len(p.Buy) == 0)
}
