package service

import (
	"context"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/user/cinefam/internal/model"
	"github.com/user/cinefam/internal/repository"
)

// The services consume narrow store and gateway interfaces so tests can
// substitute fakes; the repository types satisfy them.

type MovieStore interface {
	FindByTMDBID(tmdbID int) (*model.Movie, error)
	Exists(tmdbID int) (bool, error)
	Upsert(movie *model.Movie) error
	UpdateEmbedding(tmdbID int, embedding []float32) error
	RecommendByTaste(householdID string, taste pgvector.Vector, rewatchDays, limit int) ([]repository.RankedMovie, error)
	RecommendByPopularity(householdID string, rewatchDays, limit int) ([]repository.RankedMovie, error)
}

type ProviderStore interface {
	Upsert(tmdbID int, region string, lists *model.ProviderLists) error
	Find(tmdbID int, region string) (*model.ProviderLists, error)
	FindBatch(tmdbIDs []int, region string) (map[int]*model.ProviderLists, error)
}

type PrefsStore interface {
	Find(householdID string) (*model.HouseholdPrefs, error)
}

type WatchStore interface {
	Insert(w *model.Watch) error
	HasRecent(householdID string, tmdbID int, since time.Time) (bool, error)
	HasAny(householdID string, tmdbID int) (bool, error)
	CountForMovie(householdID string, tmdbID int) (int64, error)
	FindByID(householdID string, id int) (*model.Watch, error)
	FindLatest(householdID string, tmdbID int, watchedAt *time.Time) (*model.Watch, error)
	Update(householdID string, id int, updates map[string]interface{}) (*model.Watch, error)
	Delete(householdID string, id int) error
}

type RatingStore interface {
	Upsert(rating *model.Rating) error
	Find(householdID string, tmdbID int) (*model.Rating, error)
	Delete(householdID string, tmdbID int) error
}

type QueueStore interface {
	Find(householdID string, tmdbID int, listType string) (*model.QueueItem, error)
	Insert(item *model.QueueItem) error
	Delete(id int) error
	QueuedIDs(householdID string, tmdbIDs []int) ([]int, error)
}

type TasteStore interface {
	Find(householdID string) (*model.HouseholdTaste, error)
	Refresh(householdID string, minRating int) error
}

// MetadataGateway is the external movie catalog boundary.
type MetadataGateway interface {
	Search(ctx context.Context, query string, year *int) ([]SearchItem, error)
	FetchComplete(ctx context.Context, tmdbID int, region string) (*MovieBundle, error)
}

// Embedder converts movie metadata or free text into a fixed-length vector.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedMovie(ctx context.Context, movie *model.Movie) ([]float32, error)
}

// MovieEnsurer resolves or creates the canonical record for one movie.
type MovieEnsurer interface {
	EnsureMovie(ctx context.Context, tmdbID int) (*model.Movie, error)
}

// CorpusExpander grows the local corpus when too few candidates qualify.
type CorpusExpander interface {
	Expand(ctx context.Context, prefs *model.HouseholdPrefs, targetCount int) int
}

// TasteTrigger submits an asynchronous taste-vector recompute. The caller
// never awaits it.
type TasteTrigger interface {
	Refresh(householdID string)
}
