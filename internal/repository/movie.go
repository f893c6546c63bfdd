package repository

import (
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/user/cinefam/internal/errs"
	"github.com/user/cinefam/internal/model"
)

type MovieRepository struct {
	db *gorm.DB
}

func NewMovieRepository(db *gorm.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

// FindByTMDBID returns the movie, or nil when the corpus does not have it.
func (r *MovieRepository) FindByTMDBID(tmdbID int) (*model.Movie, error) {
	var movie model.Movie
	err := r.db.Where("tmdb_id = ?", tmdbID).First(&movie).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errs.Database("find movie", err)
	}
	return &movie, nil
}

// Exists reports corpus membership without loading the row.
func (r *MovieRepository) Exists(tmdbID int) (bool, error) {
	var count int64
	err := r.db.Model(&model.Movie{}).Where("tmdb_id = ?", tmdbID).Count(&count).Error
	return count > 0, errs.Database("movie exists", err)
}

// Upsert creates or refreshes a movie. Normalized fields are last-write-wins;
// a nil embedding never clobbers one already computed.
func (r *MovieRepository) Upsert(movie *model.Movie) error {
	movie.LastFetchedAt = time.Now()
	err := r.db.Exec(`
		INSERT INTO movies (tmdb_id, title, year, poster_path, overview, runtime, certification,
		                    genres, keywords, popularity, vote_average, vote_count, embedding, last_fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (tmdb_id) DO UPDATE SET
			title = EXCLUDED.title,
			year = EXCLUDED.year,
			poster_path = EXCLUDED.poster_path,
			overview = EXCLUDED.overview,
			runtime = EXCLUDED.runtime,
			certification = EXCLUDED.certification,
			genres = EXCLUDED.genres,
			keywords = EXCLUDED.keywords,
			popularity = EXCLUDED.popularity,
			vote_average = EXCLUDED.vote_average,
			vote_count = EXCLUDED.vote_count,
			embedding = COALESCE(EXCLUDED.embedding, movies.embedding),
			last_fetched_at = EXCLUDED.last_fetched_at
	`, movie.TMDBID, movie.Title, movie.Year, movie.PosterPath, movie.Overview, movie.Runtime,
		movie.Certification, pq.Array([]string(movie.Genres)), pq.Array([]string(movie.Keywords)),
		movie.Popularity, movie.VoteAverage, movie.VoteCount, movie.Embedding, movie.LastFetchedAt).Error
	return errs.Database("upsert movie", err)
}

// UpdateEmbedding stores a freshly computed embedding for an existing row.
func (r *MovieRepository) UpdateEmbedding(tmdbID int, embedding []float32) error {
	vec := pgvector.NewVector(embedding)
	err := r.db.Model(&model.Movie{}).
		Where("tmdb_id = ?", tmdbID).
		Update("embedding", &vec).Error
	return errs.Database("update embedding", err)
}

// RankedMovie is a similarity-query row. Distance is nil when the ordering
// fell back to popularity.
type RankedMovie struct {
	model.Movie
	Distance *float64 `json:"distance,omitempty" gorm:"column:distance"`
}

// RecommendByTaste returns up to limit corpus movies ordered by cosine
// distance to the household's taste vector, excluding anything the household
// watched within the rewatch cool-down.
func (r *MovieRepository) RecommendByTaste(householdID string, taste pgvector.Vector, rewatchDays, limit int) ([]RankedMovie, error) {
	var rows []RankedMovie
	err := r.db.Raw(`
		SELECT m.*, m.embedding <=> $2 AS distance
		FROM movies m
		WHERE m.embedding IS NOT NULL
		  AND NOT EXISTS (
			SELECT 1 FROM watches w
			WHERE w.household_id = $1
			  AND w.tmdb_id = m.tmdb_id
			  AND w.watched_at > now() - make_interval(days => $3)
		  )
		ORDER BY m.embedding <=> $2
		LIMIT $4
	`, householdID, taste, rewatchDays, limit).Scan(&rows).Error
	if err != nil {
		return nil, errs.Database("similarity query", err)
	}
	return rows, nil
}

// RecommendByPopularity is the ordering used before a household has a taste
// vector. Same rewatch exclusion, no distance.
func (r *MovieRepository) RecommendByPopularity(householdID string, rewatchDays, limit int) ([]RankedMovie, error) {
	var rows []RankedMovie
	err := r.db.Raw(`
		SELECT m.*
		FROM movies m
		WHERE NOT EXISTS (
			SELECT 1 FROM watches w
			WHERE w.household_id = $1
			  AND w.tmdb_id = m.tmdb_id
			  AND w.watched_at > now() - make_interval(days => $2)
		  )
		ORDER BY m.popularity DESC
		LIMIT $3
	`, householdID, rewatchDays, limit).Scan(&rows).Error
	if err != nil {
		return nil, errs.Database("popularity query", err)
	}
	return rows, nil
}
