package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/user/cinefam/internal/errs"
	"github.com/user/cinefam/internal/model"
)

// rewatchDebounce is the window inside which a second mark-watched call for
// the same household+movie is treated as a duplicate rather than a rewatch.
const rewatchDebounce = 24 * time.Hour

const tasteRefreshMarkThreshold = 8   // markWatched path
const tasteRefreshUpdateThreshold = 4 // updateRating path

// MarkWatchedRequest records one viewing, optionally with a rating.
type MarkWatchedRequest struct {
	TMDBID    int        `json:"tmdb_id" binding:"required,min=1"`
	Rating    *int       `json:"rating" binding:"omitempty,min=1,max=10"`
	WatchedAt *time.Time `json:"watched_at"`
	Notes     *string    `json:"notes" binding:"omitempty,max=500"`
}

// MarkWatchedResult reports what happened; Duplicate means the call was
// debounced and no new event was written.
type MarkWatchedResult struct {
	Watch     *model.Watch `json:"watch,omitempty"`
	Movie     *model.Movie `json:"movie"`
	Duplicate bool         `json:"duplicate"`
}

// UpdateRatingRequest overwrites the household's current rating for a movie.
type UpdateRatingRequest struct {
	TMDBID int `json:"tmdb_id" binding:"required,min=1"`
	Rating int `json:"rating" binding:"required,min=1,max=10"`
}

// UpdateWatchRequest patches one watch entry. The entry is located either by
// its id or by movie id (newest entry, optionally pinned to an exact
// watched-at). Only provided fields are applied; an empty notes string
// clears the note.
type UpdateWatchRequest struct {
	WatchID           *int       `json:"watch_id" binding:"omitempty,min=1"`
	TMDBID            *int       `json:"tmdb_id" binding:"omitempty,min=1"`
	OriginalWatchedAt *time.Time `json:"original_watched_at"`
	WatchedAt         *time.Time `json:"watched_at"`
	Notes             *string    `json:"notes" binding:"omitempty,max=500"`
	Rewatch           *bool      `json:"rewatch"`
}

func (r *UpdateWatchRequest) hasPatch() bool {
	return r.WatchedAt != nil || r.Notes != nil || r.Rewatch != nil
}

// WatchService manages watch events and ratings for a household, including
// the feedback into taste-vector recomputation.
type WatchService struct {
	watches WatchStore
	ratings RatingStore
	ensurer MovieEnsurer
	taste   TasteTrigger

	now func() time.Time
}

func NewWatchService(watches WatchStore, ratings RatingStore, ensurer MovieEnsurer, taste TasteTrigger) *WatchService {
	return &WatchService{
		watches: watches,
		ratings: ratings,
		ensurer: ensurer,
		taste:   taste,
		now:     time.Now,
	}
}

// MarkWatched records a watch event. A prior event for the same movie
// within the last 24 hours makes this call a no-op duplicate; the debounce
// is a heuristic, not a uniqueness constraint, so later rewatches still
// create new events.
func (s *WatchService) MarkWatched(ctx context.Context, householdID string, profileID *string, req *MarkWatchedRequest) (*MarkWatchedResult, error) {
	movie, err := s.ensurer.EnsureMovie(ctx, req.TMDBID)
	if err != nil {
		return nil, err
	}

	recent, err := s.watches.HasRecent(householdID, req.TMDBID, s.now().Add(-rewatchDebounce))
	if err != nil {
		return nil, err
	}
	if recent {
		log.Info().Str("household", householdID).Int("tmdb_id", req.TMDBID).
			Msg("[Watch] duplicate within debounce window, skipping insert")
		return &MarkWatchedResult{Movie: movie, Duplicate: true}, nil
	}

	watchedAt := s.now()
	if req.WatchedAt != nil {
		watchedAt = *req.WatchedAt
	}
	watch := &model.Watch{
		HouseholdID: householdID,
		ProfileID:   profileID,
		TMDBID:      req.TMDBID,
		WatchedAt:   watchedAt,
		Notes:       req.Notes,
	}
	if err := s.watches.Insert(watch); err != nil {
		return nil, err
	}

	if req.Rating != nil {
		if err := s.upsertRating(householdID, profileID, req.TMDBID, *req.Rating); err != nil {
			return nil, err
		}
		if *req.Rating >= tasteRefreshMarkThreshold {
			s.taste.Refresh(householdID)
		}
	}
	return &MarkWatchedResult{Watch: watch, Movie: movie, Duplicate: false}, nil
}

// UpdateRating overwrites the current rating. The movie must have at least
// one watch event for this household.
func (s *WatchService) UpdateRating(householdID string, profileID *string, req *UpdateRatingRequest) (*model.Rating, error) {
	watched, err := s.watches.HasAny(householdID, req.TMDBID)
	if err != nil {
		return nil, err
	}
	if !watched {
		return nil, errs.NotFoundf("no watch history for this movie; mark it watched before rating it")
	}
	if err := s.upsertRating(householdID, profileID, req.TMDBID, req.Rating); err != nil {
		return nil, err
	}
	if req.Rating >= tasteRefreshUpdateThreshold {
		s.taste.Refresh(householdID)
	}
	return s.ratings.Find(householdID, req.TMDBID)
}

func (s *WatchService) upsertRating(householdID string, profileID *string, tmdbID, rating int) error {
	return s.ratings.Upsert(&model.Rating{
		HouseholdID: householdID,
		ProfileID:   profileID,
		TMDBID:      tmdbID,
		Rating:      rating,
		RatedAt:     s.now(),
	})
}

// RemoveWatch deletes one watch event. With cascade set, the rating is also
// removed when no other event for that movie remains.
func (s *WatchService) RemoveWatch(householdID string, watchID int, cascadeRating bool) error {
	watch, err := s.watches.FindByID(householdID, watchID)
	if err != nil {
		return err
	}
	if watch == nil {
		return errs.NotFoundf("watch entry %d not found", watchID)
	}
	if err := s.watches.Delete(householdID, watchID); err != nil {
		return err
	}
	if !cascadeRating {
		return nil
	}
	remaining, err := s.watches.CountForMovie(householdID, watch.TMDBID)
	if err != nil {
		return err
	}
	if remaining == 0 {
		if err := s.ratings.Delete(householdID, watch.TMDBID); err != nil {
			return err
		}
	}
	return nil
}

// UpdateWatch patches an existing entry located by id or by movie.
func (s *WatchService) UpdateWatch(householdID string, req *UpdateWatchRequest) (*model.Watch, error) {
	if !req.hasPatch() {
		return nil, errs.Validationf("nothing to update: provide watched_at, notes, or rewatch")
	}
	watch, err := s.locateWatch(householdID, req)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.WatchedAt != nil {
		updates["watched_at"] = *req.WatchedAt
	}
	if req.Notes != nil {
		if *req.Notes == "" {
			updates["notes"] = nil
		} else {
			updates["notes"] = *req.Notes
		}
	}
	if req.Rewatch != nil {
		updates["rewatch"] = *req.Rewatch
	}
	return s.watches.Update(householdID, watch.ID, updates)
}

func (s *WatchService) locateWatch(householdID string, req *UpdateWatchRequest) (*model.Watch, error) {
	switch {
	case req.WatchID != nil:
		watch, err := s.watches.FindByID(householdID, *req.WatchID)
		if err != nil {
			return nil, err
		}
		if watch == nil {
			return nil, errs.NotFoundf("watch entry %d not found", *req.WatchID)
		}
		if req.TMDBID != nil && watch.TMDBID != *req.TMDBID {
			return nil, errs.Validationf("watch entry %d belongs to a different movie", *req.WatchID)
		}
		return watch, nil
	case req.TMDBID != nil:
		watch, err := s.watches.FindLatest(householdID, *req.TMDBID, req.OriginalWatchedAt)
		if err != nil {
			return nil, err
		}
		if watch == nil {
			return nil, errs.NotFoundf("no watch history for this movie")
		}
		return watch, nil
	default:
		return nil, errs.Validationf("provide watch_id or tmdb_id to locate the entry")
	}
}
