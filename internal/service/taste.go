package service

import (
	"github.com/rs/zerolog/log"
)

// tasteMinRating is the cutoff for which ratings feed the household taste
// vector. The vector is recomputed from scratch, not updated incrementally.
const tasteMinRating = 7

// TasteRefresher recomputes household taste vectors off the request path.
// Submissions are fire-and-forget: callers never wait, and failures are
// logged rather than surfaced.
type TasteRefresher struct {
	tastes TasteStore
}

func NewTasteRefresher(tastes TasteStore) *TasteRefresher {
	return &TasteRefresher{tastes: tastes}
}

// Refresh submits an asynchronous recompute for the household.
func (t *TasteRefresher) Refresh(householdID string) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("household", householdID).
					Msg("[Taste] refresh panicked")
			}
		}()
		if err := t.tastes.Refresh(householdID, tasteMinRating); err != nil {
			log.Error().Err(err).Str("household", householdID).Msg("[Taste] refresh failed")
			return
		}
		log.Info().Str("household", householdID).Msg("[Taste] vector recomputed")
	}()
}
