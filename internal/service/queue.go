package service

import (
	"context"

	"github.com/user/cinefam/internal/model"
)

// EnqueueResult reports the resolved movie and whether it was already on
// the list.
type EnqueueResult struct {
	Movie         *model.Movie     `json:"movie"`
	Item          *model.QueueItem `json:"item,omitempty"`
	AlreadyQueued bool             `json:"already_queued"`
}

// QueueService manages the household watch list. Membership is independent
// of watch history.
type QueueService struct {
	queue   QueueStore
	ensurer MovieEnsurer
}

func NewQueueService(queue QueueStore, ensurer MovieEnsurer) *QueueService {
	return &QueueService{queue: queue, ensurer: ensurer}
}

// Enqueue adds a movie to the household queue. Adding a movie that is
// already queued succeeds with AlreadyQueued set instead of erroring, so
// the call is idempotent.
func (s *QueueService) Enqueue(ctx context.Context, householdID string, profileID *string, tmdbID int) (*EnqueueResult, error) {
	movie, err := s.ensurer.EnsureMovie(ctx, tmdbID)
	if err != nil {
		return nil, err
	}
	existing, err := s.queue.Find(householdID, tmdbID, model.ListTypeQueue)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &EnqueueResult{Movie: movie, Item: existing, AlreadyQueued: true}, nil
	}
	item := &model.QueueItem{
		HouseholdID: householdID,
		TMDBID:      tmdbID,
		ListType:    model.ListTypeQueue,
		AddedBy:     profileID,
	}
	if err := s.queue.Insert(item); err != nil {
		return nil, err
	}
	return &EnqueueResult{Movie: movie, Item: item, AlreadyQueued: false}, nil
}

// Dequeue removes one queue item by id. Ownership checks belong to the
// access-control layer in front of this service.
func (s *QueueService) Dequeue(itemID int) error {
	return s.queue.Delete(itemID)
}

// QueueState returns the subset of the given movie ids currently queued for
// the household.
func (s *QueueService) QueueState(householdID string, tmdbIDs []int) ([]int, error) {
	if len(tmdbIDs) == 0 {
		return []int{}, nil
	}
	return s.queue.QueuedIDs(householdID, tmdbIDs)
}
