package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/user/cinefam/internal/errs"
	"github.com/user/cinefam/internal/model"
	"github.com/user/cinefam/internal/repository"
)

// In-memory fakes for the store and gateway interfaces.

type fakeMovieStore struct {
	movies    map[int]*model.Movie
	ranked    []repository.RankedMovie
	rankedErr error
	upsertErr error
	queries   int
}

func newFakeMovieStore() *fakeMovieStore {
	return &fakeMovieStore{movies: make(map[int]*model.Movie)}
}

func (f *fakeMovieStore) FindByTMDBID(tmdbID int) (*model.Movie, error) {
	m, ok := f.movies[tmdbID]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMovieStore) Exists(tmdbID int) (bool, error) {
	_, ok := f.movies[tmdbID]
	return ok, nil
}

func (f *fakeMovieStore) Upsert(movie *model.Movie) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	cp := *movie
	if cp.Embedding == nil {
		if prev, ok := f.movies[movie.TMDBID]; ok {
			cp.Embedding = prev.Embedding
		}
	}
	f.movies[movie.TMDBID] = &cp
	return nil
}

func (f *fakeMovieStore) UpdateEmbedding(tmdbID int, embedding []float32) error {
	if m, ok := f.movies[tmdbID]; ok {
		vec := pgvector.NewVector(embedding)
		m.Embedding = &vec
	}
	return nil
}

func (f *fakeMovieStore) RecommendByTaste(householdID string, taste pgvector.Vector, rewatchDays, limit int) ([]repository.RankedMovie, error) {
	return f.recommend(limit)
}

func (f *fakeMovieStore) RecommendByPopularity(householdID string, rewatchDays, limit int) ([]repository.RankedMovie, error) {
	return f.recommend(limit)
}

func (f *fakeMovieStore) recommend(limit int) ([]repository.RankedMovie, error) {
	f.queries++
	if f.rankedErr != nil {
		return nil, f.rankedErr
	}
	out := f.ranked
	if len(out) > limit {
		out = out[:limit]
	}
	cp := make([]repository.RankedMovie, len(out))
	copy(cp, out)
	return cp, nil
}

type fakeProviderStore struct {
	lists map[string]*model.ProviderLists
}

func newFakeProviderStore() *fakeProviderStore {
	return &fakeProviderStore{lists: make(map[string]*model.ProviderLists)}
}

func providerKey(tmdbID int, region string) string {
	return fmt.Sprintf("%d:%s", tmdbID, region)
}

func (f *fakeProviderStore) Upsert(tmdbID int, region string, lists *model.ProviderLists) error {
	f.lists[providerKey(tmdbID, region)] = lists
	return nil
}

func (f *fakeProviderStore) Find(tmdbID int, region string) (*model.ProviderLists, error) {
	return f.lists[providerKey(tmdbID, region)], nil
}

func (f *fakeProviderStore) FindBatch(tmdbIDs []int, region string) (map[int]*model.ProviderLists, error) {
	out := make(map[int]*model.ProviderLists)
	for _, id := range tmdbIDs {
		if l, ok := f.lists[providerKey(id, region)]; ok {
			out[id] = l
		}
	}
	return out, nil
}

type fakePrefsStore struct {
	prefs *model.HouseholdPrefs
	err   error
}

func (f *fakePrefsStore) Find(householdID string) (*model.HouseholdPrefs, error) {
	return f.prefs, f.err
}

type fakeWatchStore struct {
	watches []model.Watch
	nextID  int
}

func newFakeWatchStore() *fakeWatchStore {
	return &fakeWatchStore{nextID: 1}
}

func (f *fakeWatchStore) Insert(w *model.Watch) error {
	w.ID = f.nextID
	f.nextID++
	f.watches = append(f.watches, *w)
	return nil
}

func (f *fakeWatchStore) HasRecent(householdID string, tmdbID int, since time.Time) (bool, error) {
	for _, w := range f.watches {
		if w.HouseholdID == householdID && w.TMDBID == tmdbID && w.WatchedAt.After(since) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeWatchStore) HasAny(householdID string, tmdbID int) (bool, error) {
	count, _ := f.CountForMovie(householdID, tmdbID)
	return count > 0, nil
}

func (f *fakeWatchStore) CountForMovie(householdID string, tmdbID int) (int64, error) {
	var count int64
	for _, w := range f.watches {
		if w.HouseholdID == householdID && w.TMDBID == tmdbID {
			count++
		}
	}
	return count, nil
}

func (f *fakeWatchStore) FindByID(householdID string, id int) (*model.Watch, error) {
	for _, w := range f.watches {
		if w.HouseholdID == householdID && w.ID == id {
			cp := w
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeWatchStore) FindLatest(householdID string, tmdbID int, watchedAt *time.Time) (*model.Watch, error) {
	var matches []model.Watch
	for _, w := range f.watches {
		if w.HouseholdID != householdID || w.TMDBID != tmdbID {
			continue
		}
		if watchedAt != nil && !w.WatchedAt.Equal(*watchedAt) {
			continue
		}
		matches = append(matches, w)
	}
	if len(matches) == 0 {
		return nil, nil
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].WatchedAt.After(matches[j].WatchedAt) })
	cp := matches[0]
	return &cp, nil
}

func (f *fakeWatchStore) Update(householdID string, id int, updates map[string]interface{}) (*model.Watch, error) {
	for i := range f.watches {
		if f.watches[i].HouseholdID != householdID || f.watches[i].ID != id {
			continue
		}
		if v, ok := updates["watched_at"]; ok {
			f.watches[i].WatchedAt = v.(time.Time)
		}
		if v, ok := updates["notes"]; ok {
			if v == nil {
				f.watches[i].Notes = nil
			} else {
				s := v.(string)
				f.watches[i].Notes = &s
			}
		}
		if v, ok := updates["rewatch"]; ok {
			f.watches[i].Rewatch = v.(bool)
		}
		cp := f.watches[i]
		return &cp, nil
	}
	return nil, errs.NotFoundf("watch entry %d not found", id)
}

func (f *fakeWatchStore) Delete(householdID string, id int) error {
	for i := range f.watches {
		if f.watches[i].HouseholdID == householdID && f.watches[i].ID == id {
			f.watches = append(f.watches[:i], f.watches[i+1:]...)
			return nil
		}
	}
	return nil
}

type fakeRatingStore struct {
	ratings map[string]*model.Rating
}

func newFakeRatingStore() *fakeRatingStore {
	return &fakeRatingStore{ratings: make(map[string]*model.Rating)}
}

func ratingKey(householdID string, tmdbID int) string {
	return fmt.Sprintf("%s:%d", householdID, tmdbID)
}

func (f *fakeRatingStore) Upsert(rating *model.Rating) error {
	cp := *rating
	f.ratings[ratingKey(rating.HouseholdID, rating.TMDBID)] = &cp
	return nil
}

func (f *fakeRatingStore) Find(householdID string, tmdbID int) (*model.Rating, error) {
	return f.ratings[ratingKey(householdID, tmdbID)], nil
}

func (f *fakeRatingStore) Delete(householdID string, tmdbID int) error {
	delete(f.ratings, ratingKey(householdID, tmdbID))
	return nil
}

type fakeQueueStore struct {
	items  []model.QueueItem
	nextID int
}

func newFakeQueueStore() *fakeQueueStore {
	return &fakeQueueStore{nextID: 1}
}

func (f *fakeQueueStore) Find(householdID string, tmdbID int, listType string) (*model.QueueItem, error) {
	for _, it := range f.items {
		if it.HouseholdID == householdID && it.TMDBID == tmdbID && it.ListType == listType {
			cp := it
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeQueueStore) Insert(item *model.QueueItem) error {
	item.ID = f.nextID
	f.nextID++
	item.CreatedAt = time.Now()
	f.items = append(f.items, *item)
	return nil
}

func (f *fakeQueueStore) Delete(id int) error {
	for i := range f.items {
		if f.items[i].ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeQueueStore) QueuedIDs(householdID string, tmdbIDs []int) ([]int, error) {
	wanted := make(map[int]bool, len(tmdbIDs))
	for _, id := range tmdbIDs {
		wanted[id] = true
	}
	var out []int
	for _, it := range f.items {
		if it.HouseholdID == householdID && wanted[it.TMDBID] {
			out = append(out, it.TMDBID)
		}
	}
	return out, nil
}

type fakeTasteStore struct {
	taste        *model.HouseholdTaste
	refreshed    []string
	refreshErr   error
	minRatingLog []int
}

func (f *fakeTasteStore) Find(householdID string) (*model.HouseholdTaste, error) {
	return f.taste, nil
}

func (f *fakeTasteStore) Refresh(householdID string, minRating int) error {
	if f.refreshErr != nil {
		return f.refreshErr
	}
	f.refreshed = append(f.refreshed, householdID)
	f.minRatingLog = append(f.minRatingLog, minRating)
	return nil
}

type fakeGateway struct {
	searchResults map[string][]SearchItem
	searchErr     error
	bundles       map[int]*MovieBundle
	fetchErrs     map[int]error
	fetchCalls    int
	searchCalls   int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		searchResults: make(map[string][]SearchItem),
		bundles:       make(map[int]*MovieBundle),
		fetchErrs:     make(map[int]error),
	}
}

func (f *fakeGateway) Search(ctx context.Context, query string, year *int) ([]SearchItem, error) {
	f.searchCalls++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.searchResults[query], nil
}

func (f *fakeGateway) FetchComplete(ctx context.Context, tmdbID int, region string) (*MovieBundle, error) {
	f.fetchCalls++
	if err, ok := f.fetchErrs[tmdbID]; ok {
		return nil, err
	}
	b, ok := f.bundles[tmdbID]
	if !ok {
		return nil, errs.Upstream("tmdb", 404, fmt.Errorf("movie %d not found", tmdbID))
	}
	cp := *b
	return &cp, nil
}

type fakeEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (f *fakeEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

func (f *fakeEmbedder) EmbedMovie(ctx context.Context, movie *model.Movie) ([]float32, error) {
	return f.EmbedText(ctx, movie.Title)
}

type fakeEnsurer struct {
	movies map[int]*model.Movie
	err    error
	calls  int
}

func newFakeEnsurer() *fakeEnsurer {
	return &fakeEnsurer{movies: make(map[int]*model.Movie)}
}

func (f *fakeEnsurer) EnsureMovie(ctx context.Context, tmdbID int) (*model.Movie, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if m, ok := f.movies[tmdbID]; ok {
		return m, nil
	}
	m := &model.Movie{TMDBID: tmdbID, Title: fmt.Sprintf("Movie %d", tmdbID)}
	f.movies[tmdbID] = m
	return m, nil
}

type fakeExpander struct {
	added   int
	targets []int
}

func (f *fakeExpander) Expand(ctx context.Context, prefs *model.HouseholdPrefs, targetCount int) int {
	f.targets = append(f.targets, targetCount)
	return f.added
}

type fakeTrigger struct {
	households []string
}

func (f *fakeTrigger) Refresh(householdID string) {
	f.households = append(f.households, householdID)
}

// Test data helpers.

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func testMovie(id int, title, cert string, year, runtime int) model.Movie {
	m := model.Movie{
		TMDBID:  id,
		Title:   title,
		Year:    intPtr(year),
		Runtime: intPtr(runtime),
	}
	if cert != "" {
		m.Certification = strPtr(cert)
	}
	return m
}

func testPrefs(householdID string) *model.HouseholdPrefs {
	return &model.HouseholdPrefs{
		HouseholdID:          householdID,
		AllowedRatings:       []string{"G", "PG", "PG-13"},
		MaxRuntime:           140,
		RewatchExclusionDays: 365,
		Region:               "US",
	}
}
