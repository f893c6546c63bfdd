package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/cinefam/internal/errs"
	"github.com/user/cinefam/internal/model"
	"github.com/user/cinefam/internal/repository"
)

type recommendFixture struct {
	engine    *RecommendationEngine
	movies    *fakeMovieStore
	providers *fakeProviderStore
	tastes    *fakeTasteStore
	expander  *fakeExpander
	gateway   *fakeGateway
}

func newRecommendFixture(prefs *model.HouseholdPrefs) *recommendFixture {
	movies := newFakeMovieStore()
	providers := newFakeProviderStore()
	tastes := &fakeTasteStore{}
	expander := &fakeExpander{}
	gateway := newFakeGateway()
	engine := NewRecommendationEngine(movies, providers, &fakePrefsStore{prefs: prefs}, tastes, gateway, expander, NewPolicyFilter(), "US")
	return &recommendFixture{engine: engine, movies: movies, providers: providers, tastes: tastes, expander: expander, gateway: gateway}
}

func ranked(id int, title string, year int) repository.RankedMovie {
	m := testMovie(id, title, "PG", year, 95)
	m.Genres = []string{"Animation", "Family"}
	m.VoteAverage = 7.5
	return repository.RankedMovie{Movie: m}
}

func TestRecommendRequestValidation(t *testing.T) {
	req := &RecommendRequest{}
	require.NoError(t, req.Validate())
	assert.Equal(t, 10, req.Limit, "limit defaults to 10")

	tooMany := &RecommendRequest{Limit: 25}
	assert.True(t, errs.IsValidation(tooMany.Validate()))

	inverted := &RecommendRequest{YearMin: intPtr(2000), YearMax: intPtr(1990)}
	assert.True(t, errs.IsValidation(inverted.Validate()))
}

func TestRecommendNeverExceedsLimit(t *testing.T) {
	f := newRecommendFixture(testPrefs("h1"))
	for i := 1; i <= 8; i++ {
		f.movies.ranked = append(f.movies.ranked, ranked(i, fmt.Sprintf("Movie %d", i), 2000+i))
	}

	results, err := f.engine.Recommend(context.Background(), "h1", &RecommendRequest{Limit: 3})

	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestRecommendShortCorpusIsNotAnError(t *testing.T) {
	f := newRecommendFixture(testPrefs("h1"))
	f.movies.ranked = []repository.RankedMovie{
		ranked(1, "Nineties One", 1992),
		ranked(2, "Nineties Two", 1995),
		ranked(3, "Nineties Three", 1999),
		ranked(4, "Too New", 2015),
		ranked(5, "Too Old", 1985),
	}
	f.expander.added = 0 // expansion cannot help

	results, err := f.engine.Recommend(context.Background(), "h1", &RecommendRequest{
		Limit:   5,
		YearMin: intPtr(1990),
		YearMax: intPtr(1999),
	})

	require.NoError(t, err, "a short result set is returned, not an error")
	assert.Len(t, results, 3)
	for _, r := range results {
		assert.GreaterOrEqual(t, *r.Movie.Year, 1990)
		assert.LessOrEqual(t, *r.Movie.Year, 1999)
	}
}

func TestRecommendBackfillTargetsTwiceShortfall(t *testing.T) {
	f := newRecommendFixture(testPrefs("h1"))
	f.movies.ranked = []repository.RankedMovie{ranked(1, "Only One", 2000)}

	_, err := f.engine.Recommend(context.Background(), "h1", &RecommendRequest{Limit: 5})

	require.NoError(t, err)
	require.Len(t, f.expander.targets, 1, "backfill runs once, then a single re-query")
	assert.Equal(t, 8, f.expander.targets[0], "target is twice the shortfall")
	assert.Equal(t, 2, f.movies.queries)
}

func TestRecommendSimilarityFailureIsFatal(t *testing.T) {
	f := newRecommendFixture(testPrefs("h1"))
	f.movies.rankedErr = errs.Database("recommend", fmt.Errorf("index offline"))

	_, err := f.engine.Recommend(context.Background(), "h1", &RecommendRequest{Limit: 5})

	require.Error(t, err)
	assert.True(t, errs.IsDatabase(err))
}

func TestRecommendFiltersDisallowedCertification(t *testing.T) {
	f := newRecommendFixture(testPrefs("h1"))
	blocked := ranked(1, "Too Mature", 2000)
	blocked.Certification = strPtr("R")
	f.movies.ranked = []repository.RankedMovie{blocked, ranked(2, "Fine", 2001)}

	results, err := f.engine.Recommend(context.Background(), "h1", &RecommendRequest{Limit: 5})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Fine", results[0].Movie.Title)
}

func TestRecommendGenreFilter(t *testing.T) {
	f := newRecommendFixture(testPrefs("h1"))
	drama := ranked(1, "Serious Drama", 2000)
	drama.Genres = []string{"Drama"}
	f.movies.ranked = []repository.RankedMovie{drama, ranked(2, "Cartoon Fun", 2001)}

	results, err := f.engine.Recommend(context.Background(), "h1", &RecommendRequest{
		Limit:  5,
		Genres: []string{"animation"},
	})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Cartoon Fun", results[0].Movie.Title)
}

func TestRecommendStreamingOnlyFilter(t *testing.T) {
	f := newRecommendFixture(testPrefs("h1"))
	f.movies.ranked = []repository.RankedMovie{
		ranked(1, "Nowhere To Stream", 2000),
		ranked(2, "On Netflix", 2001),
	}
	f.providers.Upsert(2, "US", &model.ProviderLists{
		Flatrate: []model.Provider{{ProviderName: "Netflix"}},
	})

	results, err := f.engine.Recommend(context.Background(), "h1", &RecommendRequest{
		Limit:         5,
		StreamingOnly: true,
	})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "On Netflix", results[0].Movie.Title)
}

func TestRecommendStablePartitionByPreferredService(t *testing.T) {
	prefs := testPrefs("h1")
	prefs.PreferredServices = []string{"Netflix"}
	f := newRecommendFixture(prefs)
	f.movies.ranked = []repository.RankedMovie{
		ranked(1, "First", 2000),
		ranked(2, "Second", 2001),
		ranked(3, "Third On Netflix", 2002),
		ranked(4, "Fourth On Netflix", 2003),
	}
	netflix := &model.ProviderLists{Flatrate: []model.Provider{{ProviderName: "Netflix"}}}
	f.providers.Upsert(3, "US", netflix)
	f.providers.Upsert(4, "US", netflix)

	results, err := f.engine.Recommend(context.Background(), "h1", &RecommendRequest{Limit: 4})

	require.NoError(t, err)
	require.Len(t, results, 4)
	titles := []string{results[0].Movie.Title, results[1].Movie.Title, results[2].Movie.Title, results[3].Movie.Title}
	assert.Equal(t, []string{"Third On Netflix", "Fourth On Netflix", "First", "Second"}, titles,
		"preferred-service candidates move first, relative order preserved in both halves")
}

func TestRecommendReasonPriority(t *testing.T) {
	prefs := testPrefs("h1")
	prefs.PreferredServices = []string{"Netflix"}
	f := newRecommendFixture(prefs)

	certified := ranked(1, "Cert Reason", 2000)
	runtimeOnly := ranked(2, "Runtime Reason", 2001)
	runtimeOnly.Certification = nil
	serviceOnly := ranked(3, "Service Reason", 2002)
	serviceOnly.Certification = nil
	serviceOnly.Runtime = nil
	fallback := ranked(4, "Fallback Reason", 2003)
	fallback.Certification = nil
	fallback.Runtime = nil
	fallback.VoteAverage = 8.2

	f.movies.ranked = []repository.RankedMovie{certified, runtimeOnly, serviceOnly, fallback}
	f.providers.Upsert(3, "US", &model.ProviderLists{Flatrate: []model.Provider{{ProviderName: "Netflix"}}})

	results, err := f.engine.Recommend(context.Background(), "h1", &RecommendRequest{Limit: 4})

	require.NoError(t, err)
	require.Len(t, results, 4)
	byTitle := map[string]string{}
	for _, r := range results {
		byTitle[r.Movie.Title] = r.Reason
	}
	assert.Contains(t, byTitle["Cert Reason"], "Rated PG")
	assert.Contains(t, byTitle["Runtime Reason"], "95 minutes")
	assert.Contains(t, byTitle["Service Reason"], "Netflix")
	assert.Contains(t, byTitle["Fallback Reason"], "Highly rated")
}

func TestRecommendUsesDefaultPrefsWhenMissing(t *testing.T) {
	f := newRecommendFixture(nil)
	f.movies.ranked = []repository.RankedMovie{ranked(1, "Anything", 2000)}

	results, err := f.engine.Recommend(context.Background(), "h1", &RecommendRequest{Limit: 1})

	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestRecommendRefreshFailureFallsBackToCachedData(t *testing.T) {
	f := newRecommendFixture(testPrefs("h1"))
	f.movies.ranked = []repository.RankedMovie{ranked(1, "Cached Only", 2000)}
	// Gateway has no bundle for id 1, so every refresh fails.

	results, err := f.engine.Recommend(context.Background(), "h1", &RecommendRequest{Limit: 1})

	require.NoError(t, err, "per-candidate refresh failures are swallowed")
	require.Len(t, results, 1)
	assert.Equal(t, "Cached Only", results[0].Movie.Title)
}
