package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/user/cinefam/internal/errs"
	"github.com/user/cinefam/internal/model"
)

const (
	searchMaxCandidates = 8
	searchMaxAttempts   = 15
)

// SearchResult is one policy-approved search candidate with whatever
// streaming availability the catalog reported.
type SearchResult struct {
	Movie     model.Movie          `json:"movie"`
	Providers *model.ProviderLists `json:"providers,omitempty"`
}

// SearchService answers title searches filtered by the household's content
// policy.
type SearchService struct {
	movies    MovieStore
	providers ProviderStore
	prefs     PrefsStore
	gateway   MetadataGateway
	policy    *PolicyFilter
	region    string
}

func NewSearchService(movies MovieStore, providers ProviderStore, prefs PrefsStore, gateway MetadataGateway, policy *PolicyFilter, region string) *SearchService {
	return &SearchService{
		movies:    movies,
		providers: providers,
		prefs:     prefs,
		gateway:   gateway,
		policy:    policy,
		region:    region,
	}
}

// Search looks the title up in the external catalog and returns up to 8
// candidates that pass the household's policy. Candidates whose detail
// fetch fails are skipped. Returns NotFound when the catalog has no match
// or when filtering removes everything.
func (s *SearchService) Search(ctx context.Context, householdID, query string, year *int) ([]SearchResult, error) {
	prefs, err := s.householdPrefs(householdID)
	if err != nil {
		return nil, err
	}

	items, err := s.gateway.Search(ctx, query, year)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, errs.NotFoundf("no movies found matching %q", query)
	}

	results := make([]SearchResult, 0, searchMaxCandidates)
	attempts := 0
	for _, item := range items {
		if len(results) >= searchMaxCandidates || attempts >= searchMaxAttempts {
			break
		}
		attempts++

		bundle, err := s.gateway.FetchComplete(ctx, item.TMDBID, s.region)
		if err != nil {
			log.Debug().Err(err).Int("tmdb_id", item.TMDBID).Msg("[Search] candidate fetch failed, skipping")
			continue
		}
		if ok, reason := s.policy.Accepts(&bundle.Movie, prefs, FilterSearch); !ok {
			log.Debug().Int("tmdb_id", item.TMDBID).Str("reason", reason).Msg("[Search] candidate rejected")
			continue
		}

		s.persistCandidate(bundle)
		results = append(results, SearchResult{Movie: bundle.Movie, Providers: bundle.Providers})
	}

	if len(results) == 0 {
		return nil, errs.NotFoundf("found matches for %q, but none fit the household's content settings (allowed ratings: %v, max runtime: %d min)",
			query, prefs.AllowedRatings, prefs.MaxRuntime)
	}
	return results, nil
}

// householdPrefs falls back to the default policy when the household has
// not configured one.
func (s *SearchService) householdPrefs(householdID string) (*model.HouseholdPrefs, error) {
	prefs, err := s.prefs.Find(householdID)
	if err != nil {
		return nil, err
	}
	if prefs == nil {
		prefs = model.DefaultPrefs(householdID, s.region)
	}
	return prefs, nil
}

// persistCandidate opportunistically stores the fetched metadata so later
// queue/watch calls hit the corpus. The embedding is left for the corpus
// maintainer; failures never drop a search result.
func (s *SearchService) persistCandidate(bundle *MovieBundle) {
	movie := bundle.Movie
	movie.Embedding = nil
	if err := s.movies.Upsert(&movie); err != nil {
		log.Warn().Err(err).Int("tmdb_id", movie.TMDBID).Msg("[Search] candidate save failed")
		return
	}
	if bundle.Providers != nil {
		if err := s.providers.Upsert(movie.TMDBID, s.region, bundle.Providers); err != nil {
			log.Warn().Err(err).Int("tmdb_id", movie.TMDBID).Msg("[Search] provider save failed")
		}
	}
}
