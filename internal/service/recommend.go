package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/user/cinefam/internal/errs"
	"github.com/user/cinefam/internal/model"
	"github.com/user/cinefam/internal/repository"
)

const (
	defaultRecommendLimit = 10
	maxRecommendLimit     = 24
	overfetchFactor       = 10
	overfetchFloor        = 60
)

// RecommendRequest carries the caller's explicit constraints. The free-text
// description is advisory context from the conversational layer and is not
// parsed here.
type RecommendRequest struct {
	Limit          int      `json:"limit" binding:"omitempty,min=1,max=24"`
	YearMin        *int     `json:"year_min" binding:"omitempty,min=1880,max=2100"`
	YearMax        *int     `json:"year_max" binding:"omitempty,min=1880,max=2100"`
	Genres         []string `json:"genres" binding:"omitempty,dive,notblank"`
	MinPopularity  *float64 `json:"min_popularity" binding:"omitempty,gte=0"`
	MinVoteAverage *float64 `json:"min_vote_average" binding:"omitempty,gte=0,lte=10"`
	StreamingOnly  bool     `json:"streaming_only"`
	Description    string   `json:"description" binding:"omitempty,max=500"`
}

// Validate applies defaults and cross-field checks not expressible as
// binding tags.
func (r *RecommendRequest) Validate() error {
	if r.Limit == 0 {
		r.Limit = defaultRecommendLimit
	}
	if r.Limit < 1 || r.Limit > maxRecommendLimit {
		return errs.Validationf("limit must be between 1 and %d", maxRecommendLimit)
	}
	if r.YearMin != nil && r.YearMax != nil && *r.YearMin > *r.YearMax {
		return errs.Validationf("year_min %d is after year_max %d", *r.YearMin, *r.YearMax)
	}
	return nil
}

func (r *RecommendRequest) hasExplicitFilters() bool {
	return r.YearMin != nil || r.YearMax != nil || len(r.Genres) > 0 ||
		r.MinPopularity != nil || r.MinVoteAverage != nil || r.StreamingOnly
}

// RecommendResult is one ranked recommendation with a human-readable reason.
type RecommendResult struct {
	Movie     model.Movie          `json:"movie"`
	Providers *model.ProviderLists `json:"providers,omitempty"`
	Reason    string               `json:"reason"`
	Distance  *float64             `json:"distance,omitempty"`
}

// RecommendationEngine orchestrates similarity retrieval, corpus expansion,
// filtering, ranking, and reason annotation.
type RecommendationEngine struct {
	movies    MovieStore
	providers ProviderStore
	prefs     PrefsStore
	tastes    TasteStore
	gateway   MetadataGateway
	expander  CorpusExpander
	policy    *PolicyFilter
	region    string
}

func NewRecommendationEngine(movies MovieStore, providers ProviderStore, prefs PrefsStore, tastes TasteStore, gateway MetadataGateway, expander CorpusExpander, policy *PolicyFilter, region string) *RecommendationEngine {
	return &RecommendationEngine{
		movies:    movies,
		providers: providers,
		prefs:     prefs,
		tastes:    tastes,
		gateway:   gateway,
		expander:  expander,
		policy:    policy,
		region:    region,
	}
}

// Recommend returns up to req.Limit ranked results. A similarity-query
// failure is fatal; everything downstream of it is best-effort, so the
// result may be shorter than requested but is never an error once
// candidates exist.
func (e *RecommendationEngine) Recommend(ctx context.Context, householdID string, req *RecommendRequest) ([]RecommendResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	prefs, err := e.prefs.Find(householdID)
	if err != nil {
		return nil, err
	}
	if prefs == nil {
		prefs = model.DefaultPrefs(householdID, e.region)
	}

	candidateLimit := req.Limit
	if req.hasExplicitFilters() {
		candidateLimit = overfetchFactor * req.Limit
		if candidateLimit < overfetchFloor {
			candidateLimit = overfetchFloor
		}
	}

	candidates, err := e.query(householdID, prefs, candidateLimit)
	if err != nil {
		return nil, err
	}
	candidates = e.preFilter(candidates, prefs, req)

	// One backfill pass when the corpus runs thin, then a single re-query.
	if len(candidates) < req.Limit {
		shortfall := req.Limit - len(candidates)
		added := e.expander.Expand(ctx, prefs, 2*shortfall)
		log.Info().Str("household", householdID).Int("shortfall", shortfall).Int("added", added).
			Msg("[Recommend] corpus backfill")
		candidates, err = e.query(householdID, prefs, candidateLimit)
		if err != nil {
			return nil, err
		}
		candidates = e.preFilter(candidates, prefs, req)
	}

	availability := e.refreshCandidates(ctx, candidates)
	candidates = e.postFilter(candidates, req, availability)
	candidates = partitionByPreferred(candidates, prefs.PreferredServices, availability)

	if len(candidates) > req.Limit {
		candidates = candidates[:req.Limit]
	}
	results := make([]RecommendResult, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, RecommendResult{
			Movie:     c.Movie,
			Providers: availability[c.TMDBID],
			Reason:    e.reason(&c, prefs, req, availability[c.TMDBID]),
			Distance:  c.Distance,
		})
	}
	return results, nil
}

// query orders by distance to the household taste vector when one exists,
// else by popularity. Watches inside the rewatch cool-down are excluded in
// the query itself.
func (e *RecommendationEngine) query(householdID string, prefs *model.HouseholdPrefs, limit int) ([]repository.RankedMovie, error) {
	taste, err := e.tastes.Find(householdID)
	if err != nil {
		return nil, err
	}
	if taste != nil {
		return e.movies.RecommendByTaste(householdID, taste.Taste, prefs.RewatchExclusionDays, limit)
	}
	return e.movies.RecommendByPopularity(householdID, prefs.RewatchExclusionDays, limit)
}

// preFilter applies the household policy plus the cheap explicit filters
// (year range, genre) that need no provider or stat refresh.
func (e *RecommendationEngine) preFilter(candidates []repository.RankedMovie, prefs *model.HouseholdPrefs, req *RecommendRequest) []repository.RankedMovie {
	kept := candidates[:0]
	for _, c := range candidates {
		if ok, _ := e.policy.Accepts(&c.Movie, prefs, FilterIngest); !ok {
			continue
		}
		if req.YearMin != nil && (c.Year == nil || *c.Year < *req.YearMin) {
			continue
		}
		if req.YearMax != nil && (c.Year == nil || *c.Year > *req.YearMax) {
			continue
		}
		if len(req.Genres) > 0 && !hasAnyGenre(c.Genres, req.Genres) {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

// refreshCandidates re-fetches metadata and availability for the surviving
// candidates. Failures fall back to whatever is already stored.
func (e *RecommendationEngine) refreshCandidates(ctx context.Context, candidates []repository.RankedMovie) map[int]*model.ProviderLists {
	ids := make([]int, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.TMDBID)
	}
	availability, err := e.providers.FindBatch(ids, e.region)
	if err != nil {
		log.Warn().Err(err).Msg("[Recommend] cached availability lookup failed")
		availability = make(map[int]*model.ProviderLists)
	}

	for i := range candidates {
		id := candidates[i].TMDBID
		bundle, err := e.gateway.FetchComplete(ctx, id, e.region)
		if err != nil {
			log.Debug().Err(err).Int("tmdb_id", id).Msg("[Recommend] refresh failed, using cached data")
			continue
		}
		fresh := bundle.Movie
		fresh.Embedding = candidates[i].Embedding
		candidates[i].Movie = fresh

		fresh.Embedding = nil
		if err := e.movies.Upsert(&fresh); err != nil {
			log.Warn().Err(err).Int("tmdb_id", id).Msg("[Recommend] refresh save failed")
		}
		if bundle.Providers != nil {
			availability[id] = bundle.Providers
			if err := e.providers.Upsert(id, e.region, bundle.Providers); err != nil {
				log.Warn().Err(err).Int("tmdb_id", id).Msg("[Recommend] availability save failed")
			}
		}
	}
	return availability
}

// postFilter applies the thresholds that depend on refreshed stats and
// availability.
func (e *RecommendationEngine) postFilter(candidates []repository.RankedMovie, req *RecommendRequest, availability map[int]*model.ProviderLists) []repository.RankedMovie {
	kept := candidates[:0]
	for _, c := range candidates {
		if req.MinPopularity != nil && c.Popularity < *req.MinPopularity {
			continue
		}
		if req.MinVoteAverage != nil && c.VoteAverage < *req.MinVoteAverage {
			continue
		}
		if req.StreamingOnly {
			lists := availability[c.TMDBID]
			if lists == nil || len(lists.Flatrate) == 0 {
				continue
			}
		}
		kept = append(kept, c)
	}
	return kept
}

// partitionByPreferred stable-partitions candidates so anything on a
// preferred subscription service comes first. Relative order within each
// half is preserved; this is not a re-sort.
func partitionByPreferred(candidates []repository.RankedMovie, preferred []string, availability map[int]*model.ProviderLists) []repository.RankedMovie {
	if len(preferred) == 0 {
		return candidates
	}
	front := make([]repository.RankedMovie, 0, len(candidates))
	back := make([]repository.RankedMovie, 0, len(candidates))
	for _, c := range candidates {
		if preferredService(availability[c.TMDBID], preferred) != "" {
			front = append(front, c)
		} else {
			back = append(back, c)
		}
	}
	return append(front, back...)
}

// preferredService returns the first preferred service that carries the
// movie on subscription, or "".
func preferredService(lists *model.ProviderLists, preferred []string) string {
	if lists == nil {
		return ""
	}
	for _, want := range preferred {
		for _, p := range lists.Flatrate {
			if strings.EqualFold(p.ProviderName, want) {
				return p.ProviderName
			}
		}
	}
	return ""
}

// reason produces the single-sentence annotation. Checks run in priority
// order and the first applicable one wins.
func (e *RecommendationEngine) reason(c *repository.RankedMovie, prefs *model.HouseholdPrefs, req *RecommendRequest, lists *model.ProviderLists) string {
	if c.Certification != nil && *c.Certification != "" && containsFold(prefs.AllowedRatings, *c.Certification) {
		return fmt.Sprintf("Rated %s, within your household's allowed ratings.", *c.Certification)
	}
	if c.Runtime != nil && prefs.MaxRuntime > 0 && *c.Runtime <= prefs.MaxRuntime {
		return fmt.Sprintf("Runs %d minutes, inside your %d-minute limit.", *c.Runtime, prefs.MaxRuntime)
	}
	if svc := preferredService(lists, prefs.PreferredServices); svc != "" {
		return fmt.Sprintf("Streaming now on %s.", svc)
	}
	if (req.YearMin != nil || req.YearMax != nil) && c.Year != nil {
		return fmt.Sprintf("Released in %d, matching the years you asked for.", *c.Year)
	}
	if len(req.Genres) > 0 && hasAnyGenre(c.Genres, req.Genres) {
		return fmt.Sprintf("A %s pick, as requested.", strings.ToLower(req.Genres[0]))
	}
	if c.VoteAverage >= 7 {
		return "Highly rated by other viewers."
	}
	return "A popular pick right now."
}

func hasAnyGenre(genres []string, wanted []string) bool {
	for _, w := range wanted {
		for _, g := range genres {
			if strings.EqualFold(g, w) {
				return true
			}
		}
	}
	return false
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}
