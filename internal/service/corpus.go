package service

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/user/cinefam/internal/errs"
	"github.com/user/cinefam/internal/model"
)

// expansionTerms drive corpus growth when recommendation pools run thin.
// Ordered by how reliably each term surfaces family-viewable titles.
var expansionTerms = []string{
	"disney", "pixar", "dreamworks", "animation", "family", "kids", "adventure",
}

// CorpusService owns the local movie corpus: it fetches full metadata from
// the upstream catalog, computes embeddings, and persists the result.
// Concurrent requests for the same movie are collapsed via singleflight so
// the upstream only sees one fetch.
type CorpusService struct {
	movies    MovieStore
	providers ProviderStore
	gateway   MetadataGateway
	embedder  Embedder
	policy    *PolicyFilter
	region    string
	sf        singleflight.Group
}

func NewCorpusService(movies MovieStore, providers ProviderStore, gateway MetadataGateway, embedder Embedder, policy *PolicyFilter, region string) *CorpusService {
	return &CorpusService{
		movies:    movies,
		providers: providers,
		gateway:   gateway,
		embedder:  embedder,
		policy:    policy,
		region:    region,
	}
}

// EnsureMovie returns the stored movie, fetching and persisting it first if
// the corpus does not have it yet. A stored row is returned as-is even if
// its metadata is stale.
func (s *CorpusService) EnsureMovie(ctx context.Context, tmdbID int) (*model.Movie, error) {
	existing, err := s.movies.FindByTMDBID(tmdbID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	v, err, _ := s.sf.Do(fmt.Sprintf("movie:%d", tmdbID), func() (interface{}, error) {
		return s.fetchAndSave(ctx, tmdbID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.Movie), nil
}

func (s *CorpusService) fetchAndSave(ctx context.Context, tmdbID int) (*model.Movie, error) {
	bundle, err := s.gateway.FetchComplete(ctx, tmdbID, s.region)
	if err != nil {
		return nil, err
	}
	movie := bundle.Movie

	raw, err := s.embedder.EmbedMovie(ctx, &movie)
	if err != nil {
		// Embeddings are required for recommendation but a movie without
		// one is still usable for policy checks and watch state.
		log.Warn().Err(err).Int("tmdb_id", tmdbID).Msg("[Corpus] embedding failed, saving without")
	} else {
		vec := pgvector.NewVector(raw)
		movie.Embedding = &vec
	}

	if err := s.movies.Upsert(&movie); err != nil {
		return nil, err
	}
	if bundle.Providers != nil {
		if err := s.providers.Upsert(tmdbID, s.region, bundle.Providers); err != nil {
			log.Warn().Err(err).Int("tmdb_id", tmdbID).Msg("[Corpus] provider save failed")
		}
	}
	return &movie, nil
}

// Expand grows the corpus toward targetCount policy-eligible movies by
// searching a fixed set of family-oriented terms. Individual fetch failures
// are skipped; expansion never returns an error. The number of movies added
// is returned.
func (s *CorpusService) Expand(ctx context.Context, prefs *model.HouseholdPrefs, targetCount int) int {
	added := 0
	for _, term := range expansionTerms {
		if added >= targetCount {
			break
		}
		items, err := s.gateway.Search(ctx, term, nil)
		if err != nil {
			log.Warn().Err(err).Str("term", term).Msg("[Corpus] expansion search failed")
			continue
		}
		for _, item := range items {
			if added >= targetCount {
				break
			}
			exists, err := s.movies.Exists(item.TMDBID)
			if err != nil || exists {
				continue
			}
			if err := s.ingestCandidate(ctx, item.TMDBID, prefs); err != nil {
				if errs.IsTimeout(err) || ctx.Err() != nil {
					log.Warn().Err(err).Str("term", term).Msg("[Corpus] expansion aborted")
					return added
				}
				log.Debug().Err(err).Int("tmdb_id", item.TMDBID).Msg("[Corpus] expansion candidate skipped")
				continue
			}
			added++
		}
	}
	log.Info().Int("added", added).Int("target", targetCount).Msg("[Corpus] expansion finished")
	return added
}

// ingestCandidate fetches, filters (ingestion mode), embeds, and persists a
// single expansion candidate. Rejected candidates are not stored.
func (s *CorpusService) ingestCandidate(ctx context.Context, tmdbID int, prefs *model.HouseholdPrefs) error {
	bundle, err := s.gateway.FetchComplete(ctx, tmdbID, s.region)
	if err != nil {
		return err
	}
	if ok, reason := s.policy.Accepts(&bundle.Movie, prefs, FilterIngest); !ok {
		return fmt.Errorf("rejected by policy: %s", reason)
	}
	movie := bundle.Movie
	if raw, err := s.embedder.EmbedMovie(ctx, &movie); err != nil {
		log.Warn().Err(err).Int("tmdb_id", tmdbID).Msg("[Corpus] embedding failed, saving without")
	} else {
		vec := pgvector.NewVector(raw)
		movie.Embedding = &vec
	}
	if err := s.movies.Upsert(&movie); err != nil {
		return err
	}
	if bundle.Providers != nil {
		if err := s.providers.Upsert(tmdbID, s.region, bundle.Providers); err != nil {
			log.Warn().Err(err).Int("tmdb_id", tmdbID).Msg("[Corpus] provider save failed")
		}
	}
	return nil
}
