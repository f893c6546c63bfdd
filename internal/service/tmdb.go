package service

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/user/cinefam/internal/model"
	"github.com/user/cinefam/internal/utils"
)

const tmdbAPIBase = "https://api.themoviedb.org/3"

// TMDBService talks to the external movie catalog through the shared
// bounded client and normalizes responses into the canonical movie record.
type TMDBService struct {
	client  *utils.BoundedClient
	baseURL string
	token   string
}

// NewTMDBService creates the metadata gateway.
func NewTMDBService(client *utils.BoundedClient, token string) *TMDBService {
	return &TMDBService{client: client, baseURL: tmdbAPIBase, token: token}
}

// SearchItem is one raw search hit, before any detail fetch.
type SearchItem struct {
	TMDBID      int
	Title       string
	ReleaseDate string
	Popularity  float64
}

// MovieBundle is the joined result of a complete metadata fetch: the
// normalized movie plus provider lists for one region and credit context.
type MovieBundle struct {
	Movie     model.Movie
	Providers *model.ProviderLists
	Directors []string
	Cast      []string
}

type tmdbSearchResponse struct {
	Results []struct {
		ID          int     `json:"id"`
		Title       string  `json:"title"`
		ReleaseDate string  `json:"release_date"`
		Popularity  float64 `json:"popularity"`
	} `json:"results"`
}

type tmdbDetailsResponse struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	ReleaseDate string  `json:"release_date"`
	PosterPath  *string `json:"poster_path"`
	Runtime     int     `json:"runtime"`
	Popularity  float64 `json:"popularity"`
	VoteAverage float64 `json:"vote_average"`
	VoteCount   int     `json:"vote_count"`
	Genres      []struct {
		Name string `json:"name"`
	} `json:"genres"`
}

type tmdbReleaseDatesResponse struct {
	Results []struct {
		Region       string `json:"iso_3166_1"`
		ReleaseDates []struct {
			Certification string `json:"certification"`
		} `json:"release_dates"`
	} `json:"results"`
}

type tmdbKeywordsResponse struct {
	Keywords []struct {
		Name string `json:"name"`
	} `json:"keywords"`
}

type tmdbProvidersResponse struct {
	Results map[string]struct {
		Flatrate []tmdbProvider `json:"flatrate"`
		Rent     []tmdbProvider `json:"rent"`
		Buy      []tmdbProvider `json:"buy"`
	} `json:"results"`
}

type tmdbProvider struct {
	ProviderName string  `json:"provider_name"`
	LogoPath     *string `json:"logo_path"`
}

type tmdbCreditsResponse struct {
	Cast []struct {
		Name  string `json:"name"`
		Order int    `json:"order"`
	} `json:"cast"`
	Crew []struct {
		Name string `json:"name"`
		Job  string `json:"job"`
	} `json:"crew"`
}

func (s *TMDBService) headers() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + s.token,
		"Content-Type":  "application/json",
	}
}

// Search looks the catalog up by title, optionally pinned to a year.
func (s *TMDBService) Search(ctx context.Context, query string, year *int) ([]SearchItem, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("include_adult", "false")
	if year != nil {
		params.Set("year", strconv.Itoa(*year))
	}

	var resp tmdbSearchResponse
	endpoint := fmt.Sprintf("%s/search/movie?%s", s.baseURL, params.Encode())
	if err := s.client.GetJSON(ctx, endpoint, s.headers(), &resp); err != nil {
		return nil, err
	}

	items := make([]SearchItem, 0, len(resp.Results))
	for _, r := range resp.Results {
		items = append(items, SearchItem{
			TMDBID:      r.ID,
			Title:       r.Title,
			ReleaseDate: r.ReleaseDate,
			Popularity:  r.Popularity,
		})
	}
	return items, nil
}

// FetchComplete issues the five detail sub-requests concurrently and joins
// them. Any sub-request failure fails the whole call: callers retry or skip
// the candidate, there are no partial results.
func (s *TMDBService) FetchComplete(ctx context.Context, tmdbID int, region string) (*MovieBundle, error) {
	var (
		details   tmdbDetailsResponse
		releases  tmdbReleaseDatesResponse
		keywords  tmdbKeywordsResponse
		providers tmdbProvidersResponse
		credits   tmdbCreditsResponse
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.client.GetJSON(gctx, fmt.Sprintf("%s/movie/%d", s.baseURL, tmdbID), s.headers(), &details)
	})
	g.Go(func() error {
		return s.client.GetJSON(gctx, fmt.Sprintf("%s/movie/%d/release_dates", s.baseURL, tmdbID), s.headers(), &releases)
	})
	g.Go(func() error {
		return s.client.GetJSON(gctx, fmt.Sprintf("%s/movie/%d/keywords", s.baseURL, tmdbID), s.headers(), &keywords)
	})
	g.Go(func() error {
		return s.client.GetJSON(gctx, fmt.Sprintf("%s/movie/%d/watch/providers", s.baseURL, tmdbID), s.headers(), &providers)
	})
	g.Go(func() error {
		return s.client.GetJSON(gctx, fmt.Sprintf("%s/movie/%d/credits", s.baseURL, tmdbID), s.headers(), &credits)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	bundle := &MovieBundle{
		Movie:     normalizeMovie(&details, extractCertification(&releases, region), keywordNames(&keywords)),
		Providers: normalizeProviders(&providers, region),
		Directors: extractDirectors(&credits),
		Cast:      extractTopCast(&credits, 5),
	}
	return bundle, nil
}

// extractCertification scans the release records for the given region and
// returns the first non-empty certification. First match wins; conflicting
// certifications across release types are not reconciled.
func extractCertification(releases *tmdbReleaseDatesResponse, region string) *string {
	for _, r := range releases.Results {
		if r.Region != region {
			continue
		}
		for _, rd := range r.ReleaseDates {
			if rd.Certification != "" {
				cert := rd.Certification
				return &cert
			}
		}
	}
	return nil
}

// parseReleaseYear takes the leading 4 digits of a catalog date string.
func parseReleaseYear(releaseDate string) *int {
	if len(releaseDate) < 4 {
		return nil
	}
	year, err := strconv.Atoi(releaseDate[:4])
	if err != nil {
		return nil
	}
	return &year
}

func normalizeMovie(details *tmdbDetailsResponse, certification *string, keywords []string) model.Movie {
	genres := make([]string, 0, len(details.Genres))
	for _, g := range details.Genres {
		genres = append(genres, g.Name)
	}

	var runtime *int
	if details.Runtime > 0 {
		rt := details.Runtime
		runtime = &rt
	}

	return model.Movie{
		TMDBID:        details.ID,
		Title:         details.Title,
		Year:          parseReleaseYear(details.ReleaseDate),
		PosterPath:    details.PosterPath,
		Overview:      details.Overview,
		Runtime:       runtime,
		Certification: certification,
		Genres:        genres,
		Keywords:      keywords,
		Popularity:    details.Popularity,
		VoteAverage:   details.VoteAverage,
		VoteCount:     details.VoteCount,
	}
}

func normalizeProviders(resp *tmdbProvidersResponse, region string) *model.ProviderLists {
	regionData, ok := resp.Results[region]
	if !ok {
		return nil
	}
	convert := func(in []tmdbProvider) []model.Provider {
		out := make([]model.Provider, 0, len(in))
		for _, p := range in {
			out = append(out, model.Provider{ProviderName: p.ProviderName, LogoPath: p.LogoPath})
		}
		return out
	}
	return &model.ProviderLists{
		Flatrate: convert(regionData.Flatrate),
		Rent:     convert(regionData.Rent),
		Buy:      convert(regionData.Buy),
	}
}

func keywordNames(resp *tmdbKeywordsResponse) []string {
	names := make([]string, 0, len(resp.Keywords))
	for _, k := range resp.Keywords {
		names = append(names, k.Name)
	}
	return names
}

func extractDirectors(credits *tmdbCreditsResponse) []string {
	var names []string
	for _, c := range credits.Crew {
		if c.Job == "Director" {
			names = append(names, c.Name)
		}
	}
	return names
}

func extractTopCast(credits *tmdbCreditsResponse, limit int) []string {
	var names []string
	for _, c := range credits.Cast {
		if len(names) >= limit {
			break
		}
		names = append(names, c.Name)
	}
	return names
}

// PosterURL builds a full image URL for a poster reference.
func PosterURL(posterPath *string) string {
	if posterPath == nil || *posterPath == "" {
		return ""
	}
	return "https://image.tmdb.org/t/p/w500" + *posterPath
}
