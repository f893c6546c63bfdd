package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/cinefam/internal/errs"
	"github.com/user/cinefam/internal/utils"
)

func TestExtractCertificationFirstMatchWins(t *testing.T) {
	releases := &tmdbReleaseDatesResponse{}
	releases.Results = []struct {
		Region       string `json:"iso_3166_1"`
		ReleaseDates []struct {
			Certification string `json:"certification"`
		} `json:"release_dates"`
	}{
		{
			Region: "DE",
			ReleaseDates: []struct {
				Certification string `json:"certification"`
			}{{Certification: "FSK 6"}},
		},
		{
			Region: "US",
			ReleaseDates: []struct {
				Certification string `json:"certification"`
			}{{Certification: ""}, {Certification: "PG"}, {Certification: "PG-13"}},
		},
	}

	cert := extractCertification(releases, "US")

	require.NotNil(t, cert)
	assert.Equal(t, "PG", *cert, "first non-empty certification for the region wins")
}

func TestExtractCertificationNoRegionMatch(t *testing.T) {
	releases := &tmdbReleaseDatesResponse{}

	assert.Nil(t, extractCertification(releases, "US"))
}

func TestParseReleaseYear(t *testing.T) {
	cases := []struct {
		date string
		want *int
	}{
		{"1994-06-23", intPtr(1994)},
		{"2021", intPtr(2021)},
		{"", nil},
		{"abc", nil},
		{"19x4-01-01", nil},
	}
	for _, tc := range cases {
		got := parseReleaseYear(tc.date)
		if tc.want == nil {
			assert.Nil(t, got, tc.date)
		} else {
			require.NotNil(t, got, tc.date)
			assert.Equal(t, *tc.want, *got, tc.date)
		}
	}
}

func newTMDBTestServer(t *testing.T, failKeywords bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/movie/603", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"id": 603, "title": "Robot Family", "overview": "A robot joins a family.",
			"release_date": "1999-03-31", "poster_path": "/p.jpg", "runtime": 101,
			"popularity": 55.5, "vote_average": 7.9, "vote_count": 20000,
			"genres": [{"name": "Animation"}, {"name": "Family"}]
		}`))
	})
	mux.HandleFunc("/movie/603/release_dates", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": [{"iso_3166_1": "US", "release_dates": [{"certification": "PG"}]}]}`))
	})
	mux.HandleFunc("/movie/603/keywords", func(w http.ResponseWriter, r *http.Request) {
		if failKeywords {
			http.Error(w, `{"status_message":"not found"}`, http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"keywords": [{"name": "robot"}, {"name": "friendship"}]}`))
	})
	mux.HandleFunc("/movie/603/watch/providers", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": {"US": {"flatrate": [{"provider_name": "Netflix", "logo_path": "/n.jpg"}], "rent": [], "buy": []}}}`))
	})
	mux.HandleFunc("/movie/603/credits", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"cast": [{"name": "Actor One", "order": 0}, {"name": "Actor Two", "order": 1}],
			"crew": [{"name": "Jane Doe", "job": "Director"}, {"name": "Grip Guy", "job": "Grip"}]
		}`))
	})
	return httptest.NewServer(mux)
}

func TestFetchCompleteJoinsSubRequests(t *testing.T) {
	ts := newTMDBTestServer(t, false)
	defer ts.Close()

	svc := NewTMDBService(utils.NewBoundedClient("tmdb", 100, 100), "token")
	svc.baseURL = ts.URL

	bundle, err := svc.FetchComplete(context.Background(), 603, "US")

	require.NoError(t, err)
	assert.Equal(t, 603, bundle.Movie.TMDBID)
	assert.Equal(t, "Robot Family", bundle.Movie.Title)
	require.NotNil(t, bundle.Movie.Year)
	assert.Equal(t, 1999, *bundle.Movie.Year)
	require.NotNil(t, bundle.Movie.Certification)
	assert.Equal(t, "PG", *bundle.Movie.Certification)
	assert.Equal(t, []string{"robot", "friendship"}, []string(bundle.Movie.Keywords))
	require.NotNil(t, bundle.Providers)
	require.Len(t, bundle.Providers.Flatrate, 1)
	assert.Equal(t, "Netflix", bundle.Providers.Flatrate[0].ProviderName)
	assert.Equal(t, []string{"Jane Doe"}, bundle.Directors)
	assert.Equal(t, []string{"Actor One", "Actor Two"}, bundle.Cast)
}

func TestFetchCompleteFailsWhole(t *testing.T) {
	ts := newTMDBTestServer(t, true)
	defer ts.Close()

	svc := NewTMDBService(utils.NewBoundedClient("tmdb", 100, 100), "token")
	svc.baseURL = ts.URL

	_, err := svc.FetchComplete(context.Background(), 603, "US")

	require.Error(t, err, "any sub-request failure fails the whole fetch")
	assert.True(t, errs.IsUpstream(err))
}

func TestSearchMapsResults(t *testing.T) {
	var gotQuery, gotYear string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		gotYear = r.URL.Query().Get("year")
		w.Write([]byte(`{"results": [{"id": 10, "title": "Toy Tale", "release_date": "1995-11-22", "popularity": 90.1}]}`))
	}))
	defer ts.Close()

	svc := NewTMDBService(utils.NewBoundedClient("tmdb", 100, 100), "token")
	svc.baseURL = ts.URL

	items, err := svc.Search(context.Background(), "toy tale", intPtr(1995))

	require.NoError(t, err)
	assert.Equal(t, "toy tale", gotQuery)
	assert.Equal(t, "1995", gotYear)
	require.Len(t, items, 1)
	assert.Equal(t, 10, items[0].TMDBID)
	assert.Equal(t, "Toy Tale", items[0].Title)
}

func TestNormalizeProvidersMissingRegion(t *testing.T) {
	resp := &tmdbProvidersResponse{Results: map[string]struct {
		Flatrate []tmdbProvider `json:"flatrate"`
		Rent     []tmdbProvider `json:"rent"`
		Buy      []tmdbProvider `json:"buy"`
	}{}}

	assert.Nil(t, normalizeProviders(resp, "US"))
}
