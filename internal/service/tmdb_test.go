package service

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/movierec/internal/config"
	"github.com/user/movierec/internal/utils"
)

const detailPayload = `{
	"id": 603,
	"title": "The Matrix",
	"status": "Released",
	"release_date": "1999-03-30",
	"poster_path": "/matrix.jpg",
	"runtime": 136,
	"vote_average": 8.2,
	"vote_count": 24000,
	"popularity": 85.5,
	"overview": "A computer hacker learns the truth.",
	"tagline": "Free your mind.",
	"genres": [{"id": 28, "name": "Action"}, {"id": 878, "name": "Science Fiction"}],
	"spoken_languages": [{"iso_639_1": "en", "name": "English", "english_name": "English"}],
	"production_companies": [{"name": "Warner Bros."}, {"name": "Village Roadshow"}],
	"production_countries": [{"name": "United States of America"}],
	"keywords": {"keywords": [{"name": "simulation"}, {"name": "dystopia"}]},
	"credits": {"cast": [
		{"name": "Keanu Reeves"}, {"name": "Laurence Fishburne"}, {"name": "Carrie-Anne Moss"},
		{"name": "Hugo Weaving"}, {"name": "Joe Pantoliano"}, {"name": "Gloria Foster"}
	]}
}`

func newTestTMDB(t *testing.T, handler http.HandlerFunc) *TMDBClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewTMDBClient(&config.Config{TMDBBaseURL: srv.URL, TMDBToken: "test-token"})
}

func TestFetchListingIDs(t *testing.T) {
	client := newTestTMDB(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/movie/now_playing", r.URL.Path)
		assert.Equal(t, "3", r.URL.Query().Get("page"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"page": 3, "total_pages": 10, "results": [{"id": 1}, {"id": 2}, {"id": 2}]}`)
	})

	ids, err := client.FetchNowPlayingIDs(3)
	require.NoError(t, err)
	assert.Len(t, ids, 2)
	assert.Contains(t, ids, int64(1))
	assert.Contains(t, ids, int64(2))
}

func TestFetchListingIDsServerError(t *testing.T) {
	client := newTestTMDB(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.FetchPopularIDs(1)
	require.Error(t, err)

	var statusErr *utils.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
}

func TestFetchMovieDetailsNormalization(t *testing.T) {
	client := newTestTMDB(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/movie/603", r.URL.Path)
		assert.Equal(t, "keywords,credits", r.URL.Query().Get("append_to_response"))
		fmt.Fprint(w, detailPayload)
	})

	d, err := client.FetchMovieDetails(603)
	require.NoError(t, err)

	assert.Equal(t, int64(603), d.TmdbID)
	assert.Equal(t, "The Matrix", d.Title)
	assert.Equal(t, "Action, Science Fiction", d.Genres)
	assert.Equal(t, "English", d.SpokenLanguages)
	assert.Equal(t, "Warner Bros., Village Roadshow", d.ProductionCompanies)
	assert.Equal(t, "simulation, dystopia", d.Keywords)
	// 演员只取前 5 位
	assert.Equal(t, "Keanu Reeves, Laurence Fishburne, Carrie-Anne Moss, Hugo Weaving, Joe Pantoliano", d.Cast)
}

func TestFetchMovieDetailsMissingFields(t *testing.T) {
	client := newTestTMDB(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": 7, "title": "Sparse", "overview": ""}`)
	})

	d, err := client.FetchMovieDetails(7)
	require.NoError(t, err)

	assert.Equal(t, "", d.Overview)
	assert.Equal(t, "", d.Genres)
	assert.Equal(t, "", d.Cast)
	assert.Equal(t, 0, d.Runtime)
}

func TestFetchMovieDetailsInvalidPayload(t *testing.T) {
	client := newTestTMDB(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": 0, "title": ""}`)
	})

	_, err := client.FetchMovieDetails(8)
	assert.Error(t, err)
}
