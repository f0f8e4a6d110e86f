package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/movierec/internal/model"
	"gorm.io/gorm"
)

func seedMovie(t *testing.T, db *gorm.DB, m *model.Movie) {
	t.Helper()
	require.NoError(t, db.Create(m).Error)
}

func TestSearchWeightedRatingOrder(t *testing.T) {
	db := newTestDB(t)
	repo := NewMovieRepository(db)

	// 高分低票 vs 次高分高票：加权评分应偏向后者
	seedMovie(t, db, &model.Movie{TmdbID: 1, Title: "Niche Gem", VoteAverage: 9.5, VoteCount: 60, Runtime: 100})
	seedMovie(t, db, &model.Movie{TmdbID: 2, Title: "Crowd Favorite", VoteAverage: 8.5, VoteCount: 20000, Runtime: 100})
	seedMovie(t, db, &model.Movie{TmdbID: 3, Title: "Decent", VoteAverage: 7.0, VoteCount: 5000, Runtime: 100})

	movies, err := repo.Search(MovieSearchParams{
		VoteAverageMin: 6.4,
		VoteCountMin:   50,
		RuntimeMin:     70,
		Limit:          10,
	})
	require.NoError(t, err)
	require.Len(t, movies, 3)
	assert.Equal(t, int64(2), movies[0].TmdbID)
	assert.Equal(t, int64(3), movies[1].TmdbID)
	assert.Equal(t, int64(1), movies[2].TmdbID)
}

func TestSearchQualityFloor(t *testing.T) {
	db := newTestDB(t)
	repo := NewMovieRepository(db)

	seedMovie(t, db, &model.Movie{TmdbID: 10, Title: "Too Short", VoteAverage: 8.0, VoteCount: 1000, Runtime: 45})
	seedMovie(t, db, &model.Movie{TmdbID: 11, Title: "Too Obscure", VoteAverage: 8.0, VoteCount: 30, Runtime: 100})
	seedMovie(t, db, &model.Movie{TmdbID: 12, Title: "Too Bad", VoteAverage: 4.0, VoteCount: 1000, Runtime: 100})
	seedMovie(t, db, &model.Movie{TmdbID: 13, Title: "Just Right", VoteAverage: 7.0, VoteCount: 1000, Runtime: 100})

	movies, err := repo.Search(MovieSearchParams{
		VoteAverageMin: 6.4,
		VoteCountMin:   50,
		RuntimeMin:     70,
		Limit:          10,
	})
	require.NoError(t, err)
	require.Len(t, movies, 1)
	assert.Equal(t, int64(13), movies[0].TmdbID)
}

func TestSearchListFilterWithNegation(t *testing.T) {
	db := newTestDB(t)
	repo := NewMovieRepository(db)

	seedMovie(t, db, &model.Movie{TmdbID: 20, Title: "Action Flick", Genres: "Action, Thriller", VoteAverage: 7.0, VoteCount: 500, Runtime: 100})
	seedMovie(t, db, &model.Movie{TmdbID: 21, Title: "Action Horror", Genres: "Action, Horror", VoteAverage: 7.0, VoteCount: 500, Runtime: 100})
	seedMovie(t, db, &model.Movie{TmdbID: 22, Title: "Quiet Drama", Genres: "Drama", VoteAverage: 7.0, VoteCount: 500, Runtime: 100})

	movies, err := repo.Search(MovieSearchParams{
		VoteAverageMin: 6.4,
		VoteCountMin:   50,
		RuntimeMin:     70,
		Genres:         []string{"action", "!horror"},
		Limit:          10,
	})
	require.NoError(t, err)
	require.Len(t, movies, 1)
	assert.Equal(t, int64(20), movies[0].TmdbID)
}

func TestSearchExcludesIDs(t *testing.T) {
	db := newTestDB(t)
	repo := NewMovieRepository(db)

	seedMovie(t, db, &model.Movie{TmdbID: 30, Title: "Seen", VoteAverage: 7.0, VoteCount: 500, Runtime: 100})
	seedMovie(t, db, &model.Movie{TmdbID: 31, Title: "Fresh", VoteAverage: 7.0, VoteCount: 500, Runtime: 100})

	movies, err := repo.Search(MovieSearchParams{
		ExcludeTmdbIDs: []int64{30},
		VoteAverageMin: 6.4,
		VoteCountMin:   50,
		RuntimeMin:     70,
		Limit:          10,
	})
	require.NoError(t, err)
	require.Len(t, movies, 1)
	assert.Equal(t, int64(31), movies[0].TmdbID)
}

func TestFindTmdbIDsByTitleCast(t *testing.T) {
	db := newTestDB(t)
	repo := NewMovieRepository(db)

	seedMovie(t, db, &model.Movie{TmdbID: 40, Title: "The Matrix", Cast: "Keanu Reeves, Laurence Fishburne"})
	seedMovie(t, db, &model.Movie{TmdbID: 41, Title: "John Wick", Cast: "Keanu Reeves, Ian McShane"})
	seedMovie(t, db, &model.Movie{TmdbID: 42, Title: "Matrix Documentary", Cast: "Nobody"})

	ids, err := repo.FindTmdbIDsByTitleCast("matrix", nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{40, 42}, ids)

	ids, err = repo.FindTmdbIDsByTitleCast("", []string{"keanu reeves"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{40, 41}, ids)

	ids, err = repo.FindTmdbIDsByTitleCast("matrix", []string{"keanu reeves"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{40}, ids)
}

func TestExistingTmdbIDs(t *testing.T) {
	db := newTestDB(t)
	repo := NewMovieRepository(db)

	seedMovie(t, db, &model.Movie{TmdbID: 50, Title: "Here"})

	existing, err := repo.ExistingTmdbIDs([]int64{50, 51})
	require.NoError(t, err)
	assert.Contains(t, existing, int64(50))
	assert.NotContains(t, existing, int64(51))

	existing, err = repo.ExistingTmdbIDs(nil)
	require.NoError(t, err)
	assert.Empty(t, existing)
}
