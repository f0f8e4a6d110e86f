package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserCreateAndLogin(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)

	user, err := repo.Create("alice@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "user", user.Role)
	assert.Equal(t, []string{"movie:read"}, user.ScopeList())
	assert.False(t, user.Disabled)
	// 明文密码不落库
	assert.NotEqual(t, "correct-horse", user.PasswordHash)

	found, err := repo.FindByEmail("alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.True(t, repo.CheckPassword(found, "correct-horse"))
	assert.False(t, repo.CheckPassword(found, "wrong"))
}

func TestUserFindMissing(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)

	user, err := repo.FindByEmail("nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, user)

	user, err = repo.FindByID(999)
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestUserUpdateScopes(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)

	_, err := repo.Create("bob@example.com", "password123")
	require.NoError(t, err)

	affected, err := repo.UpdateScopes("bob@example.com", []string{"movie:read", "movie:write"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	user, err := repo.FindByEmail("bob@example.com")
	require.NoError(t, err)
	assert.True(t, user.HasScope("movie:write"))

	affected, err = repo.UpdateScopes("ghost@example.com", []string{"movie:read"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)
}

func TestUserUpdateDisabled(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)

	_, err := repo.Create("carol@example.com", "password123")
	require.NoError(t, err)

	affected, err := repo.UpdateDisabled("carol@example.com", true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	user, err := repo.FindByEmail("carol@example.com")
	require.NoError(t, err)
	assert.True(t, user.Disabled)
}

func TestRecommendationRecordDeduplicates(t *testing.T) {
	db := newTestDB(t)
	repo := NewRecommendationRepository(db)

	require.NoError(t, repo.Record(1, 603))
	require.NoError(t, repo.Record(1, 603))
	require.NoError(t, repo.Record(1, 604))
	require.NoError(t, repo.Record(2, 603))

	ids, err := repo.ListTmdbIDs(1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{603, 604}, ids)
}

func TestRecommendationSetScore(t *testing.T) {
	db := newTestDB(t)
	repo := NewRecommendationRepository(db)

	require.NoError(t, repo.Record(1, 603))

	affected, err := repo.SetScore(1, 603, 8)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	// 未推荐过的电影不能打分
	affected, err = repo.SetScore(1, 999, 8)
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)
}
