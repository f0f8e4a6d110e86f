package repository

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/movierec/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// 内存库必须单连接，否则每个连接各自一个空库
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, Migrate(db))
	return db
}

func seedQueue(t *testing.T, db *gorm.DB, tmdbID int64, status model.QueueStatus, updatedAt time.Time) {
	t.Helper()
	entry := &model.MovieQueue{
		TmdbID:    tmdbID,
		Status:    status,
		CreatedAt: updatedAt,
	}
	require.NoError(t, db.Create(entry).Error)
	// gorm 会覆盖 UpdatedAt，改回指定时间
	require.NoError(t, db.Model(&model.MovieQueue{}).
		Where("tmdb_id = ?", tmdbID).
		Update("updated_at", updatedAt).Error)
}

func TestFindByStatusOrdering(t *testing.T) {
	db := newTestDB(t)
	repo := NewQueueRepository(db)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	seedQueue(t, db, 1, model.StatusRefreshData, base.Add(2*time.Hour))
	seedQueue(t, db, 2, model.StatusRefreshData, base)
	seedQueue(t, db, 3, model.StatusRefreshData, base.Add(time.Hour))
	seedQueue(t, db, 4, model.StatusCompleted, base)

	// 刷新阶段：最久未更新的先处理
	entries, err := repo.FindByStatus(model.StatusRefreshData, true, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, int64(2), entries[0].TmdbID)
	assert.Equal(t, int64(3), entries[1].TmdbID)
	assert.Equal(t, int64(1), entries[2].TmdbID)

	// limit 生效
	entries, err = repo.FindByStatus(model.StatusRefreshData, true, 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestFindMoviesWithoutQueue(t *testing.T) {
	db := newTestDB(t)
	repo := NewQueueRepository(db)

	require.NoError(t, db.Create(&model.Movie{TmdbID: 10, Title: "Orphan"}).Error)
	require.NoError(t, db.Create(&model.Movie{TmdbID: 11, Title: "Tracked"}).Error)
	require.NoError(t, db.Create(model.NewMovieQueue(11)).Error)

	movies, err := repo.FindMoviesWithoutQueue()
	require.NoError(t, err)
	require.Len(t, movies, 1)
	assert.Equal(t, int64(10), movies[0].TmdbID)
}

func TestBulkUpdateStatus(t *testing.T) {
	db := newTestDB(t)
	repo := NewQueueRepository(db)

	for id := int64(20); id < 23; id++ {
		entry := &model.MovieQueue{
			TmdbID:  id,
			Status:  model.StatusFailed,
			Retries: 3,
			Message: "status 500",
		}
		require.NoError(t, db.Create(entry).Error)
	}

	affected, err := repo.BulkUpdateStatus([]int64{20, 21}, model.StatusRefreshData, "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	var entry model.MovieQueue
	require.NoError(t, db.Where("tmdb_id = ?", 20).First(&entry).Error)
	assert.Equal(t, model.StatusRefreshData, entry.Status)
	assert.Equal(t, 0, entry.Retries)
	assert.Equal(t, "", entry.Message)

	// 不在列表里的条目不受影响
	require.NoError(t, db.Where("tmdb_id = ?", 22).First(&entry).Error)
	assert.Equal(t, model.StatusFailed, entry.Status)
	assert.Equal(t, 3, entry.Retries)
}

func TestBulkUpdateStatusAll(t *testing.T) {
	db := newTestDB(t)
	repo := NewQueueRepository(db)

	require.NoError(t, db.Create(model.NewMovieQueue(30)).Error)
	require.NoError(t, db.Create(model.NewMovieQueue(31)).Error)

	affected, err := repo.BulkUpdateStatus(nil, model.StatusRefreshData, "requeue all")
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)
}

func TestListWithTitles(t *testing.T) {
	db := newTestDB(t)
	repo := NewQueueRepository(db)

	require.NoError(t, db.Create(&model.Movie{TmdbID: 40, Title: "Named"}).Error)
	require.NoError(t, db.Create(model.NewMovieQueue(40)).Error)
	require.NoError(t, db.Create(model.NewMovieQueue(41)).Error) // 无对应电影

	items, total, err := repo.ListWithTitles(1, 10, "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, items, 2)

	byID := make(map[int64]QueueListItem)
	for _, item := range items {
		byID[item.TmdbID] = item
	}
	assert.Equal(t, "Named", byID[40].Title)
	assert.Equal(t, "", byID[41].Title)

	// 状态过滤
	_, total, err = repo.ListWithTitles(1, 10, model.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestCountByStatus(t *testing.T) {
	db := newTestDB(t)
	repo := NewQueueRepository(db)

	require.NoError(t, db.Create(model.NewMovieQueue(50)).Error)
	require.NoError(t, db.Create(model.NewMovieQueue(51)).Error)
	done := model.NewMovieQueue(52)
	done.Status = model.StatusCompleted
	require.NoError(t, db.Create(done).Error)

	counts, err := repo.CountByStatus()
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[string(model.StatusPreprocessDescription)])
	assert.Equal(t, int64(1), counts[string(model.StatusCompleted)])
}
