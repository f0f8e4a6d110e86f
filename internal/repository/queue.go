package repository

import (
	"time"

	"github.com/user/movierec/internal/model"
	"gorm.io/gorm"
)

type QueueRepository struct {
	db *gorm.DB
}

func NewQueueRepository(db *gorm.DB) *QueueRepository {
	return &QueueRepository{db: db}
}

// FindByStatus 按状态取队列条目
// 刷新阶段按 updated_at 升序（最久未刷新的先处理），其余阶段按创建时间先进先出
func (r *QueueRepository) FindByStatus(status model.QueueStatus, orderByUpdated bool, limit int) ([]model.MovieQueue, error) {
	q := r.db.Where("status = ?", status)
	if orderByUpdated {
		q = q.Order("updated_at ASC")
	} else {
		q = q.Order("created_at ASC")
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var entries []model.MovieQueue
	err := q.Find(&entries).Error
	return entries, err
}

// FindMoviesWithoutQueue 找出缺少队列条目的电影（对账用）
func (r *QueueRepository) FindMoviesWithoutQueue() ([]model.Movie, error) {
	var movies []model.Movie
	err := r.db.Model(&model.Movie{}).
		Joins("LEFT JOIN movie_queues ON movie_queues.tmdb_id = movies.tmdb_id").
		Where("movie_queues.id IS NULL").
		Find(&movies).Error
	return movies, err
}

// Create 创建队列条目
func (r *QueueRepository) Create(entry *model.MovieQueue) error {
	return r.db.Create(entry).Error
}

// Save 保存队列条目（UpdatedAt 由 gorm 自动刷新）
func (r *QueueRepository) Save(entry *model.MovieQueue) error {
	return r.db.Save(entry).Error
}

// BulkUpdateStatus 批量改写状态，重试计数清零
// tmdbIDs 为空则作用于全部条目
func (r *QueueRepository) BulkUpdateStatus(tmdbIDs []int64, status model.QueueStatus, message string) (int64, error) {
	q := r.db.Model(&model.MovieQueue{})
	if len(tmdbIDs) > 0 {
		q = q.Where("tmdb_id IN ?", tmdbIDs)
	}

	result := q.Updates(map[string]interface{}{
		"status":     status,
		"message":    message,
		"retries":    0,
		"updated_at": time.Now(),
	})
	return result.RowsAffected, result.Error
}

// QueueListItem 队列条目附带电影标题（管理端列表用）
type QueueListItem struct {
	model.MovieQueue
	Title string `json:"title"`
}

// ListWithTitles 分页列出队列条目并带上电影标题
func (r *QueueRepository) ListWithTitles(page, perPage int, status model.QueueStatus) ([]QueueListItem, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}

	countQ := r.db.Model(&model.MovieQueue{})
	listQ := r.db.Model(&model.MovieQueue{}).
		Select("movie_queues.*, movies.title AS title").
		Joins("LEFT JOIN movies ON movies.tmdb_id = movie_queues.tmdb_id")

	if status != "" {
		countQ = countQ.Where("movie_queues.status = ?", status)
		listQ = listQ.Where("movie_queues.status = ?", status)
	}

	var total int64
	if err := countQ.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []QueueListItem
	err := listQ.Order("movie_queues.updated_at DESC").
		Order("movie_queues.id DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Scan(&items).Error
	return items, total, err
}

// CountByStatus 各状态条目数统计
func (r *QueueRepository) CountByStatus() (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := r.db.Model(&model.MovieQueue{}).
		Select("status, COUNT(id) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
