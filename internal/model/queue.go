package model

import (
	"time"
)

// QueueStatus 入库流水线状态机的状态
type QueueStatus string

const (
	StatusRefreshData           QueueStatus = "refresh_data"
	StatusPreprocessDescription QueueStatus = "preprocess_description"
	StatusCreateEmbedding       QueueStatus = "create_embedding"
	StatusCompleted             QueueStatus = "completed"
	StatusFailed                QueueStatus = "failed"
)

// AllQueueStatuses 合法状态集合（CLI 参数校验用）
var AllQueueStatuses = []QueueStatus{
	StatusRefreshData,
	StatusPreprocessDescription,
	StatusCreateEmbedding,
	StatusCompleted,
	StatusFailed,
}

// IsValidQueueStatus 判断是否为合法状态
func IsValidQueueStatus(s QueueStatus) bool {
	for _, status := range AllQueueStatuses {
		if status == s {
			return true
		}
	}
	return false
}

// MovieQueue 电影入库队列条目，与电影按 tmdb_id 一一对应
type MovieQueue struct {
	ID                      int         `json:"id" db:"id"`
	TmdbID                  int64       `json:"tmdb_id" db:"tmdb_id" gorm:"uniqueIndex"`
	Status                  QueueStatus `json:"status" db:"status" gorm:"index"`
	Retries                 int         `json:"retries" db:"retries"`
	Message                 string      `json:"message" db:"message"`
	PreprocessedDescription string      `json:"preprocessed_description" db:"preprocessed_description"`
	CreatedAt               time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt               time.Time   `json:"updated_at" db:"updated_at" gorm:"index"`
}

// NewMovieQueue 新发现的电影已完成详情抓取，直接进入描述预处理阶段
func NewMovieQueue(tmdbID int64) *MovieQueue {
	return &MovieQueue{
		TmdbID: tmdbID,
		Status: StatusPreprocessDescription,
	}
}
