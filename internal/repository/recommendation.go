package repository

import (
	"time"

	"github.com/user/movierec/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RecommendationRepository struct {
	db *gorm.DB
}

func NewRecommendationRepository(db *gorm.DB) *RecommendationRepository {
	return &RecommendationRepository{db: db}
}

// Record 记录一次推荐，同一用户同一电影只保留首条
func (r *RecommendationRepository) Record(userID int, tmdbID int64) error {
	rec := &model.MovieRecommendation{
		UserID:    userID,
		TmdbID:    tmdbID,
		CreatedAt: time.Now(),
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "tmdb_id"}},
		DoNothing: true,
	}).Create(rec).Error
}

// ListTmdbIDs 用户已被推荐过的全部 TMDB ID（排重用）
func (r *RecommendationRepository) ListTmdbIDs(userID int) ([]int64, error) {
	var ids []int64
	err := r.db.Model(&model.MovieRecommendation{}).
		Where("user_id = ?", userID).
		Pluck("tmdb_id", &ids).Error
	return ids, err
}

// ListByUser 用户的推荐历史，带电影详情
func (r *RecommendationRepository) ListByUser(userID int, limit, offset int) ([]model.MovieRecommendation, error) {
	var recs []model.MovieRecommendation
	err := r.db.Preload("Movie").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&recs).Error
	return recs, err
}

// SetScore 用户给推荐打分
func (r *RecommendationRepository) SetScore(userID int, tmdbID int64, score int) (int64, error) {
	result := r.db.Model(&model.MovieRecommendation{}).
		Where("user_id = ? AND tmdb_id = ?", userID, tmdbID).
		Update("user_score", score)
	return result.RowsAffected, result.Error
}
