package repository

import (
	"errors"
	"strings"

	"github.com/user/movierec/internal/model"
	"gorm.io/gorm"
)

type MovieRepository struct {
	db *gorm.DB
}

func NewMovieRepository(db *gorm.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

// FindByTmdbID 根据 TMDB ID 查找电影
func (r *MovieRepository) FindByTmdbID(tmdbID int64) (*model.Movie, error) {
	var movie model.Movie
	err := r.db.Where("tmdb_id = ?", tmdbID).First(&movie).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &movie, nil
}

// ExistingTmdbIDs 返回给定 ID 中已入库的子集
func (r *MovieRepository) ExistingTmdbIDs(tmdbIDs []int64) (map[int64]struct{}, error) {
	existing := make(map[int64]struct{})
	if len(tmdbIDs) == 0 {
		return existing, nil
	}

	var rows []int64
	err := r.db.Model(&model.Movie{}).
		Where("tmdb_id IN ?", tmdbIDs).
		Pluck("tmdb_id", &rows).Error
	if err != nil {
		return nil, err
	}

	for _, id := range rows {
		existing[id] = struct{}{}
	}
	return existing, nil
}

// AllTmdbIDs 返回全部已入库的 TMDB ID（批量导入的去重检查用）
func (r *MovieRepository) AllTmdbIDs() (map[int64]struct{}, error) {
	var rows []int64
	if err := r.db.Model(&model.Movie{}).Pluck("tmdb_id", &rows).Error; err != nil {
		return nil, err
	}

	ids := make(map[int64]struct{}, len(rows))
	for _, id := range rows {
		ids[id] = struct{}{}
	}
	return ids, nil
}

// FindTmdbIDsByTitleCast 按标题/演员做模糊匹配，返回命中的 TMDB ID
// 语义检索路径用它把关系库才有的条件折算成 ID 白名单
func (r *MovieRepository) FindTmdbIDsByTitleCast(title string, cast []string) ([]int64, error) {
	q := r.db.Model(&model.Movie{})
	if title != "" {
		q = q.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(title)+"%")
	}
	q = applyListFilter(q, "cast", cast)

	var ids []int64
	err := q.Pluck("tmdb_id", &ids).Error
	return ids, err
}

// MovieSearchParams 关系库检索条件，零值字段不参与过滤
type MovieSearchParams struct {
	ExcludeTmdbIDs      []int64
	Title               string
	ReleaseDateFrom     string
	ReleaseDateTo       string
	RuntimeMin          int
	RuntimeMax          int
	VoteAverageMin      float64
	VoteCountMin        int
	PopularityMin       float64
	Genres              []string
	ProductionCountries []string
	Keywords            []string
	SpokenLanguages     []string
	Cast                []string
	Limit               int
}

// Search 按条件检索电影，按加权评分排序
// 加权评分 (vote_average*vote_count)/(vote_count+100) 抑制低票数高分
func (r *MovieRepository) Search(p MovieSearchParams) ([]model.Movie, error) {
	q := r.db.Model(&model.Movie{}).
		Where("vote_count > ?", p.VoteCountMin).
		Where("vote_average >= ?", p.VoteAverageMin).
		Where("runtime >= ?", p.RuntimeMin).
		Order("(vote_average * vote_count) / (vote_count + 100) DESC").
		Order("vote_count DESC").
		Order("popularity DESC").
		Limit(p.Limit)

	if len(p.ExcludeTmdbIDs) > 0 {
		q = q.Where("tmdb_id NOT IN ?", p.ExcludeTmdbIDs)
	}
	if p.Title != "" {
		q = q.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(p.Title)+"%")
	}
	if p.ReleaseDateFrom != "" {
		q = q.Where("release_date >= ?", p.ReleaseDateFrom)
	}
	if p.ReleaseDateTo != "" {
		q = q.Where("release_date <= ?", p.ReleaseDateTo)
	}
	if p.RuntimeMax > 0 {
		q = q.Where("runtime <= ?", p.RuntimeMax)
	}
	if p.PopularityMin > 0 {
		q = q.Where("popularity >= ?", p.PopularityMin)
	}

	q = applyListFilter(q, "genres", p.Genres)
	q = applyListFilter(q, "production_countries", p.ProductionCountries)
	q = applyListFilter(q, "keywords", p.Keywords)
	q = applyListFilter(q, "spoken_languages", p.SpokenLanguages)
	q = applyListFilter(q, "cast", p.Cast)

	var movies []model.Movie
	err := q.Find(&movies).Error
	return movies, err
}

// Count 获取电影总数
func (r *MovieRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&model.Movie{}).Count(&count).Error
	return count, err
}

// applyListFilter 对逗号分隔列做包含匹配，"!" 前缀表示排除
// 列名加引号，cast 是 SQL 关键字
func applyListFilter(q *gorm.DB, column string, values []string) *gorm.DB {
	for _, v := range values {
		if v == "" {
			continue
		}
		if strings.HasPrefix(v, "!") {
			q = q.Where(`LOWER("`+column+`") NOT LIKE ?`, "%"+strings.ToLower(v[1:])+"%")
		} else {
			q = q.Where(`LOWER("`+column+`") LIKE ?`, "%"+strings.ToLower(v)+"%")
		}
	}
	return q
}
