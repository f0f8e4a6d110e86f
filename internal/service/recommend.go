package service

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/user/movierec/internal/model"
	"github.com/user/movierec/internal/repository"
	"github.com/user/movierec/internal/utils"
	"golang.org/x/sync/singleflight"
)

// 无条件时的质量底线，过滤烂片和短片
const (
	defaultVoteAverageMin = 6.4
	defaultVoteCountMin   = 50
	defaultRuntimeMin     = 70
)

// MovieFilter 检索条件
// Query 非空走语义检索，否则走关系库检索；
// 列表字段值带 "!" 前缀表示排除
type MovieFilter struct {
	Query               string   `json:"query"`
	Title               string   `json:"title"`
	Cast                []string `json:"cast"`
	Genres              []string `json:"genres"`
	Keywords            []string `json:"keywords"`
	SpokenLanguages     []string `json:"spoken_languages"`
	ProductionCountries []string `json:"production_countries"`
	ReleaseDateFrom     string   `json:"release_date_from"`
	ReleaseDateTo       string   `json:"release_date_to"`
	RuntimeMin          int      `json:"runtime_min"`
	RuntimeMax          int      `json:"runtime_max"`
	VoteAverageMin      float64  `json:"vote_average_min"`
	VoteCountMin        int      `json:"vote_count_min"`
	PopularityMin       float64  `json:"popularity_min"`
	Limit               int      `json:"limit"`
	MaxDistance         float64  `json:"max_distance"`
}

func (f *MovieFilter) applyDefaults() {
	if f.VoteAverageMin == 0 {
		f.VoteAverageMin = defaultVoteAverageMin
	}
	if f.VoteCountMin == 0 {
		f.VoteCountMin = defaultVoteCountMin
	}
	if f.RuntimeMin == 0 {
		f.RuntimeMin = defaultRuntimeMin
	}
	if f.Limit <= 0 || f.Limit > defaultTopK {
		f.Limit = defaultTopK
	}
}

// Hit 检索命中，两条路径只会填其一
type Hit struct {
	Relational *model.Movie         `json:"movie,omitempty"`
	Semantic   *model.MovieMetadata `json:"metadata,omitempty"`
	Distance   float64              `json:"distance,omitempty"`
}

// TmdbID 命中电影的 TMDB ID
func (h Hit) TmdbID() int64 {
	if h.Relational != nil {
		return h.Relational.TmdbID
	}
	if h.Semantic != nil {
		return h.Semantic.TmdbID
	}
	return 0
}

// RecommendService 检索与推荐
type RecommendService struct {
	movies  *repository.MovieRepository
	recs    *repository.RecommendationRepository
	vectors *VectorStore
	cache   *utils.QueryCache[[]Hit]
	sf      singleflight.Group
}

// NewRecommendService 创建检索推荐服务
func NewRecommendService(movies *repository.MovieRepository, recs *repository.RecommendationRepository, vectors *VectorStore) *RecommendService {
	return &RecommendService{
		movies:  movies,
		recs:    recs,
		vectors: vectors,
		cache:   utils.NewQueryCache[[]Hit](500, 10*time.Minute),
	}
}

// Search 按条件检索电影，不记录推荐历史
// 相同条件的并发请求合并执行，结果短期缓存
func (s *RecommendService) Search(filter MovieFilter, excludeTmdbIDs []int64) ([]Hit, error) {
	filter.applyDefaults()

	key := s.cacheKey(filter, excludeTmdbIDs)
	if hits, ok := s.cache.Get(key); ok {
		return hits, nil
	}

	result, err, _ := s.sf.Do(key, func() (interface{}, error) {
		var hits []Hit
		var err error
		if filter.Query != "" {
			hits, err = s.searchSemantic(filter, excludeTmdbIDs)
		} else {
			hits, err = s.searchRelational(filter, excludeTmdbIDs)
		}
		if err != nil {
			return nil, err
		}
		s.cache.Set(key, hits)
		return hits, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]Hit), nil
}

// Recommend 为用户推荐电影：排除历史推荐，命中写入推荐记录
func (s *RecommendService) Recommend(userID int, filter MovieFilter) ([]Hit, error) {
	seen, err := s.recs.ListTmdbIDs(userID)
	if err != nil {
		return nil, fmt.Errorf("推荐历史查询失败: %w", err)
	}

	hits, err := s.Search(filter, seen)
	if err != nil {
		return nil, err
	}

	for _, hit := range hits {
		if id := hit.TmdbID(); id != 0 {
			if err := s.recs.Record(userID, id); err != nil {
				return nil, fmt.Errorf("推荐记录写入失败: %w", err)
			}
		}
	}

	return hits, nil
}

// History 用户的推荐历史
func (s *RecommendService) History(userID int, limit, offset int) ([]model.MovieRecommendation, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.recs.ListByUser(userID, limit, offset)
}

// Score 用户给已推荐电影打分，未推荐过返回错误
func (s *RecommendService) Score(userID int, tmdbID int64, score int) error {
	affected, err := s.recs.SetScore(userID, tmdbID, score)
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("电影 %d 不在该用户的推荐历史中", tmdbID)
	}
	return nil
}

func (s *RecommendService) searchRelational(filter MovieFilter, excludeTmdbIDs []int64) ([]Hit, error) {
	movies, err := s.movies.Search(repository.MovieSearchParams{
		ExcludeTmdbIDs:      excludeTmdbIDs,
		Title:               filter.Title,
		ReleaseDateFrom:     filter.ReleaseDateFrom,
		ReleaseDateTo:       filter.ReleaseDateTo,
		RuntimeMin:          filter.RuntimeMin,
		RuntimeMax:          filter.RuntimeMax,
		VoteAverageMin:      filter.VoteAverageMin,
		VoteCountMin:        filter.VoteCountMin,
		PopularityMin:       filter.PopularityMin,
		Genres:              filter.Genres,
		ProductionCountries: filter.ProductionCountries,
		Keywords:            filter.Keywords,
		SpokenLanguages:     filter.SpokenLanguages,
		Cast:                filter.Cast,
		Limit:               filter.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("关系库检索失败: %w", err)
	}

	hits := make([]Hit, 0, len(movies))
	for i := range movies {
		hits = append(hits, Hit{Relational: &movies[i]})
	}
	return hits, nil
}

// searchSemantic 语义检索
// 标题/演员是关系库才有的条件，先折算成 ID 白名单再查向量；
// 其余列表条件折算成文档包含/排除（描述文本含这些字段）
func (s *RecommendService) searchSemantic(filter MovieFilter, excludeTmdbIDs []int64) ([]Hit, error) {
	metaFilter := repository.MetadataFilter{
		ExcludeTmdbIDs:  excludeTmdbIDs,
		VoteAverageMin:  filter.VoteAverageMin,
		VoteCountGt:     filter.VoteCountMin,
		RuntimeMin:      filter.RuntimeMin,
		RuntimeMax:      filter.RuntimeMax,
		PopularityMin:   filter.PopularityMin,
		ReleaseDateFrom: model.DateToInt(filter.ReleaseDateFrom),
		ReleaseDateTo:   model.DateToInt(filter.ReleaseDateTo),
	}

	if filter.Title != "" || len(filter.Cast) > 0 {
		ids, err := s.movies.FindTmdbIDsByTitleCast(filter.Title, filter.Cast)
		if err != nil {
			return nil, fmt.Errorf("标题/演员预过滤失败: %w", err)
		}
		metaFilter.UseInclude = true
		metaFilter.IncludeTmdbIDs = ids
	}

	var contains, excludes []string
	for _, values := range [][]string{filter.Genres, filter.Keywords, filter.SpokenLanguages, filter.ProductionCountries} {
		for _, v := range values {
			if v == "" {
				continue
			}
			if strings.HasPrefix(v, "!") {
				excludes = append(excludes, v[1:])
			} else {
				contains = append(contains, v)
			}
		}
	}

	semHits, err := s.vectors.Query(filter.Query, metaFilter, contains, excludes, filter.Limit, filter.MaxDistance)
	if err != nil {
		return nil, fmt.Errorf("语义检索失败: %w", err)
	}

	hits := make([]Hit, 0, len(semHits))
	for i := range semHits {
		hits = append(hits, Hit{Semantic: &semHits[i].Metadata, Distance: semHits[i].Distance})
	}
	return hits, nil
}

func (s *RecommendService) cacheKey(filter MovieFilter, excludeTmdbIDs []int64) string {
	raw, _ := json.Marshal(struct {
		F MovieFilter
		E []int64
	}{filter, excludeTmdbIDs})
	return string(raw)
}
