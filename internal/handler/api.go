package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/user/movierec/internal/middleware"
	"github.com/user/movierec/internal/service"
	"github.com/user/movierec/internal/utils"
)

// searchRequest 检索/推荐请求
// query 非空走语义检索；列表字段值带 "!" 前缀表示排除
type searchRequest struct {
	Query               string   `json:"query"`
	Title               string   `json:"title"`
	Cast                []string `json:"cast"`
	Genres              []string `json:"genres"`
	Keywords            []string `json:"keywords"`
	SpokenLanguages     []string `json:"spoken_languages"`
	ProductionCountries []string `json:"production_countries"`
	ReleaseDateFrom     string   `json:"release_date_from" binding:"omitempty,datefmt"`
	ReleaseDateTo       string   `json:"release_date_to" binding:"omitempty,datefmt"`
	RuntimeMin          int      `json:"runtime_min" binding:"omitempty,min=0"`
	RuntimeMax          int      `json:"runtime_max" binding:"omitempty,min=0"`
	VoteAverageMin      float64  `json:"vote_average_min" binding:"omitempty,min=0,max=10"`
	VoteCountMin        int      `json:"vote_count_min" binding:"omitempty,min=0"`
	PopularityMin       float64  `json:"popularity_min" binding:"omitempty,min=0"`
	Limit               int      `json:"limit" binding:"omitempty,min=1,max=50"`
	MaxDistance         float64  `json:"max_distance" binding:"omitempty,gt=0,lt=1"`
}

func (r *searchRequest) toFilter() service.MovieFilter {
	return service.MovieFilter{
		Query:               r.Query,
		Title:               r.Title,
		Cast:                r.Cast,
		Genres:              r.Genres,
		Keywords:            r.Keywords,
		SpokenLanguages:     r.SpokenLanguages,
		ProductionCountries: r.ProductionCountries,
		ReleaseDateFrom:     r.ReleaseDateFrom,
		ReleaseDateTo:       r.ReleaseDateTo,
		RuntimeMin:          r.RuntimeMin,
		RuntimeMax:          r.RuntimeMax,
		VoteAverageMin:      r.VoteAverageMin,
		VoteCountMin:        r.VoteCountMin,
		PopularityMin:       r.PopularityMin,
		Limit:               r.Limit,
		MaxDistance:         r.MaxDistance,
	}
}

// SearchMovies 按条件检索电影（v1，不记录推荐历史）
// v1 返回上限 21 条，超出按上限截断
func (h *Handler) SearchMovies(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	if req.Limit <= 0 || req.Limit > 21 {
		req.Limit = 21
	}

	hits, err := h.recommend.Search(req.toFilter(), nil)
	if err != nil {
		utils.InternalServerError(c, err.Error())
		return
	}

	utils.Success(c, gin.H{
		"total":  len(hits),
		"movies": hits,
	})
}

// RecommendMovies 个性化推荐（v2，排除历史并记录本次推荐）
func (h *Handler) RecommendMovies(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	hits, err := h.recommend.Recommend(middleware.GetUserID(c), req.toFilter())
	if err != nil {
		utils.InternalServerError(c, err.Error())
		return
	}

	utils.Success(c, gin.H{
		"total":  len(hits),
		"movies": hits,
	})
}

// RecommendHistory 推荐历史（带电影详情，按时间倒序分页）
func (h *Handler) RecommendHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	recs, err := h.recommend.History(middleware.GetUserID(c), limit, offset)
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}

	utils.Success(c, gin.H{
		"total":           len(recs),
		"recommendations": recs,
	})
}

// scoreRequest 推荐打分请求
type scoreRequest struct {
	Score *int `json:"score" binding:"required,min=0,max=10"`
}

// ScoreRecommendation 用户给已推荐电影打分
func (h *Handler) ScoreRecommendation(c *gin.Context) {
	tmdbID, err := strconv.ParseInt(c.Param("tmdb_id"), 10, 64)
	if err != nil {
		utils.BadRequest(c, "无效的 tmdb_id")
		return
	}

	var req scoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	if err := h.recommend.Score(middleware.GetUserID(c), tmdbID, *req.Score); err != nil {
		utils.NotFound(c, err.Error())
		return
	}

	utils.SuccessWithMessage(c, "评分已记录", nil)
}
