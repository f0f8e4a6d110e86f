package service

import (
	"fmt"
	"strings"

	"github.com/user/movierec/internal/config"
	"github.com/user/movierec/internal/model"
	"github.com/user/movierec/internal/utils"
)

// TMDBClient TMDB 目录 API 客户端
// 三个榜单接口返回 TMDB ID 集合，详情接口返回归一化记录
type TMDBClient struct {
	baseURL string
	client  *utils.HTTPClient
}

// NewTMDBClient 创建 TMDB 客户端
func NewTMDBClient(cfg *config.Config) *TMDBClient {
	return &TMDBClient{
		baseURL: cfg.TMDBBaseURL,
		client:  utils.NewHTTPClient(cfg.TMDBToken),
	}
}

// tmdbListingResponse 榜单接口响应
type tmdbListingResponse struct {
	Page       int `json:"page"`
	TotalPages int `json:"total_pages"`
	Results    []struct {
		ID int64 `json:"id"`
	} `json:"results"`
}

// FetchNowPlayingIDs 获取正在上映的 TMDB ID
func (c *TMDBClient) FetchNowPlayingIDs(page int) (map[int64]struct{}, error) {
	return c.fetchListingIDs("now_playing", page)
}

// FetchTopRatedIDs 获取高分榜的 TMDB ID
func (c *TMDBClient) FetchTopRatedIDs(page int) (map[int64]struct{}, error) {
	return c.fetchListingIDs("top_rated", page)
}

// FetchPopularIDs 获取热门榜的 TMDB ID
func (c *TMDBClient) FetchPopularIDs(page int) (map[int64]struct{}, error) {
	return c.fetchListingIDs("popular", page)
}

// FetchTotalPages 获取榜单总页数
func (c *TMDBClient) FetchTotalPages(section string) (int, error) {
	var result tmdbListingResponse
	url := fmt.Sprintf("%s/movie/%s", c.baseURL, section)
	if err := c.client.GetJSON(url, &result); err != nil {
		return 0, err
	}
	return result.TotalPages, nil
}

func (c *TMDBClient) fetchListingIDs(section string, page int) (map[int64]struct{}, error) {
	var result tmdbListingResponse
	url := fmt.Sprintf("%s/movie/%s?page=%d", c.baseURL, section, page)
	if err := c.client.GetJSON(url, &result); err != nil {
		return nil, fmt.Errorf("fetch %s page %d: %w", section, page, err)
	}

	ids := make(map[int64]struct{}, len(result.Results))
	for _, m := range result.Results {
		ids[m.ID] = struct{}{}
	}
	return ids, nil
}

// tmdbDetailsResponse 详情接口原始响应（append_to_response=keywords,credits）
type tmdbDetailsResponse struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Status      string  `json:"status"`
	ReleaseDate string  `json:"release_date"`
	PosterPath  string  `json:"poster_path"`
	Runtime     int     `json:"runtime"`
	VoteAverage float64 `json:"vote_average"`
	VoteCount   int     `json:"vote_count"`
	Popularity  float64 `json:"popularity"`
	Overview    string  `json:"overview"`
	Tagline     string  `json:"tagline"`
	Genres      []struct {
		Name string `json:"name"`
	} `json:"genres"`
	SpokenLanguages []struct {
		EnglishName string `json:"english_name"`
	} `json:"spoken_languages"`
	ProductionCompanies []struct {
		Name string `json:"name"`
	} `json:"production_companies"`
	ProductionCountries []struct {
		Name string `json:"name"`
	} `json:"production_countries"`
	Keywords struct {
		Keywords []struct {
			Name string `json:"name"`
		} `json:"keywords"`
	} `json:"keywords"`
	Credits struct {
		Cast []struct {
			Name string `json:"name"`
		} `json:"cast"`
	} `json:"credits"`
}

// FetchMovieDetails 获取电影详情并归一化
// TMDB 把缺失字符串字段返回为 ""，归一化后仍以 "" 表示缺失；
// 嵌套对象列表展平为逗号分隔串，演员只取前 5 位
func (c *TMDBClient) FetchMovieDetails(tmdbID int64) (*model.MovieDetails, error) {
	var raw tmdbDetailsResponse
	url := fmt.Sprintf("%s/movie/%d?append_to_response=keywords,credits", c.baseURL, tmdbID)
	if err := c.client.GetJSON(url, &raw); err != nil {
		return nil, fmt.Errorf("fetch movie details %d: %w", tmdbID, err)
	}

	if raw.ID == 0 || raw.Title == "" {
		return nil, fmt.Errorf("invalid movie payload for tmdb_id %d", tmdbID)
	}

	details := &model.MovieDetails{
		TmdbID:      raw.ID,
		Title:       raw.Title,
		Status:      raw.Status,
		ReleaseDate: raw.ReleaseDate,
		PosterPath:  raw.PosterPath,
		Runtime:     raw.Runtime,
		VoteAverage: raw.VoteAverage,
		VoteCount:   raw.VoteCount,
		Popularity:  raw.Popularity,
		Overview:    raw.Overview,
		Tagline:     raw.Tagline,
	}

	var genres []string
	for _, g := range raw.Genres {
		genres = append(genres, g.Name)
	}
	details.Genres = strings.Join(genres, ", ")

	var langs []string
	for _, l := range raw.SpokenLanguages {
		langs = append(langs, l.EnglishName)
	}
	details.SpokenLanguages = strings.Join(langs, ", ")

	var companies []string
	for _, p := range raw.ProductionCompanies {
		companies = append(companies, p.Name)
	}
	details.ProductionCompanies = strings.Join(companies, ", ")

	var countries []string
	for _, p := range raw.ProductionCountries {
		countries = append(countries, p.Name)
	}
	details.ProductionCountries = strings.Join(countries, ", ")

	var keywords []string
	for _, k := range raw.Keywords.Keywords {
		keywords = append(keywords, k.Name)
	}
	details.Keywords = strings.Join(keywords, ", ")

	// 演员只取前 5 位
	var cast []string
	for i, a := range raw.Credits.Cast {
		if i >= 5 {
			break
		}
		cast = append(cast, a.Name)
	}
	details.Cast = strings.Join(cast, ", ")

	return details, nil
}
