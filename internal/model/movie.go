package model

import (
	"log"
	"strconv"
	"strings"
	"time"
)

// Movie 电影模型（TMDB 信息，按 tmdb_id 去重）
type Movie struct {
	ID                  int       `json:"id" db:"id"`
	TmdbID              int64     `json:"tmdb_id" db:"tmdb_id" gorm:"uniqueIndex"`
	Title               string    `json:"title" db:"title" gorm:"index"`
	Status              string    `json:"status" db:"status"`
	ReleaseDate         string    `json:"release_date" db:"release_date" gorm:"index"`
	PosterPath          string    `json:"poster_path" db:"poster_path"`
	Runtime             int       `json:"runtime" db:"runtime" gorm:"index"`
	VoteAverage         float64   `json:"vote_average" db:"vote_average" gorm:"index"`
	VoteCount           int       `json:"vote_count" db:"vote_count" gorm:"index"`
	Popularity          float64   `json:"popularity" db:"popularity" gorm:"index"`
	Overview            string    `json:"overview" db:"overview"`
	Tagline             string    `json:"tagline" db:"tagline"`
	Genres              string    `json:"genres" db:"genres" gorm:"index"`
	SpokenLanguages     string    `json:"spoken_languages" db:"spoken_languages" gorm:"index"`
	ProductionCompanies string    `json:"production_companies" db:"production_companies"`
	ProductionCountries string    `json:"production_countries" db:"production_countries" gorm:"index"`
	Keywords            string    `json:"keywords" db:"keywords" gorm:"index"`
	Cast                string    `json:"cast" db:"cast"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time `json:"updated_at" db:"updated_at" gorm:"index"`
}

// MovieDetails TMDB 详情接口归一化后的记录
// 空字符串/零值表示字段缺失，列表字段已展平为逗号分隔串
type MovieDetails struct {
	TmdbID              int64   `json:"tmdb_id"`
	Title               string  `json:"title"`
	Status              string  `json:"status"`
	ReleaseDate         string  `json:"release_date"`
	PosterPath          string  `json:"poster_path"`
	Runtime             int     `json:"runtime"`
	VoteAverage         float64 `json:"vote_average"`
	VoteCount           int     `json:"vote_count"`
	Popularity          float64 `json:"popularity"`
	Overview            string  `json:"overview"`
	Tagline             string  `json:"tagline"`
	Genres              string  `json:"genres"`
	SpokenLanguages     string  `json:"spoken_languages"`
	ProductionCompanies string  `json:"production_companies"`
	ProductionCountries string  `json:"production_countries"`
	Keywords            string  `json:"keywords"`
	Cast                string  `json:"cast"`
}

// NewMovie 由归一化记录构建电影实体
func NewMovie(d *MovieDetails) *Movie {
	return &Movie{
		TmdbID:              d.TmdbID,
		Title:               d.Title,
		Status:              d.Status,
		ReleaseDate:         d.ReleaseDate,
		PosterPath:          d.PosterPath,
		Runtime:             d.Runtime,
		VoteAverage:         d.VoteAverage,
		VoteCount:           d.VoteCount,
		Popularity:          d.Popularity,
		Overview:            d.Overview,
		Tagline:             d.Tagline,
		Genres:              d.Genres,
		SpokenLanguages:     d.SpokenLanguages,
		ProductionCompanies: d.ProductionCompanies,
		ProductionCountries: d.ProductionCountries,
		Keywords:            d.Keywords,
		Cast:                d.Cast,
	}
}

// ApplyDetails 用重新抓取的详情逐字段比对并更新
// 仅当新值非空且与旧值不同才覆盖，返回是否有任何变更
func (m *Movie) ApplyDetails(d *MovieDetails) bool {
	changed := false

	applyStr := func(field string, old *string, val string) {
		if val != "" && *old != val {
			log.Printf("[Movie] tmdb_id %d 字段 %s 由 %q 更新为 %q", m.TmdbID, field, *old, val)
			*old = val
			changed = true
		}
	}

	applyStr("title", &m.Title, d.Title)
	applyStr("status", &m.Status, d.Status)
	applyStr("release_date", &m.ReleaseDate, d.ReleaseDate)
	applyStr("poster_path", &m.PosterPath, d.PosterPath)
	applyStr("overview", &m.Overview, d.Overview)
	applyStr("tagline", &m.Tagline, d.Tagline)
	applyStr("genres", &m.Genres, d.Genres)
	applyStr("spoken_languages", &m.SpokenLanguages, d.SpokenLanguages)
	applyStr("production_companies", &m.ProductionCompanies, d.ProductionCompanies)
	applyStr("production_countries", &m.ProductionCountries, d.ProductionCountries)
	applyStr("keywords", &m.Keywords, d.Keywords)
	applyStr("cast", &m.Cast, d.Cast)

	if d.Runtime != 0 && m.Runtime != d.Runtime {
		log.Printf("[Movie] tmdb_id %d 字段 runtime 由 %d 更新为 %d", m.TmdbID, m.Runtime, d.Runtime)
		m.Runtime = d.Runtime
		changed = true
	}
	if d.VoteAverage != 0 && m.VoteAverage != d.VoteAverage {
		m.VoteAverage = d.VoteAverage
		changed = true
	}
	if d.VoteCount != 0 && m.VoteCount != d.VoteCount {
		m.VoteCount = d.VoteCount
		changed = true
	}
	if d.Popularity != 0 && m.Popularity != d.Popularity {
		m.Popularity = d.Popularity
		changed = true
	}

	return changed
}

// Description 合成用于向量化的自然语言描述
// 字段按固定顺序拼接，自由文本去掉结尾句读，缺失字段整体省略
func (m *Movie) Description() string {
	var parts []string

	fields := []struct {
		label string
		value string
	}{
		{"Overview", strings.TrimRight(m.Overview, ".?!")},
		{"Tagline", strings.TrimRight(m.Tagline, ".?!")},
		{"Keywords", m.Keywords},
		{"Genres", m.Genres},
		{"Production Companies", m.ProductionCompanies},
		{"Production Countries", m.ProductionCountries},
		{"Spoken Languages", m.SpokenLanguages},
	}

	for _, f := range fields {
		if f.value != "" {
			parts = append(parts, f.label+": "+f.value)
		}
	}

	return strings.Join(parts, ". ")
}

// MovieMetadata 向量索引中随文档存储的元数据投影
type MovieMetadata struct {
	TmdbID      int64   `json:"tmdb_id"`
	Title       string  `json:"title"`
	Runtime     int     `json:"runtime"`
	VoteAverage float64 `json:"vote_average"`
	VoteCount   int     `json:"vote_count"`
	Popularity  float64 `json:"popularity"`
	Status      string  `json:"status"`
	Overview    string  `json:"overview,omitempty"`
	ReleaseDate int     `json:"release_date,omitempty"` // YYYYMMDD 整数编码
	Genres      string  `json:"genres,omitempty"`
	PosterPath  string  `json:"poster_path,omitempty"`
	Cast        string  `json:"cast,omitempty"`
}

// Metadata 构建元数据投影，缺失字段整体省略
func (m *Movie) Metadata() MovieMetadata {
	return MovieMetadata{
		TmdbID:      m.TmdbID,
		Title:       m.Title,
		Runtime:     m.Runtime,
		VoteAverage: m.VoteAverage,
		VoteCount:   m.VoteCount,
		Popularity:  m.Popularity,
		Status:      m.Status,
		Overview:    m.Overview,
		ReleaseDate: DateToInt(m.ReleaseDate),
		Genres:      m.Genres,
		PosterPath:  m.PosterPath,
		Cast:        m.Cast,
	}
}

// DateToInt 将 "YYYY-MM-DD" 编码为 YYYYMMDD 整数，无效日期返回 0
func DateToInt(date string) int {
	if len(date) != 10 {
		return 0
	}
	n, err := strconv.Atoi(strings.ReplaceAll(date, "-", ""))
	if err != nil {
		return 0
	}
	return n
}
