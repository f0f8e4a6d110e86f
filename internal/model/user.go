package model

import (
	"strings"
	"time"
)

// User 用户模型
type User struct {
	ID           int       `json:"id" db:"id"`
	Email        string    `json:"email" db:"email" gorm:"uniqueIndex"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         string    `json:"role" db:"role"`
	Scopes       string    `json:"scopes" db:"scopes"` // 空格分隔，如 "movie:read movie:write"
	Disabled     bool      `json:"disabled" db:"disabled"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// ScopeList 拆分权限列表
func (u *User) ScopeList() []string {
	return strings.Fields(u.Scopes)
}

// HasScope 判断用户是否具备某权限
func (u *User) HasScope(scope string) bool {
	for _, s := range u.ScopeList() {
		if s == scope {
			return true
		}
	}
	return false
}

// SessionUser 专门用于 Session 存储的用户信息结构
type SessionUser struct {
	ID    int
	Email string
	Role  string
}

// MovieRecommendation 推荐历史，同一用户同一电影只记录一次
type MovieRecommendation struct {
	ID        int       `json:"id" db:"id"`
	UserID    int       `json:"user_id" db:"user_id" gorm:"uniqueIndex:idx_user_movie_rec;index"`
	TmdbID    int64     `json:"tmdb_id" db:"tmdb_id" gorm:"uniqueIndex:idx_user_movie_rec;index"`
	UserScore *int      `json:"user_score" db:"user_score"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	Movie     *Movie    `json:"movie,omitempty" gorm:"foreignKey:TmdbID;references:TmdbID"`
}
