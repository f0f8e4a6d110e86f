package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var testAllowedLanguages = map[string]bool{
	"english": true,
	"turkish": true,
	"swedish": true,
}

func TestIsAcceptableMovie(t *testing.T) {
	tests := []struct {
		name      string
		genres    string
		languages string
		want      bool
	}{
		{"普通剧情片", "Drama, Thriller", "English", true},
		{"白名单外语言", "Drama", "Japanese, Korean", false},
		{"多语言含白名单", "Drama", "Japanese, English", true},
		{"大小写不敏感", "drama", "ENGLISH", true},
		{"类型缺失", "", "English", false},
		{"语言缺失", "Drama", "", false},
		{"纯纪录片", "Documentary", "English", false},
		{"纯音乐", "Music", "English", false},
		{"纪录片混其他类型", "Documentary, History", "English", true},
		{"音乐混其他类型", "Music, Drama", "English", true},
		{"纪录片加音乐", "Documentary, Music, Drama", "English", false},
		{"土耳其语", "Comedy", "Turkish", true},
		{"瑞典语", "Horror", "Swedish", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAcceptableMovie(tt.genres, tt.languages, testAllowedLanguages))
		})
	}
}
