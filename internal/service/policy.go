package service

import (
	"strings"
)

// 单独出现即排除的类型；两者同时出现也排除
const (
	genreDocumentary = "documentary"
	genreMusic       = "music"
)

// IsAcceptableMovie 入库准入判定，发现阶段执行一次
// 规则：至少一种口语语言在白名单内；类型不能只有纪录片、
// 不能只有音乐、也不能同时包含纪录片和音乐。
// genres/spokenLanguages 为逗号分隔串，任一缺失直接拒绝。
func IsAcceptableMovie(genres, spokenLanguages string, allowedLanguages map[string]bool) bool {
	if genres == "" || spokenLanguages == "" {
		return false
	}

	hasAllowedLang := false
	for _, lang := range strings.Split(strings.ToLower(spokenLanguages), ", ") {
		if allowedLanguages[lang] {
			hasAllowedLang = true
			break
		}
	}
	if !hasAllowedLang {
		return false
	}

	genreList := strings.Split(strings.ToLower(genres), ", ")

	hasDocumentary := false
	hasMusic := false
	for _, g := range genreList {
		switch g {
		case genreDocumentary:
			hasDocumentary = true
		case genreMusic:
			hasMusic = true
		}
	}

	if len(genreList) == 1 && (genreList[0] == genreDocumentary || genreList[0] == genreMusic) {
		return false
	}
	if hasDocumentary && hasMusic {
		return false
	}

	return true
}
