package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config 应用配置
type Config struct {
	Env         string
	AppSecret   string
	DatabaseURL string
	JWTExpiry   time.Duration
	Port        string
	SiteName    string
	DataDir     string

	// TMDB 目录 API
	TMDBToken   string
	TMDBBaseURL string
	FetchPages  int

	// Ollama 向量服务
	OllamaHost  string
	OllamaModel string

	// 入库流水线
	RefreshLimit       int
	MaxRetries         int
	EmbeddingBatchSize int
	AllowedLanguages   map[string]bool

	// 各阶段 cron 表达式（秒级，robfig/cron 格式）
	FetchCron      string
	RefreshCron    string
	PreprocessCron string
	EmbeddingCron  string
	ReconcileCron  string

	// 批量导入
	LatinThreshold float64
	CommitInterval int
}

// Load 加载配置
func Load() *Config {
	expiryHours, _ := strconv.Atoi(getEnv("JWT_EXPIRY_HOURS", "168"))

	dbUser := getEnv("DB_USER", "postgres")
	dbPass := getEnv("DB_PASSWORD", "postgres")
	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", "5432")
	dbName := getEnv("DB_NAME", "movierec")
	dbSSL := getEnv("DB_SSLMODE", "disable")

	dbURL := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		dbUser, dbPass, dbHost, dbPort, dbName, dbSSL)

	appSecret := getEnv("APP_SECRET", getEnv("JWT_SECRET", "your-secret-key-change-in-production"))

	if getEnv("APP_ENV", "development") == "production" && appSecret == "your-secret-key-change-in-production" {
		fmt.Println("【严重警告】生产环境正在使用默认密钥！请立即设置 APP_SECRET 环境变量。")
	}

	allowed := make(map[string]bool)
	for _, lang := range strings.Split(getEnv("ALLOWED_LANGUAGES", "english,turkish,swedish"), ",") {
		if lang = strings.TrimSpace(strings.ToLower(lang)); lang != "" {
			allowed[lang] = true
		}
	}

	return &Config{
		Env:         getEnv("APP_ENV", "development"),
		AppSecret:   appSecret,
		DatabaseURL: dbURL,
		JWTExpiry:   time.Duration(expiryHours) * time.Hour,
		Port:        getEnv("PORT", "5005"),
		SiteName:    getEnv("SITE_NAME", "MovieRec"),
		DataDir:     getEnv("DATA_DIR", "./data"),

		TMDBToken:   getEnv("TMDB_API_KEY", ""),
		TMDBBaseURL: getEnv("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
		FetchPages:  getEnvInt("FETCH_PAGES", 6),

		OllamaHost:  getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel: getEnv("OLLAMA_MODEL", "nomic-embed-text"),

		RefreshLimit:       getEnvInt("REFRESH_LIMIT", 10000),
		MaxRetries:         getEnvInt("MAX_RETRIES", 2),
		EmbeddingBatchSize: getEnvInt("EMBEDDING_BATCH_SIZE", 5460),
		AllowedLanguages:   allowed,

		FetchCron:      getEnv("FETCH_CRON", "0 0 0,4,8,12,16,20 * * *"),
		RefreshCron:    getEnv("REFRESH_CRON", "0 0,5,10,20,30,35,40,50 * * * *"),
		PreprocessCron: getEnv("PREPROCESS_CRON", "0 15,45 * * * *"),
		EmbeddingCron:  getEnv("EMBEDDING_CRON", "0 25,55 * * * *"),
		ReconcileCron:  getEnv("RECONCILE_CRON", "0 30 3 * * *"),

		LatinThreshold: getEnvFloat("LATIN_THRESHOLD", 0.9),
		CommitInterval: getEnvInt("COMMIT_INTERVAL", 50),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
