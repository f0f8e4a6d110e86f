package repository

import (
	"fmt"

	"github.com/user/movierec/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB 初始化数据库连接并迁移表结构
func InitDB(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("无法连接数据库: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("数据库 ping 失败: %w", err)
	}

	// 设置连接池
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate 迁移业务表与向量表
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Movie{},
		&model.MovieQueue{},
		&model.User{},
		&model.MovieRecommendation{},
	); err != nil {
		return fmt.Errorf("表迁移失败: %w", err)
	}

	// 向量表不走 AutoMigrate：pgvector 扩展与 vector 列需要原生 SQL
	if db.Dialector.Name() == "postgres" {
		if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
			return fmt.Errorf("启用 pgvector 扩展失败: %w", err)
		}
		if err := db.Exec(`
			CREATE TABLE IF NOT EXISTS movie_embeddings (
				tmdb_id   text PRIMARY KEY,
				document  text NOT NULL,
				metadata  jsonb NOT NULL,
				embedding vector(768) NOT NULL
			)
		`).Error; err != nil {
			return fmt.Errorf("创建向量表失败: %w", err)
		}
	}

	return nil
}

// Repositories 仓库集合
type Repositories struct {
	DB             *gorm.DB
	User           *UserRepository
	Movie          *MovieRepository
	Queue          *QueueRepository
	Recommendation *RecommendationRepository
	Embedding      *EmbeddingRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		DB:             db,
		User:           NewUserRepository(db),
		Movie:          NewMovieRepository(db),
		Queue:          NewQueueRepository(db),
		Recommendation: NewRecommendationRepository(db),
		Embedding:      NewEmbeddingRepository(db),
	}
}
