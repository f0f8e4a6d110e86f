package service

import (
	"fmt"
	"log"
	"strconv"

	"github.com/user/movierec/internal/config"
	"github.com/user/movierec/internal/model"
	"github.com/user/movierec/internal/repository"
	"gorm.io/gorm"
)

// CatalogAPI 外部目录接口（TMDB）
type CatalogAPI interface {
	FetchNowPlayingIDs(page int) (map[int64]struct{}, error)
	FetchTopRatedIDs(page int) (map[int64]struct{}, error)
	FetchPopularIDs(page int) (map[int64]struct{}, error)
	FetchMovieDetails(tmdbID int64) (*model.MovieDetails, error)
}

// VectorIndex 语义索引写入接口
type VectorIndex interface {
	Store(ids []string, documents []string, metadatas []model.MovieMetadata) error
}

// PipelineService 入库流水线
// 四个阶段函数 + 队列对账，依赖全部显式注入，每次调用自管事务
type PipelineService struct {
	db      *gorm.DB
	catalog CatalogAPI
	index   VectorIndex
	cfg     *config.Config
}

// NewPipelineService 创建流水线服务
func NewPipelineService(db *gorm.DB, catalog CatalogAPI, index VectorIndex, cfg *config.Config) *PipelineService {
	return &PipelineService{
		db:      db,
		catalog: catalog,
		index:   index,
		cfg:     cfg,
	}
}

// FetchCurrentMovies 发现阶段：抓取三个榜单的并集，入库新电影
// 详情抓取失败或未通过准入的 ID 直接丢弃，不留任何记录；
// 每页一个事务，单页失败不影响其他页
func (s *PipelineService) FetchCurrentMovies(pages int) {
	log.Printf("[Pipeline] 开始发现任务，共 %d 页", pages)

	for page := 1; page <= pages; page++ {
		if err := s.fetchPage(page); err != nil {
			log.Printf("[Pipeline] 第 %d 页处理失败: %v", page, err)
		}
	}

	log.Printf("[Pipeline] 发现任务结束")
}

func (s *PipelineService) fetchPage(page int) error {
	nowPlaying, err := s.catalog.FetchNowPlayingIDs(page)
	if err != nil {
		return err
	}
	topRated, err := s.catalog.FetchTopRatedIDs(page)
	if err != nil {
		return err
	}
	popular, err := s.catalog.FetchPopularIDs(page)
	if err != nil {
		return err
	}

	// 三榜单并集
	fetched := make(map[int64]struct{})
	for _, set := range []map[int64]struct{}{nowPlaying, topRated, popular} {
		for id := range set {
			fetched[id] = struct{}{}
		}
	}

	fetchedIDs := make([]int64, 0, len(fetched))
	for id := range fetched {
		fetchedIDs = append(fetchedIDs, id)
	}

	existing, err := repository.NewMovieRepository(s.db).ExistingTmdbIDs(fetchedIDs)
	if err != nil {
		return err
	}

	var newMovies []*model.Movie
	for id := range fetched {
		if _, ok := existing[id]; ok {
			continue
		}

		details, err := s.catalog.FetchMovieDetails(id)
		if err != nil {
			// 一次性决策：失败即丢弃，等待下次榜单重新露出
			log.Printf("[Pipeline] 电影 %d 详情抓取失败: %v", id, err)
			continue
		}

		if !IsAcceptableMovie(details.Genres, details.SpokenLanguages, s.cfg.AllowedLanguages) {
			continue
		}

		newMovies = append(newMovies, model.NewMovie(details))
	}

	if len(newMovies) == 0 {
		log.Printf("[Pipeline] 第 %d 页没有可入库的新电影", page)
		return nil
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		for _, movie := range newMovies {
			if err := tx.Create(movie).Error; err != nil {
				return err
			}
			if err := tx.Create(model.NewMovieQueue(movie.TmdbID)).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("入库失败: %w", err)
	}

	log.Printf("[Pipeline] 第 %d 页新增 %d 部电影", page, len(newMovies))
	return nil
}

// RefreshQueue 刷新阶段：重抓详情并比对
// 有变更 -> preprocess_description，无变更 -> completed；
// 抓取失败累计重试，超限转 failed。单条失败不影响同批其他条目，
// 事务级失败整批回滚
func (s *PipelineService) RefreshQueue(limit int) {
	log.Printf("[Pipeline] 开始刷新任务，批量上限 %d", limit)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		queueRepo := repository.NewQueueRepository(tx)
		movieRepo := repository.NewMovieRepository(tx)

		entries, err := queueRepo.FindByStatus(model.StatusRefreshData, true, limit)
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			log.Printf("[Pipeline] 没有待刷新的电影")
			return nil
		}

		log.Printf("[Pipeline] 待刷新电影 %d 部", len(entries))

		failCount := 0
		changedCount := 0
		for i := range entries {
			entry := &entries[i]

			details, err := s.catalog.FetchMovieDetails(entry.TmdbID)
			if err != nil {
				log.Printf("[Pipeline] 刷新 tmdb_id %d 失败: %v", entry.TmdbID, err)
				entry.Retries++
				entry.Message = err.Error()
				failCount++
				if entry.Retries > s.cfg.MaxRetries {
					entry.Status = model.StatusFailed
				}
				if err := queueRepo.Save(entry); err != nil {
					return err
				}
				continue
			}

			movie, err := movieRepo.FindByTmdbID(entry.TmdbID)
			if err != nil {
				return err
			}
			if movie == nil {
				return fmt.Errorf("队列条目 tmdb_id %d 没有对应电影", entry.TmdbID)
			}

			if movie.ApplyDetails(details) {
				if err := tx.Save(movie).Error; err != nil {
					return err
				}
				entry.Status = model.StatusPreprocessDescription
				changedCount++
			} else {
				entry.Status = model.StatusCompleted
			}

			if entry.Retries > 0 {
				entry.Retries = 0
				entry.Message = ""
			}

			if err := queueRepo.Save(entry); err != nil {
				return err
			}
		}

		log.Printf("[Pipeline] 刷新完成 %d 部: %d 失败, %d 有变更", len(entries), failCount, changedCount)
		return nil
	})
	if err != nil {
		log.Printf("[Pipeline] 刷新任务出现严重错误，整批回滚: %v", err)
	}
}

// PreprocessDescriptions 描述合成阶段：全量先进先出，整批成败
func (s *PipelineService) PreprocessDescriptions() {
	log.Printf("[Pipeline] 开始描述合成任务")

	err := s.db.Transaction(func(tx *gorm.DB) error {
		queueRepo := repository.NewQueueRepository(tx)
		movieRepo := repository.NewMovieRepository(tx)

		entries, err := queueRepo.FindByStatus(model.StatusPreprocessDescription, false, 0)
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			log.Printf("[Pipeline] 没有待合成描述的电影")
			return nil
		}

		for i := range entries {
			entry := &entries[i]

			movie, err := movieRepo.FindByTmdbID(entry.TmdbID)
			if err != nil {
				return err
			}
			if movie == nil {
				return fmt.Errorf("队列条目 tmdb_id %d 没有对应电影", entry.TmdbID)
			}

			entry.PreprocessedDescription = movie.Description()
			entry.Status = model.StatusCreateEmbedding
			if err := queueRepo.Save(entry); err != nil {
				return err
			}
		}

		log.Printf("[Pipeline] 已合成 %d 部电影的描述", len(entries))
		return nil
	})
	if err != nil {
		log.Printf("[Pipeline] 描述合成任务失败，整批回滚: %v", err)
	}
}

// CreateEmbeddings 向量化阶段：整批提交语义索引，成功后统一置 completed
// 索引写入或事务失败则整批回滚，下个周期重做（索引按 ID 幂等覆盖）
func (s *PipelineService) CreateEmbeddings() {
	log.Printf("[Pipeline] 开始向量化任务")

	err := s.db.Transaction(func(tx *gorm.DB) error {
		queueRepo := repository.NewQueueRepository(tx)
		movieRepo := repository.NewMovieRepository(tx)

		entries, err := queueRepo.FindByStatus(model.StatusCreateEmbedding, false, 0)
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			log.Printf("[Pipeline] 没有待向量化的电影")
			return nil
		}

		ids := make([]string, 0, len(entries))
		documents := make([]string, 0, len(entries))
		metadatas := make([]model.MovieMetadata, 0, len(entries))

		for i := range entries {
			entry := &entries[i]

			movie, err := movieRepo.FindByTmdbID(entry.TmdbID)
			if err != nil {
				return err
			}
			if movie == nil {
				return fmt.Errorf("队列条目 tmdb_id %d 没有对应电影", entry.TmdbID)
			}

			ids = append(ids, strconv.FormatInt(entry.TmdbID, 10))
			documents = append(documents, entry.PreprocessedDescription)
			metadatas = append(metadatas, movie.Metadata())

			entry.Status = model.StatusCompleted
			if err := queueRepo.Save(entry); err != nil {
				return err
			}
		}

		if err := s.index.Store(ids, documents, metadatas); err != nil {
			return err
		}

		log.Printf("[Pipeline] 已向量化 %d 部电影", len(entries))
		return nil
	})
	if err != nil {
		log.Printf("[Pipeline] 向量化任务失败，整批回滚: %v", err)
	}
}

// ReconcileQueue 对账：为缺少队列条目的电影补建条目
// 补建条目从 refresh_data 进入，让其重走刷新链路
func (s *PipelineService) ReconcileQueue() {
	log.Printf("[Pipeline] 开始队列对账")

	err := s.db.Transaction(func(tx *gorm.DB) error {
		queueRepo := repository.NewQueueRepository(tx)

		movies, err := queueRepo.FindMoviesWithoutQueue()
		if err != nil {
			return err
		}

		if len(movies) == 0 {
			log.Printf("[Pipeline] 队列完整，无需补建")
			return nil
		}

		for _, movie := range movies {
			entry := model.NewMovieQueue(movie.TmdbID)
			entry.Status = model.StatusRefreshData
			if err := queueRepo.Create(entry); err != nil {
				return err
			}
		}

		log.Printf("[Pipeline] 已补建 %d 条队列条目", len(movies))
		return nil
	})
	if err != nil {
		log.Printf("[Pipeline] 队列对账失败: %v", err)
	}
}
