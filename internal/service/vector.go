package service

import (
	"fmt"
	"log"

	"github.com/user/movierec/internal/config"
	"github.com/user/movierec/internal/model"
	"github.com/user/movierec/internal/repository"
	"github.com/user/movierec/internal/utils"
)

const (
	// 写入与查询用不同前缀，nomic-embed-text 的任务指令格式
	documentPrefix = "search_document: "
	queryPrefix    = "search_query: "

	// 余弦距离截断，超过视为不相关
	defaultMaxDistance = 0.39
	defaultTopK        = 50
)

// VectorStore 语义索引：Ollama 生成向量，pgvector 存储与检索
type VectorStore struct {
	embedder  *utils.EmbeddingClient
	repo      *repository.EmbeddingRepository
	batchSize int
}

// NewVectorStore 创建语义索引
func NewVectorStore(repo *repository.EmbeddingRepository, cfg *config.Config) *VectorStore {
	return &VectorStore{
		embedder:  utils.NewEmbeddingClient(cfg.OllamaHost, cfg.OllamaModel),
		repo:      repo,
		batchSize: cfg.EmbeddingBatchSize,
	}
}

// Store 批量写入文档，按 ID 幂等覆盖
// 超过批量上限时拆分子批，子批内逐条生成向量后一次性落库
func (s *VectorStore) Store(ids []string, documents []string, metadatas []model.MovieMetadata) error {
	if len(ids) != len(documents) || len(ids) != len(metadatas) {
		return fmt.Errorf("向量写入参数长度不一致: %d/%d/%d", len(ids), len(documents), len(metadatas))
	}

	for start := 0; start < len(ids); start += s.batchSize {
		end := start + s.batchSize
		if end > len(ids) {
			end = len(ids)
		}

		batchIDs := ids[start:end]
		batchDocs := documents[start:end]
		batchMetas := metadatas[start:end]

		embeddings := make([][]float32, 0, len(batchIDs))
		for i, doc := range batchDocs {
			vec, err := s.embedder.Embed(documentPrefix + doc)
			if err != nil {
				return fmt.Errorf("生成向量失败 (id=%s): %w", batchIDs[i], err)
			}
			embeddings = append(embeddings, vec)
		}

		if err := s.repo.Upsert(batchIDs, batchDocs, batchMetas, embeddings); err != nil {
			return err
		}

		log.Printf("[VectorStore] 已写入 %d 条向量记录", len(batchIDs))
	}

	return nil
}

// Query 语义检索
// k<=0 取默认 50，maxDistance<=0 取默认 0.39；
// 距离截断在取回后执行，命中按距离升序返回
func (s *VectorStore) Query(text string, filter repository.MetadataFilter, docContains, docExcludes []string, k int, maxDistance float64) ([]repository.SemanticHit, error) {
	if k <= 0 {
		k = defaultTopK
	}
	if maxDistance <= 0 {
		maxDistance = defaultMaxDistance
	}

	vec, err := s.embedder.Embed(queryPrefix + text)
	if err != nil {
		return nil, fmt.Errorf("查询向量生成失败: %w", err)
	}

	hits, err := s.repo.QueryNearest(vec, filter, docContains, docExcludes, k)
	if err != nil {
		return nil, err
	}

	filtered := make([]repository.SemanticHit, 0, len(hits))
	for _, hit := range hits {
		if hit.Distance >= maxDistance {
			continue
		}
		filtered = append(filtered, hit)
	}

	return filtered, nil
}

// Count 索引内记录数
func (s *VectorStore) Count() (int64, error) {
	return s.repo.Count()
}
