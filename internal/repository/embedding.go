package repository

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/user/movierec/internal/model"
	"gorm.io/gorm"
)

// EmbeddingRepository 向量表访问层
// 表结构在 Migrate 中用原生 SQL 建立（pgvector 列无法走 AutoMigrate）
type EmbeddingRepository struct {
	db *gorm.DB
}

func NewEmbeddingRepository(db *gorm.DB) *EmbeddingRepository {
	return &EmbeddingRepository{db: db}
}

// Upsert 按 tmdb_id 幂等写入一批向量记录
// ids、documents、metadatas、embeddings 等长一一对应
func (r *EmbeddingRepository) Upsert(ids []string, documents []string, metadatas []model.MovieMetadata, embeddings [][]float32) error {
	if len(ids) != len(documents) || len(ids) != len(metadatas) || len(ids) != len(embeddings) {
		return fmt.Errorf("向量写入参数长度不一致: %d/%d/%d/%d",
			len(ids), len(documents), len(metadatas), len(embeddings))
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		for i, id := range ids {
			metaJSON, err := json.Marshal(metadatas[i])
			if err != nil {
				return fmt.Errorf("元数据序列化失败 (id=%s): %w", id, err)
			}

			err = tx.Exec(`
				INSERT INTO movie_embeddings (tmdb_id, document, metadata, embedding)
				VALUES (?, ?, ?, ?)
				ON CONFLICT (tmdb_id) DO UPDATE SET
					document = EXCLUDED.document,
					metadata = EXCLUDED.metadata,
					embedding = EXCLUDED.embedding
			`, id, documents[i], string(metaJSON), pgvector.NewVector(embeddings[i])).Error
			if err != nil {
				return fmt.Errorf("向量写入失败 (id=%s): %w", id, err)
			}
		}
		return nil
	})
}

// MetadataFilter 向量检索的元数据过滤条件，零值字段不参与过滤
type MetadataFilter struct {
	ExcludeTmdbIDs  []int64
	IncludeTmdbIDs  []int64
	UseInclude      bool // IncludeTmdbIDs 为空也可能是有效约束（前置过滤无命中）
	VoteAverageMin  float64
	VoteCountGt     int
	RuntimeMin      int
	RuntimeMax      int
	PopularityMin   float64
	ReleaseDateFrom int // YYYYMMDD
	ReleaseDateTo   int
}

// SemanticHit 向量检索命中：元数据投影 + 余弦距离
type SemanticHit struct {
	Metadata model.MovieMetadata
	Distance float64
}

// QueryNearest 余弦距离最近邻检索
// 元数据过滤走 jsonb 表达式，文档过滤走 ILIKE；距离截断由调用方处理
func (r *EmbeddingRepository) QueryNearest(embedding []float32, filter MetadataFilter, docContains, docExcludes []string, k int) ([]SemanticHit, error) {
	var conds []string
	var args []interface{}

	if filter.UseInclude {
		conds = append(conds, "(metadata->>'tmdb_id')::bigint = ANY(?)")
		args = append(args, pq.Array(filter.IncludeTmdbIDs))
	}
	if len(filter.ExcludeTmdbIDs) > 0 {
		conds = append(conds, "NOT ((metadata->>'tmdb_id')::bigint = ANY(?))")
		args = append(args, pq.Array(filter.ExcludeTmdbIDs))
	}
	if filter.VoteAverageMin > 0 {
		conds = append(conds, "(metadata->>'vote_average')::float8 >= ?")
		args = append(args, filter.VoteAverageMin)
	}
	if filter.VoteCountGt > 0 {
		conds = append(conds, "(metadata->>'vote_count')::int > ?")
		args = append(args, filter.VoteCountGt)
	}
	if filter.RuntimeMin > 0 {
		conds = append(conds, "(metadata->>'runtime')::int >= ?")
		args = append(args, filter.RuntimeMin)
	}
	if filter.RuntimeMax > 0 {
		conds = append(conds, "(metadata->>'runtime')::int <= ?")
		args = append(args, filter.RuntimeMax)
	}
	if filter.PopularityMin > 0 {
		conds = append(conds, "(metadata->>'popularity')::float8 >= ?")
		args = append(args, filter.PopularityMin)
	}
	if filter.ReleaseDateFrom > 0 {
		conds = append(conds, "(metadata->>'release_date')::int >= ?")
		args = append(args, filter.ReleaseDateFrom)
	}
	if filter.ReleaseDateTo > 0 {
		conds = append(conds, "(metadata->>'release_date')::int <= ?")
		args = append(args, filter.ReleaseDateTo)
	}

	for _, s := range docContains {
		conds = append(conds, "document ILIKE ?")
		args = append(args, "%"+s+"%")
	}
	for _, s := range docExcludes {
		conds = append(conds, "document NOT ILIKE ?")
		args = append(args, "%"+s+"%")
	}

	vec := pgvector.NewVector(embedding)
	sql := "SELECT metadata, embedding <=> ? AS distance FROM movie_embeddings"
	queryArgs := []interface{}{vec}
	if len(conds) > 0 {
		sql += " WHERE " + strings.Join(conds, " AND ")
		queryArgs = append(queryArgs, args...)
	}
	sql += " ORDER BY embedding <=> ? LIMIT ?"
	queryArgs = append(queryArgs, vec, k)

	rows, err := r.db.Raw(sql, queryArgs...).Rows()
	if err != nil {
		return nil, fmt.Errorf("向量检索失败: %w", err)
	}
	defer rows.Close()

	var hits []SemanticHit
	for rows.Next() {
		var metaJSON []byte
		var hit SemanticHit
		if err := rows.Scan(&metaJSON, &hit.Distance); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(metaJSON, &hit.Metadata); err != nil {
			return nil, fmt.Errorf("元数据解析失败: %w", err)
		}
		hits = append(hits, hit)
	}

	return hits, rows.Err()
}

// Count 向量记录总数
func (r *EmbeddingRepository) Count() (int64, error) {
	var count int64
	err := r.db.Raw("SELECT COUNT(*) FROM movie_embeddings").Scan(&count).Error
	return count, err
}
