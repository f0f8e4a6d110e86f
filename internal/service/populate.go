package service

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"
	"unicode"

	"github.com/user/movierec/internal/config"
	"github.com/user/movierec/internal/model"
	"github.com/user/movierec/internal/repository"
	"github.com/user/movierec/internal/utils"
	"gorm.io/gorm"
)

const (
	exportFile     = "tmdb_export.jsonl"
	filteredFile   = "tmdb_export_filtered.csv"
	checkpointFile = "populate_checkpoint.json"

	// 后台排空 preprocess/embedding 队列的轮询间隔
	drainInterval = 10 * time.Second
)

// PopulateService 批量导入 TMDB 每日导出
// 逐行抓详情入库，断点续传，可被 SIGINT 安全打断
type PopulateService struct {
	db       *gorm.DB
	catalog  CatalogAPI
	pipeline *PipelineService
	cfg      *config.Config
	http     *utils.HTTPClient
}

// NewPopulateService 创建批量导入服务
func NewPopulateService(db *gorm.DB, catalog CatalogAPI, pipeline *PipelineService, cfg *config.Config) *PopulateService {
	return &PopulateService{
		db:       db,
		catalog:  catalog,
		pipeline: pipeline,
		cfg:      cfg,
		http:     utils.NewHTTPClient(""),
	}
}

// checkpoint 断点文件内容
type checkpoint struct {
	ResumeFromIndex int `json:"resume_from_index"`
}

// exportRow 每日导出中的一行
type exportRow struct {
	ID            int64  `json:"id"`
	OriginalTitle string `json:"original_title"`
}

// Run 执行批量导入
// url 非空时重新下载并过滤导出文件，否则从断点续传
func (s *PopulateService) Run(url string, resume bool) error {
	if err := os.MkdirAll(s.cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("创建数据目录失败: %w", err)
	}

	if !resume {
		if url == "" {
			return fmt.Errorf("首次导入必须提供导出文件 URL")
		}
		if err := s.prepareExport(url); err != nil {
			return err
		}
	}

	rows, err := s.loadFilteredRows()
	if err != nil {
		return err
	}

	start := 0
	if resume {
		cp, err := s.loadCheckpoint()
		if err != nil {
			return err
		}
		start = cp.ResumeFromIndex
	}

	if start >= len(rows) {
		log.Printf("[Populate] 断点 %d 已超出导出行数 %d，无需处理", start, len(rows))
		return nil
	}

	existing, err := repository.NewMovieRepository(s.db).AllTmdbIDs()
	if err != nil {
		return fmt.Errorf("已入库 ID 加载失败: %w", err)
	}

	// 后台持续排空描述与向量化队列，导入不用等全量结束
	stopDrain := make(chan struct{})
	drainDone := make(chan struct{})
	go s.drainLoop(stopDrain, drainDone)
	defer func() {
		close(stopDrain)
		<-drainDone
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	log.Printf("[Populate] 开始导入：共 %d 行，从第 %d 行继续", len(rows), start)

	var batch []*model.Movie
	for i := start; i < len(rows); i++ {
		select {
		case <-interrupt:
			log.Printf("[Populate] 收到中断信号，落盘后退出（断点 %d）", i)
			if err := s.flush(batch, i); err != nil {
				return err
			}
			return nil
		default:
		}

		row := rows[i]
		if _, ok := existing[row.ID]; ok {
			continue
		}

		details, err := s.catalog.FetchMovieDetails(row.ID)
		if err != nil {
			// 网络类错误只影响当前行
			log.Printf("[Populate] 第 %d 行 (tmdb_id %d) 详情抓取失败: %v", i, row.ID, err)
			continue
		}

		if !IsAcceptableMovie(details.Genres, details.SpokenLanguages, s.cfg.AllowedLanguages) {
			continue
		}

		batch = append(batch, model.NewMovie(details))
		existing[row.ID] = struct{}{}

		if len(batch) >= s.cfg.CommitInterval {
			if err := s.flush(batch, i+1); err != nil {
				return err
			}
			batch = nil
		}
	}

	if err := s.flush(batch, len(rows)); err != nil {
		return err
	}

	log.Printf("[Populate] 导入完成，共处理 %d 行", len(rows)-start)
	return nil
}

// flush 一个事务写入整批电影与队列条目，成功后推进断点
// 数据库错误视为严重错误，由调用方终止导入
func (s *PopulateService) flush(batch []*model.Movie, nextIndex int) error {
	if len(batch) > 0 {
		err := s.db.Transaction(func(tx *gorm.DB) error {
			for _, movie := range batch {
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
			return fmt.Errorf("批量写入失败: %w", err)
		}
		log.Printf("[Populate] 已写入 %d 部电影，断点推进到 %d", len(batch), nextIndex)
	}

	return s.saveCheckpoint(checkpoint{ResumeFromIndex: nextIndex})
}

// drainLoop 周期性执行描述合成与向量化，直到收到停止信号
func (s *PopulateService) drainLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(drainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			// 退出前再排空一次
			s.pipeline.PreprocessDescriptions()
			s.pipeline.CreateEmbeddings()
			return
		case <-ticker.C:
			s.pipeline.PreprocessDescriptions()
			s.pipeline.CreateEmbeddings()
		}
	}
}

// prepareExport 下载每日导出并过滤出拉丁字母标题，重置断点
func (s *PopulateService) prepareExport(url string) error {
	exportPath := filepath.Join(s.cfg.DataDir, exportFile)
	log.Printf("[Populate] 下载导出文件: %s", url)
	if err := s.http.DownloadGzip(url, exportPath); err != nil {
		return fmt.Errorf("导出文件下载失败: %w", err)
	}

	in, err := os.Open(exportPath)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(filepath.Join(s.cfg.DataDir, filteredFile))
	if err != nil {
		return err
	}
	defer out.Close()

	w := csv.NewWriter(out)
	total, kept := 0, 0

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		total++

		var row exportRow
		if err := json.Unmarshal(line, &row); err != nil {
			log.Printf("[Populate] 第 %d 行解析失败，跳过: %v", total, err)
			continue
		}
		if row.ID == 0 || !IsMostlyLatin(row.OriginalTitle, s.cfg.LatinThreshold) {
			continue
		}

		if err := w.Write([]string{strconv.FormatInt(row.ID, 10), row.OriginalTitle}); err != nil {
			return err
		}
		kept++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("导出文件读取失败: %w", err)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	log.Printf("[Populate] 过滤完成: %d/%d 行保留", kept, total)
	return s.saveCheckpoint(checkpoint{ResumeFromIndex: 0})
}

// loadFilteredRows 读取过滤后的 CSV
func (s *PopulateService) loadFilteredRows() ([]exportRow, error) {
	f, err := os.Open(filepath.Join(s.cfg.DataDir, filteredFile))
	if err != nil {
		return nil, fmt.Errorf("过滤文件打开失败（先不带 --resume 运行一次）: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("过滤文件读取失败: %w", err)
	}

	rows := make([]exportRow, 0, len(records))
	for _, rec := range records {
		if len(rec) < 2 {
			continue
		}
		id, err := strconv.ParseInt(rec[0], 10, 64)
		if err != nil {
			continue
		}
		rows = append(rows, exportRow{ID: id, OriginalTitle: rec[1]})
	}
	return rows, nil
}

func (s *PopulateService) saveCheckpoint(cp checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.cfg.DataDir, checkpointFile), data, 0o644)
}

func (s *PopulateService) loadCheckpoint() (checkpoint, error) {
	var cp checkpoint
	data, err := os.ReadFile(filepath.Join(s.cfg.DataDir, checkpointFile))
	if err != nil {
		return cp, fmt.Errorf("断点文件读取失败: %w", err)
	}
	if err := json.Unmarshal(data, &cp); err != nil {
		return cp, fmt.Errorf("断点文件解析失败: %w", err)
	}
	return cp, nil
}

// IsMostlyLatin 判断标题是否以拉丁字母为主
// 数字、空白和标点视为中性字符，同样计入拉丁侧
func IsMostlyLatin(s string, threshold float64) bool {
	if s == "" {
		return false
	}

	total, latin := 0, 0
	for _, r := range s {
		total++
		if unicode.Is(unicode.Latin, r) || unicode.IsDigit(r) ||
			unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) {
			latin++
		}
	}

	return float64(latin)/float64(total) >= threshold
}
