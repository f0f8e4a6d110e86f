package service

import (
	"log"

	"github.com/robfig/cron/v3"
	"github.com/user/movierec/internal/config"
	"golang.org/x/sync/singleflight"
)

// Scheduler 流水线定时调度
// 同一任务上一轮未结束时跳过本轮（singleflight 抑制），
// 不同阶段之间靠错峰的 cron 表达式避让
type Scheduler struct {
	cron     *cron.Cron
	pipeline *PipelineService
	cfg      *config.Config
	sf       singleflight.Group
}

// NewScheduler 创建调度器
func NewScheduler(pipeline *PipelineService, cfg *config.Config) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		pipeline: pipeline,
		cfg:      cfg,
	}
}

// Start 注册并启动所有定时任务
// 启动时先跑一次队列对账，补上历史遗漏
func (s *Scheduler) Start() error {
	jobs := []struct {
		name string
		spec string
		run  func()
	}{
		{"fetch_current_movies", s.cfg.FetchCron, func() { s.pipeline.FetchCurrentMovies(s.cfg.FetchPages) }},
		{"refresh_queue", s.cfg.RefreshCron, func() { s.pipeline.RefreshQueue(s.cfg.RefreshLimit) }},
		{"preprocess_descriptions", s.cfg.PreprocessCron, s.pipeline.PreprocessDescriptions},
		{"create_embeddings", s.cfg.EmbeddingCron, s.pipeline.CreateEmbeddings},
		{"reconcile_queue", s.cfg.ReconcileCron, s.pipeline.ReconcileQueue},
	}

	for _, job := range jobs {
		name, run := job.name, job.run
		_, err := s.cron.AddFunc(job.spec, func() {
			s.runExclusive(name, run)
		})
		if err != nil {
			return err
		}
	}

	go s.runExclusive("reconcile_queue", s.pipeline.ReconcileQueue)

	s.cron.Start()
	log.Printf("[Scheduler] 定时任务已启动，共 %d 个", len(jobs))
	return nil
}

// runExclusive 同名任务并发时只执行一次，其余直接跳过
func (s *Scheduler) runExclusive(name string, run func()) {
	_, _, shared := s.sf.Do(name, func() (interface{}, error) {
		run()
		return nil, nil
	})
	if shared {
		log.Printf("[Scheduler] 任务 %s 上一轮未结束，跳过", name)
	}
}

// Stop 停止调度，等待运行中的任务结束
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Printf("[Scheduler] 定时任务已停止")
}
