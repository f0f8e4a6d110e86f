package handler

import (
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/user/movierec/internal/config"
	"github.com/user/movierec/internal/repository"
	"github.com/user/movierec/internal/service"
)

// Handler 处理所有HTTP请求
type Handler struct {
	cfg       *config.Config
	repos     *repository.Repositories
	recommend *service.RecommendService
	vectors   *service.VectorStore
}

// NewHandler 创建处理器实例
func NewHandler(cfg *config.Config, repos *repository.Repositories, recommend *service.RecommendService, vectors *service.VectorStore) *Handler {
	registerValidations()
	return &Handler{
		cfg:       cfg,
		repos:     repos,
		recommend: recommend,
		vectors:   vectors,
	}
}

// registerValidations 注册自定义校验规则
func registerValidations() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		// datefmt: "YYYY-MM-DD" 日期串
		v.RegisterValidation("datefmt", func(fl validator.FieldLevel) bool {
			_, err := time.Parse("2006-01-02", fl.Field().String())
			return err == nil
		})
	}
}
