package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/user/movierec/internal/model"
	"github.com/user/movierec/internal/utils"
)

// AdminQueueList 分页列出入库队列（带电影标题，可按状态过滤）
func (h *Handler) AdminQueueList(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

	status := model.QueueStatus(c.Query("status"))
	if status != "" && !model.IsValidQueueStatus(status) {
		utils.BadRequest(c, "无效的队列状态: "+string(status))
		return
	}

	items, total, err := h.repos.Queue.ListWithTitles(page, perPage, status)
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}

	utils.Success(c, gin.H{
		"total":    total,
		"page":     page,
		"per_page": perPage,
		"items":    items,
	})
}

// AdminQueueCounts 各状态条目数统计
func (h *Handler) AdminQueueCounts(c *gin.Context) {
	counts, err := h.repos.Queue.CountByStatus()
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}

	// 缺失的状态补零，前端展示用
	for _, s := range model.AllQueueStatuses {
		if _, ok := counts[string(s)]; !ok {
			counts[string(s)] = 0
		}
	}

	utils.Success(c, counts)
}

// queueStatusRequest 批量改写队列状态请求
// tmdb_ids 为空表示作用于全部条目
type queueStatusRequest struct {
	TmdbIDs []int64 `json:"tmdb_ids"`
	Status  string  `json:"status" binding:"required"`
	Message string  `json:"message"`
}

// AdminQueueSetStatus 批量改写队列状态，重试计数清零
func (h *Handler) AdminQueueSetStatus(c *gin.Context) {
	var req queueStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	status := model.QueueStatus(req.Status)
	if !model.IsValidQueueStatus(status) {
		utils.BadRequest(c, "无效的队列状态: "+req.Status)
		return
	}

	affected, err := h.repos.Queue.BulkUpdateStatus(req.TmdbIDs, status, req.Message)
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}

	utils.Success(c, gin.H{"affected": affected})
}

// AdminUserList 全部用户列表
func (h *Handler) AdminUserList(c *gin.Context) {
	users, err := h.repos.User.ListAll()
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}
	utils.Success(c, users)
}

// userScopesRequest 更新用户权限请求
type userScopesRequest struct {
	Scopes []string `json:"scopes" binding:"required"`
}

// AdminUserSetScopes 更新用户权限范围
func (h *Handler) AdminUserSetScopes(c *gin.Context) {
	var req userScopesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	affected, err := h.repos.User.UpdateScopes(c.Param("email"), req.Scopes)
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}
	if affected == 0 {
		utils.NotFound(c, "用户不存在")
		return
	}

	utils.SuccessWithMessage(c, "权限已更新", nil)
}

// userStatusRequest 启用/停用用户请求
type userStatusRequest struct {
	Disabled *bool `json:"disabled" binding:"required"`
}

// AdminUserSetStatus 启用/停用用户
func (h *Handler) AdminUserSetStatus(c *gin.Context) {
	var req userStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	affected, err := h.repos.User.UpdateDisabled(c.Param("email"), *req.Disabled)
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}
	if affected == 0 {
		utils.NotFound(c, "用户不存在")
		return
	}

	utils.SuccessWithMessage(c, "状态已更新", nil)
}

// AdminStats 全站统计：电影数、用户数、向量数、队列状态分布
// 统计走全表 COUNT，结果缓存一分钟
func (h *Handler) AdminStats(c *gin.Context) {
	if cached, ok := utils.CacheGet("admin:stats"); ok {
		utils.Success(c, cached)
		return
	}

	movieCount, err := h.repos.Movie.Count()
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}
	userCount, err := h.repos.User.Count()
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}
	queueCounts, err := h.repos.Queue.CountByStatus()
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}

	// 向量表只在 Postgres 上存在，失败时报 -1 而不是整页报错
	embeddingCount, err := h.vectors.Count()
	if err != nil {
		embeddingCount = -1
	}

	stats := gin.H{
		"movies":     movieCount,
		"users":      userCount,
		"embeddings": embeddingCount,
		"queue":      queueCounts,
	}
	utils.CacheSet("admin:stats", stats, time.Minute)
	utils.Success(c, stats)
}
