package handler

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/user/movierec/internal/middleware"
	"github.com/user/movierec/internal/model"
	"github.com/user/movierec/internal/utils"
)

// registerRequest 注册请求
type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// Register 用户注册
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	existing, err := h.repos.User.FindByEmail(req.Email)
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}
	if existing != nil {
		utils.BadRequest(c, "该邮箱已注册")
		return
	}

	user, err := h.repos.User.Create(req.Email, req.Password)
	if err != nil {
		utils.InternalServerError(c, "注册失败")
		return
	}

	utils.Success(c, gin.H{
		"id":     user.ID,
		"email":  user.Email,
		"scopes": user.ScopeList(),
	})
}

// tokenRequest 登录请求
type tokenRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Token 登录换取 JWT，同时写入 Session 与 Cookie
func (h *Handler) Token(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	user, err := h.repos.User.FindByEmail(req.Email)
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}
	if user == nil || !h.repos.User.CheckPassword(user, req.Password) {
		utils.Unauthorized(c, "邮箱或密码错误")
		return
	}
	if user.Disabled {
		utils.Forbidden(c, "账号已停用")
		return
	}

	token, err := middleware.GenerateToken(user.ID, user.Email, user.Role, user.Scopes, h.cfg.AppSecret, h.cfg.JWTExpiry)
	if err != nil {
		utils.InternalServerError(c, "令牌生成失败")
		return
	}

	session := sessions.Default(c)
	session.Set("user", model.SessionUser{ID: user.ID, Email: user.Email, Role: user.Role})
	_ = session.Save()

	c.SetCookie("token", token, int(h.cfg.JWTExpiry.Seconds()), "/", "", false, true)

	utils.Success(c, gin.H{
		"access_token": token,
		"token_type":   "bearer",
	})
}

// Me 当前登录用户信息
func (h *Handler) Me(c *gin.Context) {
	user, err := h.repos.User.FindByID(middleware.GetUserID(c))
	if err != nil || user == nil {
		utils.Unauthorized(c, "")
		return
	}

	utils.Success(c, gin.H{
		"id":       user.ID,
		"email":    user.Email,
		"role":     user.Role,
		"scopes":   user.ScopeList(),
		"disabled": user.Disabled,
	})
}

// Logout 退出登录
func (h *Handler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	_ = session.Save()
	c.SetCookie("token", "", -1, "/", "", false, true)
	utils.SuccessWithMessage(c, "已退出登录", nil)
}
