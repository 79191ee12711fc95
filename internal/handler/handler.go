package handler

import (
	"errors"
	"strconv"
	"strings"

	"knightboard/internal/config"
	"knightboard/internal/repository"
	"knightboard/internal/service"
	"knightboard/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	authService    *service.AuthService
	accountService *service.AccountService
	missionService *service.MissionService
	shopService    *service.ShopService
}

// NewHandler 创建处理器实例
func NewHandler(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *Handler {
	return &Handler{
		authService:    service.NewAuthService(repository.NewAccountRepository(db), rdb, cfg),
		accountService: service.NewAccountService(db),
		missionService: service.NewMissionService(db, cfg),
		shopService:    service.NewShopService(db, rdb, cfg),
	}
}

// handleError 业务错误统一返回
// code 是对外稳定契约，message 只做展示
func handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrMissionNotFound):
		response.BusinessError(c, response.CodeMissionNotFound, err.Error())
	case errors.Is(err, repository.ErrSubmissionNotFound):
		response.BusinessError(c, response.CodeSubmissionNotFound, err.Error())
	case errors.Is(err, repository.ErrInvalidVerdict):
		response.BusinessError(c, response.CodeInvalidVerdict, err.Error())
	case errors.Is(err, repository.ErrAlreadyGraded):
		response.BusinessError(c, response.CodeAlreadyGraded, err.Error())
	case errors.Is(err, repository.ErrAccountNotFound):
		response.BusinessError(c, response.CodeAccountNotFound, err.Error())
	case errors.Is(err, repository.ErrBalanceNotEnough):
		response.BusinessError(c, response.CodeBalanceNotEnough, err.Error())
	case errors.Is(err, repository.ErrCoinUpdateFailed):
		response.BusinessError(c, response.CodeCoinUpdateFailed, err.Error())
	case errors.Is(err, repository.ErrDuplicateEmail):
		response.BusinessError(c, response.CodeDuplicateAccount, err.Error())
	case errors.Is(err, service.ErrProductNotFound):
		response.BusinessError(c, response.CodeProductNotFound, err.Error())
	case errors.Is(err, service.ErrRewardMissing):
		response.BusinessError(c, response.CodeRewardMissing, err.Error())
	case errors.Is(err, service.ErrLoginFailed):
		response.BusinessError(c, response.CodeLoginFailed, err.Error())
	case errors.Is(err, service.ErrInvalidAmount):
		response.ParamError(c, err.Error())
	default:
		response.ServerError(c, err.Error())
	}
}

// ============================================================
// 认证相关接口
// ============================================================

// RegisterRequest 注册请求
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Nickname string `json:"nickname" binding:"required"`
}

// Register 注册
// POST /api/v1/auth/register
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	account, err := h.authService.Register(c.Request.Context(), req.Email, req.Password, req.Nickname)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, gin.H{
		"user_id":  account.UserID,
		"email":    account.Email,
		"nickname": account.Nickname,
		"balance":  account.Balance,
	})
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 登录
// POST /api/v1/auth/login
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	token, account, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, gin.H{
		"token":    token,
		"user_id":  account.UserID,
		"nickname": account.Nickname,
		"role":     account.Role,
	})
}

// Logout 注销
// POST /api/v1/auth/logout
func (h *Handler) Logout(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		response.NotLoggedIn(c)
		return
	}

	if err := h.authService.Logout(c.Request.Context(), token); err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"message": "已注销",
	})
}

// ============================================================
// 账户相关接口
// ============================================================

// GetBalance 查询自己的账户和余额
// GET /api/v1/account/balance
func (h *Handler) GetBalance(c *gin.Context) {
	account, err := h.accountService.GetAccount(c.Request.Context(), currentUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, gin.H{
		"user_id":  account.UserID,
		"nickname": account.Nickname,
		"role":     account.Role,
		"balance":  account.Balance,
	})
}

// ListTransactions 自己的硬币流水
// GET /api/v1/account/transactions?page=1&page_size=10
func (h *Handler) ListTransactions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	transactions, total, err := h.accountService.ListTransactions(c.Request.Context(), currentUserID(c), page, pageSize)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":      transactions,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GrantRequest 发放硬币请求
type GrantRequest struct {
	UserID int64  `json:"user_id" binding:"required"`
	Amount int64  `json:"amount" binding:"required,gt=0"`
	Remark string `json:"remark"`
}

// Grant 管理员发放硬币
// POST /api/v1/account/grant
func (h *Handler) Grant(c *gin.Context) {
	var req GrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	newBalance, err := h.accountService.Grant(c.Request.Context(), req.UserID, req.Amount, req.Remark)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, gin.H{
		"user_id":     req.UserID,
		"new_balance": newBalance,
	})
}

// ============================================================
// 任务相关接口
// ============================================================

// ListMissions 任务列表（带当前用户的提交情况）
// GET /api/v1/missions?page=1&page_size=9
func (h *Handler) ListMissions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "9"))

	missions, total, err := h.missionService.ListMissions(c.Request.Context(), currentUserID(c), page, pageSize)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":      missions,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetMission 任务详情
// GET /api/v1/missions/:id
func (h *Handler) GetMission(c *gin.Context) {
	missionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "任务ID不合法")
		return
	}

	mission, err := h.missionService.GetMission(c.Request.Context(), missionID, currentUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, mission)
}

// CreateMissionRequest 发布任务请求
type CreateMissionRequest struct {
	Title       string `json:"title" binding:"required"`
	ShortDesc   string `json:"short_desc"`
	DetailDesc  string `json:"detail_desc"`
	CoinsReward int64  `json:"coins_reward" binding:"gte=0"`
}

// CreateMission 发布任务（骑士专用）
// POST /api/v1/missions
func (h *Handler) CreateMission(c *gin.Context) {
	var req CreateMissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	mission, err := h.missionService.CreateMission(c.Request.Context(), currentUserID(c),
		req.Title, req.ShortDesc, req.DetailDesc, req.CoinsReward)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, mission)
}

// SubmitRequest 提交任务请求
// attachment_ref 是上传服务返回的引用，这里当不透明字符串存
type SubmitRequest struct {
	AttachmentRef string `json:"attachment_ref"`
	Comment       string `json:"comment"`
}

// SubmitMission 提交任务
// POST /api/v1/missions/:id/submit
func (h *Handler) SubmitMission(c *gin.Context) {
	missionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "任务ID不合法")
		return
	}

	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	submission, err := h.missionService.Submit(c.Request.Context(), missionID, currentUserID(c),
		req.AttachmentRef, req.Comment)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, gin.H{
		"submission_no": submission.SubmissionNo,
		"status":        submission.Status,
		"message":       "提交成功，请等待骑士评审",
	})
}

// ListMissionSubmissions 某任务的提交名单（骑士专用）
// GET /api/v1/missions/:id/submissions
func (h *Handler) ListMissionSubmissions(c *gin.Context) {
	missionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "任务ID不合法")
		return
	}

	submissions, err := h.missionService.ListForMission(c.Request.Context(), missionID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":  submissions,
		"total": len(submissions),
	})
}

// JudgeRequest 评审请求
type JudgeRequest struct {
	SubmissionNo string `json:"submission_no" binding:"required"`
	Verdict      string `json:"verdict" binding:"required"` // success / fail
}

// JudgeSubmission 评审提交（骑士专用）
// POST /api/v1/submissions/judge
//
// 【关键点】判成功和发奖在同一个数据库事务内完成；
// 已评审过的提交会被拒绝，不存在重复发奖
func (h *Handler) JudgeSubmission(c *gin.Context) {
	var req JudgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.missionService.Grade(c.Request.Context(), req.SubmissionNo, req.Verdict)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, result)
}

// ListAllSubmissions 全量提交记录（骑士专用）
// GET /api/v1/submissions/all
func (h *Handler) ListAllSubmissions(c *gin.Context) {
	submissions, err := h.missionService.ListAllSubmissions(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":  submissions,
		"total": len(submissions),
	})
}

// PurgeSubmissions 清空提交记录（骑士专用）
// DELETE /api/v1/submissions?include_missions=false
func (h *Handler) PurgeSubmissions(c *gin.Context) {
	includeMissions := c.DefaultQuery("include_missions", "false") == "true"

	result, err := h.missionService.PurgeSubmissions(c.Request.Context(), includeMissions)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, result)
}

// ============================================================
// 商城相关接口
// ============================================================

// ListProducts 商品列表
// GET /api/v1/shop/products?category=all&search=
func (h *Handler) ListProducts(c *gin.Context) {
	category := c.DefaultQuery("category", "all")
	search := c.Query("search")

	products := h.shopService.ListProducts(category, search)

	response.Success(c, gin.H{
		"products": products,
	})
}

// PurchaseRequest 购买请求
type PurchaseRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
}

// Purchase 购买商品
// POST /api/v1/shop/purchase
func (h *Handler) Purchase(c *gin.Context) {
	var req PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.shopService.Purchase(c.Request.Context(), currentUserID(c), req.ProductID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, result)
}

// PurchaseHistory 自己的购买历史
// GET /api/v1/shop/history?page=1&page_size=10
func (h *Handler) PurchaseHistory(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	purchases, total, err := h.shopService.History(c.Request.Context(), currentUserID(c), page, pageSize)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":      purchases,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ClaimReward 解锁成就
// GET /api/v1/shop/claim-reward
// 没攒够次数是正常返回（unlocked=false），不是错误
func (h *Handler) ClaimReward(c *gin.Context) {
	result, err := h.shopService.ClaimReward(c.Request.Context(), currentUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, result)
}
