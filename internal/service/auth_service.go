package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"knightboard/internal/config"
	"knightboard/internal/infrastructure/cache"
	"knightboard/internal/model"
	"knightboard/internal/repository"
	"knightboard/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrLoginFailed = errors.New("邮箱或密码不正确")
)

// ============================================================================
// 注册 / 登录 / 会话
// ============================================================================
//
// 认证对核心业务来说是外围协作方：业务层只消费"已认证的 UserID + 角色"。
// 这里给出一套最小实现：bcrypt 存密码，登录签发 uuid 令牌写入 Redis

type authAccountStore interface {
	Create(ctx context.Context, account *model.Account) error
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
}

type sessionStore interface {
	Save(ctx context.Context, token string, userID int64, role string, ttl time.Duration) error
	Get(ctx context.Context, token string) (int64, string, error)
	Delete(ctx context.Context, token string) error
}

type AuthService struct {
	accountRepo authAccountStore
	sessions    sessionStore
	cfg         *config.Config
}

func NewAuthService(accountRepo *repository.AccountRepository, redisClient *redis.Client, cfg *config.Config) *AuthService {
	return &AuthService{
		accountRepo: accountRepo,
		sessions:    cache.NewSessionStore(redisClient),
		cfg:         cfg,
	}
}

// Register 注册新账户
// 角色固定为普通用户，初始余额 0；骑士账号走运维渠道直接改库
func (s *AuthService) Register(ctx context.Context, email, password, nickname string) (*model.Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("密码处理失败: %w", err)
	}

	account := &model.Account{
		UserID:       idgen.NextID(),
		Email:        email,
		PasswordHash: string(hash),
		Nickname:     nickname,
		Role:         model.RoleUser,
		Balance:      0,
	}
	if err := s.accountRepo.Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// Login 登录，成功后签发会话令牌
// 账户不存在和密码错误统一返回 ErrLoginFailed，不给枚举邮箱的机会
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *model.Account, error) {
	account, err := s.accountRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return "", nil, ErrLoginFailed
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrLoginFailed
	}

	token := uuid.NewString()
	ttl := time.Duration(s.cfg.Business.SessionTTLHours) * time.Hour
	if err := s.sessions.Save(ctx, token, account.UserID, account.Role, ttl); err != nil {
		return "", nil, fmt.Errorf("保存会话失败: %w", err)
	}

	return token, account, nil
}

// Logout 注销会话
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}

// Session 校验令牌，返回持有者的 UserID 和角色
func (s *AuthService) Session(ctx context.Context, token string) (int64, string, error) {
	return s.sessions.Get(ctx, token)
}
