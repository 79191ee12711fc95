package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"knightboard/internal/config"
	"knightboard/internal/infrastructure/lock"
	"knightboard/internal/model"
	"knightboard/internal/repository"
	"knightboard/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

var (
	ErrProductNotFound = errors.New("商品不存在")
	ErrRewardMissing   = errors.New("奖励文件不存在或不可读")
)

// ============================================================================
// 商城与解锁成就
// ============================================================================

type purchaseStore interface {
	Create(ctx context.Context, tx *gorm.DB, purchase *model.Purchase) error
	ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.Purchase, int64, error)
	CountByUserAndProduct(ctx context.Context, userID int64, productID int64) (int64, error)
}

// purchaseLocker 按用户维度的购买互斥
// 生产实现是 Redis 分布式锁；抽成接口便于在测试里替换
type purchaseLocker interface {
	Lock(ctx context.Context, userID int64) (unlock func(), err error)
}

type redisPurchaseLocker struct {
	client *redis.Client
}

func (l *redisPurchaseLocker) Lock(ctx context.Context, userID int64) (func(), error) {
	purchaseLock := lock.NewPurchaseLock(l.client, userID)
	if err := purchaseLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
		return nil, err
	}
	return func() { purchaseLock.Unlock(ctx) }, nil
}

type ShopService struct {
	db           txRunner
	cfg          *config.Config
	purchaseRepo purchaseStore
	outboxRepo   outboxStore
	ledger       *LedgerService
	locker       purchaseLocker
}

func NewShopService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *ShopService {
	return &ShopService{
		db:           db,
		cfg:          cfg,
		purchaseRepo: repository.NewPurchaseRepository(db),
		outboxRepo:   repository.NewOutboxRepository(db),
		ledger:       NewLedgerService(db),
		locker:       &redisPurchaseLocker{client: redisClient},
	}
}

// ListProducts 商品列表，纯读操作
func (s *ShopService) ListProducts(category, search string) []model.Product {
	return model.FilterProducts(category, search)
}

type PurchaseResult struct {
	ReceiptNo   string `json:"receipt_no"`
	ProductName string `json:"product_name"`
	Price       int64  `json:"price"`
	NewBalance  int64  `json:"new_balance"`
	Message     string `json:"message"`
}

// Purchase 购买商品
//
// 流程：
// 1. 解析商品（静态目录）
// 2. 余额预检 —— 只是常见情况下的快速失败，预检通过不代表一定能扣成功
// 3. 按用户加锁，挡掉同一用户的并发重复提交
// 4. 事务内原子扣款 + 落小票 + 落流水 + 写发件箱
//
// 【关键点】真正防超扣的是扣款那条条件更新，预检和锁都只是优化。
// 预检之后余额被并发请求扣走时，扣款会失败并整体回滚，绝不会出现
// 没扣到钱却多了一张小票
func (s *ShopService) Purchase(ctx context.Context, userID int64, productID int64) (*PurchaseResult, error) {
	product := model.FindProduct(productID)
	if product == nil {
		return nil, ErrProductNotFound
	}

	// 余额预检
	balance, err := s.ledger.BalanceOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	if balance < product.Price {
		return nil, repository.ErrBalanceNotEnough
	}

	unlock, err := s.locker.Lock(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("系统繁忙，请稍后重试: %w", err)
	}
	defer unlock()

	receiptNo := idgen.GenerateReceiptNo()
	result := &PurchaseResult{
		ReceiptNo:   receiptNo,
		ProductName: product.Name,
		Price:       product.Price,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		newBalance, err := s.ledger.Debit(ctx, tx, userID, product.Price,
			model.TransactionTypePurchase, receiptNo,
			fmt.Sprintf("商城购买-%s", product.Name))
		if err != nil {
			if errors.Is(err, repository.ErrBalanceNotEnough) {
				// 预检通过但扣款失败：输掉了和并发请求的竞争
				return repository.ErrCoinUpdateFailed
			}
			return err
		}
		result.NewBalance = newBalance

		purchase := &model.Purchase{
			ReceiptNo:   receiptNo,
			UserID:      userID,
			ProductID:   product.ID,
			ProductName: product.Name,
			Price:       product.Price,
		}
		if err := s.purchaseRepo.Create(ctx, tx, purchase); err != nil {
			return fmt.Errorf("记录购买小票失败: %w", err)
		}

		msgPayload := map[string]interface{}{
			"receipt_no":   receiptNo,
			"user_id":      userID,
			"product_id":   product.ID,
			"product_name": product.Name,
			"price":        product.Price,
			"new_balance":  newBalance,
			"purchased_at": time.Now().Format(time.RFC3339),
		}
		payloadBytes, _ := json.Marshal(msgPayload)

		outboxMsg := &model.OutboxMessage{
			MessageKey: receiptNo,
			Topic:      s.cfg.Kafka.Topic.PurchaseResult,
			Payload:    string(payloadBytes),
			Status:     model.OutboxStatusPending,
		}
		if err := s.outboxRepo.Create(ctx, tx, outboxMsg); err != nil {
			return fmt.Errorf("写入消息失败: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	result.Message = fmt.Sprintf("%s 购买完成", product.Name)

	log.Printf("购买成功: receiptNo=%s, userID=%d, productID=%d, price=%d",
		receiptNo, userID, product.ID, product.Price)

	return result, nil
}

// History 自己的购买历史，最新的在前
func (s *ShopService) History(ctx context.Context, userID int64, page, pageSize int) ([]*model.Purchase, int64, error) {
	return s.purchaseRepo.ListByUserID(ctx, userID, page, pageSize)
}

type ClaimResult struct {
	Unlocked bool   `json:"unlocked"`
	Count    int64  `json:"count"`
	Required int64  `json:"required"`
	Artifact string `json:"artifact,omitempty"`
	Message  string `json:"message"`
}

// ClaimReward 解锁成就
//
// 统计指定商品的购买小票数量，达到阈值就按配置顺序读取奖励文件，
// 取第一个可读的返回。次数不够是正常业务结果，不是错误；
// 达标却一个文件都读不到才算失败
func (s *ShopService) ClaimReward(ctx context.Context, userID int64) (*ClaimResult, error) {
	productID := s.cfg.Business.RewardProductID
	required := s.cfg.Business.RewardThreshold

	count, err := s.purchaseRepo.CountByUserAndProduct(ctx, userID, productID)
	if err != nil {
		return nil, err
	}

	if count < required {
		return &ClaimResult{
			Unlocked: false,
			Count:    count,
			Required: required,
			Message:  fmt.Sprintf("还差一点！当前 %d 张 / 需要 %d 张", count, required),
		}, nil
	}

	for _, path := range s.cfg.Business.RewardArtifactPath {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		return &ClaimResult{
			Unlocked: true,
			Count:    count,
			Required: required,
			Artifact: strings.TrimSpace(string(data)),
			Message:  fmt.Sprintf("恭喜！已集齐 %d 张", count),
		}, nil
	}

	return nil, ErrRewardMissing
}
