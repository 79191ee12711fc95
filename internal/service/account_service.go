package service

import (
	"context"
	"fmt"
	"log"

	"knightboard/internal/model"
	"knightboard/internal/repository"
	"knightboard/pkg/idgen"

	"gorm.io/gorm"
)

type AccountService struct {
	accountRepo     *repository.AccountRepository
	transactionRepo *repository.TransactionRepository
	ledger          *LedgerService
}

func NewAccountService(db *gorm.DB) *AccountService {
	return &AccountService{
		accountRepo:     repository.NewAccountRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
		ledger:          NewLedgerService(db),
	}
}

// GetAccount 查询账户信息（自己的状态页用）
func (s *AccountService) GetAccount(ctx context.Context, userID int64) (*model.Account, error) {
	return s.accountRepo.GetByUserID(ctx, userID)
}

// GetBalance 查询当前硬币余额
func (s *AccountService) GetBalance(ctx context.Context, userID int64) (int64, error) {
	return s.ledger.BalanceOf(ctx, userID)
}

// ListTransactions 自己的硬币流水，最新的在前
func (s *AccountService) ListTransactions(ctx context.Context, userID int64, page, pageSize int) ([]*model.CoinTransaction, int64, error) {
	return s.transactionRepo.ListByUserID(ctx, userID, page, pageSize)
}

// Grant 管理员发放硬币（骑士专用，权限在路由层把关）
// 评审发奖之外唯一的入账通道，同样走账本落流水
func (s *AccountService) Grant(ctx context.Context, targetUserID int64, amount int64, remark string) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	if remark == "" {
		remark = "管理员发放"
	}

	newBalance, err := s.ledger.Credit(ctx, nil, targetUserID, amount,
		model.TransactionTypeGrant, idgen.GenerateGrantNo(), remark)
	if err != nil {
		return 0, fmt.Errorf("发放硬币失败: %w", err)
	}

	log.Printf("发放硬币: userID=%d, amount=%d", targetUserID, amount)
	return newBalance, nil
}
