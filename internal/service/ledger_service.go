package service

import (
	"context"
	"database/sql"
	"errors"

	"knightboard/internal/model"
	"knightboard/internal/repository"
	"knightboard/pkg/idgen"

	"gorm.io/gorm"
)

var (
	ErrInvalidAmount = errors.New("金额必须为非负数")
)

// ============================================================================
// Ledger：硬币账本
// ============================================================================
//
// 所有余额变动的唯一入口。其他服务（评审发奖、商城扣款、管理员发放）
// 一律通过 Credit / Debit 操作余额，不允许绕过账本直接改 account 表
//
// 【不变量】任何调用方、任何并发交错下，余额都不会被观察到负数。
// 依据是 AccountRepository.Deduct 的单条条件更新语句，而不是应用层锁

// accountStore / transactionStore 抽出接口是为了让账本逻辑可以
// 脱离 MySQL 做并发正确性测试
type accountStore interface {
	GetByUserID(ctx context.Context, userID int64) (*model.Account, error)
	GetByUserIDForUpdate(ctx context.Context, tx *gorm.DB, userID int64) (*model.Account, error)
	Deduct(ctx context.Context, tx *gorm.DB, userID int64, amount int64) error
	Increase(ctx context.Context, tx *gorm.DB, userID int64, amount int64) error
}

type transactionStore interface {
	Create(ctx context.Context, tx *gorm.DB, trans *model.CoinTransaction) error
	GetByRefNo(ctx context.Context, refNo string) (*model.CoinTransaction, error)
}

// txRunner 事务执行器，*gorm.DB 天然满足
type txRunner interface {
	Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error
}

type LedgerService struct {
	accountRepo     accountStore
	transactionRepo transactionStore
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{
		accountRepo:     repository.NewAccountRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
	}
}

// Credit 入账
// 只要账户存在就必定成功；金额、类型、业务编号一并落流水
// tx 传 nil 时单独成一笔，传事务句柄时与调用方的其他写入同生共死
func (s *LedgerService) Credit(ctx context.Context, tx *gorm.DB, userID int64, amount int64, txType, refNo, remark string) (int64, error) {
	if amount < 0 {
		return 0, ErrInvalidAmount
	}

	// 行锁读出变动前余额，保证流水里的 before/after 真实可对账
	account, err := s.accountRepo.GetByUserIDForUpdate(ctx, tx, userID)
	if err != nil {
		return 0, err
	}

	if err := s.accountRepo.Increase(ctx, tx, userID, amount); err != nil {
		return 0, err
	}

	trans := &model.CoinTransaction{
		TransactionNo: idgen.GenerateTransactionNo(),
		UserID:        userID,
		RefNo:         refNo,
		Amount:        amount,
		Type:          txType,
		BalanceBefore: account.Balance,
		BalanceAfter:  account.Balance + amount,
		Remark:        remark,
	}
	if err := s.transactionRepo.Create(ctx, tx, trans); err != nil {
		return 0, err
	}

	return account.Balance + amount, nil
}

// Debit 出账
//
// 返回扣减后的余额。余额不足时返回 ErrBalanceNotEnough 且余额分文不动；
// "检查 + 扣减"由仓储层的条件更新一步完成，这里不做任何两步式判断
func (s *LedgerService) Debit(ctx context.Context, tx *gorm.DB, userID int64, amount int64, txType, refNo, remark string) (int64, error) {
	if amount < 0 {
		return 0, ErrInvalidAmount
	}

	account, err := s.accountRepo.GetByUserIDForUpdate(ctx, tx, userID)
	if err != nil {
		return 0, err
	}

	if err := s.accountRepo.Deduct(ctx, tx, userID, amount); err != nil {
		return 0, err
	}

	trans := &model.CoinTransaction{
		TransactionNo: idgen.GenerateTransactionNo(),
		UserID:        userID,
		RefNo:         refNo,
		Amount:        -amount,
		Type:          txType,
		BalanceBefore: account.Balance,
		BalanceAfter:  account.Balance - amount,
		Remark:        remark,
	}
	if err := s.transactionRepo.Create(ctx, tx, trans); err != nil {
		return 0, err
	}

	return account.Balance - amount, nil
}

// BalanceOf 查询当前余额
func (s *LedgerService) BalanceOf(ctx context.Context, userID int64) (int64, error) {
	account, err := s.accountRepo.GetByUserID(ctx, userID)
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}

// HasTransaction 某业务编号是否已有流水（补偿任务的幂等判断）
func (s *LedgerService) HasTransaction(ctx context.Context, refNo string) (bool, error) {
	trans, err := s.transactionRepo.GetByRefNo(ctx, refNo)
	if err != nil {
		return false, err
	}
	return trans != nil, nil
}
