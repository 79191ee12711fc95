package repository

import (
	"context"
	"errors"

	"knightboard/internal/model"

	"gorm.io/gorm"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *gorm.DB, trans *model.CoinTransaction) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(trans).Error
}

// GetByRefNo 按业务编号查流水
// 评审发奖以提交编号为键、购买扣款以小票编号为键，补偿任务靠它判断
// 某笔业务是否已经动过账
func (r *TransactionRepository) GetByRefNo(ctx context.Context, refNo string) (*model.CoinTransaction, error) {
	var trans model.CoinTransaction
	err := r.db.WithContext(ctx).Where("ref_no = ?", refNo).First(&trans).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &trans, nil
}

func (r *TransactionRepository) ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.CoinTransaction, int64, error) {
	var transactions []*model.CoinTransaction
	var total int64

	query := r.db.WithContext(ctx).Model(&model.CoinTransaction{}).Where("user_id = ?", userID)

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&transactions).Error

	return transactions, total, err
}
