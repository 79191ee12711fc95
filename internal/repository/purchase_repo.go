package repository

import (
	"context"

	"knightboard/internal/model"

	"gorm.io/gorm"
)

type PurchaseRepository struct {
	db *gorm.DB
}

func NewPurchaseRepository(db *gorm.DB) *PurchaseRepository {
	return &PurchaseRepository{db: db}
}

// Create 追加购买小票
// 小票只追加不改写，商品名称和价格在这里定格
func (r *PurchaseRepository) Create(ctx context.Context, tx *gorm.DB, purchase *model.Purchase) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(purchase).Error
}

func (r *PurchaseRepository) ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.Purchase, int64, error) {
	var purchases []*model.Purchase
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Purchase{}).Where("user_id = ?", userID)

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Order("purchased_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&purchases).Error

	return purchases, total, err
}

// CountByUserAndProduct 统计某用户购买某商品的次数（解锁成就的判定依据）
func (r *PurchaseRepository) CountByUserAndProduct(ctx context.Context, userID int64, productID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Purchase{}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Count(&count).Error
	return count, err
}
