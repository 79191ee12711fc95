package model

import (
	"time"
)

// ============================================================================
// 硬币流水
// ============================================================================

const (
	TransactionTypeReward   = "REWARD"   // 任务奖励（入账）
	TransactionTypePurchase = "PURCHASE" // 商城消费（出账）
	TransactionTypeGrant    = "GRANT"    // 管理员发放（入账）
)

// CoinTransaction 硬币流水表
// 记录每一笔余额变动，是对账和补偿的核心依据
//
// 【重要】流水表设计原则：
// 1. 只追加，不修改，不删除 —— 保证审计可追溯
// 2. 每笔流水必须关联业务编号（提交编号/小票编号）—— 便于对账和防止重复发奖
// 3. 记录交易前后余额 —— 便于校验余额一致性
type CoinTransaction struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	TransactionNo string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"transaction_no"` // 流水号（全局唯一）
	UserID        int64     `gorm:"index;not null" json:"user_id"`
	RefNo         string    `gorm:"type:varchar(64);index;not null" json:"ref_no"` // 关联业务编号（提交编号或小票编号）
	Amount        int64     `gorm:"not null" json:"amount"`                        // 金额（正数入账，负数出账）
	Type          string    `gorm:"type:varchar(20);not null" json:"type"`
	BalanceBefore int64     `gorm:"not null" json:"balance_before"`
	BalanceAfter  int64     `gorm:"not null" json:"balance_after"`
	Remark        string    `gorm:"type:varchar(256)" json:"remark"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (CoinTransaction) TableName() string {
	return "coin_transaction"
}
