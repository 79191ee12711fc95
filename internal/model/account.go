package model

import (
	"time"
)

const (
	RoleUser   = "user"   // 普通用户
	RoleKnight = "knight" // 骑士（管理员），可以发布任务、评审、发放硬币
)

// Account 用户账户表
// 记录用户的身份、角色和硬币余额，余额是整个系统的核心数据
// 余额只能通过 Ledger 的原子操作变更，任何时刻不允许为负
type Account struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       int64     `gorm:"uniqueIndex;not null" json:"user_id"` // 用户ID，对外的主身份标识
	Email        string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"type:varchar(128);not null" json:"-"` // bcrypt 哈希，永不下发
	Nickname     string    `gorm:"type:varchar(64);not null" json:"nickname"`
	Role         string    `gorm:"type:varchar(16);not null;default:user" json:"role"` // user / knight
	Balance      int64     `gorm:"not null;default:0" json:"balance"`                  // 硬币余额
	Version      int       `gorm:"not null;default:0" json:"version"`                  // 乐观锁版本号
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Account) TableName() string {
	return "account"
}

// IsKnight 是否为骑士（管理员）
func (a *Account) IsKnight() bool {
	return a.Role == RoleKnight
}
