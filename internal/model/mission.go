package model

import (
	"time"
)

// ============================================================================
// 任务与提交实体
// ============================================================================

// Mission 任务表
// 由骑士（管理员）发布，发布后不可修改；完成任务是用户获得硬币的唯一正常途径
type Mission struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Title       string    `gorm:"type:varchar(128);not null" json:"title"`
	ShortDesc   string    `gorm:"type:varchar(256)" json:"short_desc"`
	DetailDesc  string    `gorm:"type:text" json:"detail_desc"`
	CoinsReward int64     `gorm:"not null;default:0" json:"coins_reward"` // 完成奖励（硬币数），非负
	CreatedBy   int64     `gorm:"index;not null" json:"created_by"`       // 发布者 UserID
	CreatedAt   time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (Mission) TableName() string {
	return "mission"
}

// 提交状态常量
//
// 状态机非常简单，但必须严格：
//
//	pending ──> success（评审通过，发放奖励）
//	pending ──> fail（评审不通过，无任何余额影响）
//
// success / fail 均为终态，终态之后不允许再次评审（防止重复发奖）
const (
	SubmissionStatusPending = "pending"
	SubmissionStatusSuccess = "success"
	SubmissionStatusFail    = "fail"
)

// IsValidVerdict 评审结论是否合法
func IsValidVerdict(verdict string) bool {
	return verdict == SubmissionStatusSuccess || verdict == SubmissionStatusFail
}

// IsTerminalStatus 是否为终态
func IsTerminalStatus(status string) bool {
	return status == SubmissionStatusSuccess || status == SubmissionStatusFail
}

// Submission 任务提交表
// 一个用户对同一任务可以多次提交；"当前状态"取该用户最近一次提交的状态
type Submission struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SubmissionNo  string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"submission_no"` // 提交编号（全局唯一，奖励流水以它为关联键）
	MissionID     int64     `gorm:"index;not null" json:"mission_id"`
	UserID        int64     `gorm:"index;not null" json:"user_id"`          // 提交者 UserID
	AttachmentRef string    `gorm:"type:varchar(256)" json:"attachment_ref"` // 附件引用，由上游上传服务生成，本系统不解析
	Comment       string    `gorm:"type:varchar(512)" json:"comment"`
	Status        string    `gorm:"type:varchar(16);index;not null;default:pending" json:"status"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (Submission) TableName() string {
	return "submission"
}
