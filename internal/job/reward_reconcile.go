package job

import (
	"context"
	"fmt"
	"log"
	"time"

	"knightboard/internal/config"
	"knightboard/internal/model"
	"knightboard/internal/repository"
	"knightboard/internal/service"

	"gorm.io/gorm"
)

// RewardReconcileJob 奖励对账补偿任务
//
// 正常路径下"判成功 + 发奖"是同一个事务，不会产生缺口；
// 这个任务兜底的是历史脏数据和极端故障后的库（比如人工改过状态）。
// 对账键：submission_no = coin_transaction.ref_no（type = REWARD）。
// 判成功却查不到奖励流水的提交，补发一笔并落流水
type RewardReconcileJob struct {
	db             *gorm.DB
	submissionRepo *repository.SubmissionRepository
	missionRepo    *repository.MissionRepository
	ledger         *service.LedgerService
	cfg            *config.Config
	stopCh         chan struct{}
	interval       time.Duration
	batchSize      int
}

func NewRewardReconcileJob(db *gorm.DB, cfg *config.Config) *RewardReconcileJob {
	return &RewardReconcileJob{
		db:             db,
		submissionRepo: repository.NewSubmissionRepository(db),
		missionRepo:    repository.NewMissionRepository(db),
		ledger:         service.NewLedgerService(db),
		cfg:            cfg,
		stopCh:         make(chan struct{}),
		interval:       30 * time.Second,
		batchSize:      50,
	}
}

func (j *RewardReconcileJob) Start(ctx context.Context) {
	log.Println("[RewardReconcileJob] 奖励对账任务启动")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[RewardReconcileJob] 收到停止信号，任务退出")
			return
		case <-j.stopCh:
			log.Println("[RewardReconcileJob] 任务停止")
			return
		case <-ticker.C:
			j.reconcile(ctx)
		}
	}
}

func (j *RewardReconcileJob) Stop() {
	close(j.stopCh)
}

func (j *RewardReconcileJob) reconcile(ctx context.Context) {
	submissions, err := j.submissionRepo.ListSuccessWithoutReward(ctx, j.batchSize)
	if err != nil {
		log.Printf("[RewardReconcileJob] 查询未发奖提交失败: %v", err)
		return
	}

	if len(submissions) == 0 {
		return
	}

	log.Printf("[RewardReconcileJob] 发现 %d 条判成功但未发奖的提交", len(submissions))

	for _, submission := range submissions {
		j.compensate(ctx, submission)
	}
}

func (j *RewardReconcileJob) compensate(ctx context.Context, submission *model.Submission) {
	mission, err := j.missionRepo.GetByID(ctx, submission.MissionID)
	if err != nil {
		log.Printf("[RewardReconcileJob] 查询任务失败: submissionNo=%s, err=%v",
			submission.SubmissionNo, err)
		return
	}

	err = j.db.Transaction(func(tx *gorm.DB) error {
		// 事务内再查一次流水，避免和上一轮补偿重复入账
		exists, err := j.ledger.HasTransaction(ctx, submission.SubmissionNo)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}

		_, err = j.ledger.Credit(ctx, tx, submission.UserID, mission.CoinsReward,
			model.TransactionTypeReward, submission.SubmissionNo,
			fmt.Sprintf("任务奖励补发-%s", mission.Title))
		return err
	})

	if err != nil {
		log.Printf("[RewardReconcileJob] 补发奖励失败: submissionNo=%s, err=%v",
			submission.SubmissionNo, err)
		return
	}

	log.Printf("[RewardReconcileJob] 补发奖励成功: submissionNo=%s, userID=%d, amount=%d",
		submission.SubmissionNo, submission.UserID, mission.CoinsReward)
}
