package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"knightboard/internal/config"
	"knightboard/internal/model"
	"knightboard/internal/repository"
	"knightboard/pkg/idgen"

	"gorm.io/gorm"
)

// ============================================================================
// 任务与提交流程
// ============================================================================

type missionStore interface {
	Create(ctx context.Context, mission *model.Mission) error
	GetByID(ctx context.Context, missionID int64) (*model.Mission, error)
	List(ctx context.Context, page, pageSize int) ([]*model.Mission, int64, error)
	DeleteAll(ctx context.Context, tx *gorm.DB) (int64, error)
}

type submissionStore interface {
	Create(ctx context.Context, tx *gorm.DB, submission *model.Submission) error
	GetByNo(ctx context.Context, submissionNo string) (*model.Submission, error)
	Grade(ctx context.Context, tx *gorm.DB, submissionNo string, verdict string) error
	ListByMission(ctx context.Context, missionID int64) ([]*model.Submission, error)
	ListAll(ctx context.Context) ([]*model.Submission, error)
	LatestStatusByUser(ctx context.Context, userID int64, missionIDs []int64) (map[int64]string, error)
	DeleteAll(ctx context.Context, tx *gorm.DB) (int64, error)
}

type outboxStore interface {
	Create(ctx context.Context, tx *gorm.DB, msg *model.OutboxMessage) error
}

type MissionService struct {
	db             txRunner
	cfg            *config.Config
	missionRepo    missionStore
	submissionRepo submissionStore
	outboxRepo     outboxStore
	ledger         *LedgerService
}

func NewMissionService(db *gorm.DB, cfg *config.Config) *MissionService {
	return &MissionService{
		db:             db,
		cfg:            cfg,
		missionRepo:    repository.NewMissionRepository(db),
		submissionRepo: repository.NewSubmissionRepository(db),
		outboxRepo:     repository.NewOutboxRepository(db),
		ledger:         NewLedgerService(db),
	}
}

// CreateMission 发布任务（骑士专用，权限在路由层把关）
func (s *MissionService) CreateMission(ctx context.Context, creatorID int64, title, shortDesc, detailDesc string, coinsReward int64) (*model.Mission, error) {
	if coinsReward < 0 {
		return nil, ErrInvalidAmount
	}

	mission := &model.Mission{
		Title:       title,
		ShortDesc:   shortDesc,
		DetailDesc:  detailDesc,
		CoinsReward: coinsReward,
		CreatedBy:   creatorID,
	}
	if err := s.missionRepo.Create(ctx, mission); err != nil {
		return nil, fmt.Errorf("创建任务失败: %w", err)
	}
	return mission, nil
}

// MissionView 任务视图：带上当前用户的提交情况
type MissionView struct {
	*model.Mission
	HasSubmitted bool   `json:"has_submitted"`
	LastStatus   string `json:"last_status,omitempty"` // 最近一次提交的状态，没提交过为空
}

// ListMissions 任务列表，最新发布在前
// userID 为 0 表示未登录，提交情况按默认值返回
func (s *MissionService) ListMissions(ctx context.Context, userID int64, page, pageSize int) ([]*MissionView, int64, error) {
	missions, total, err := s.missionRepo.List(ctx, page, pageSize)
	if err != nil {
		return nil, 0, err
	}

	views := make([]*MissionView, 0, len(missions))
	for _, m := range missions {
		views = append(views, &MissionView{Mission: m})
	}

	if userID != 0 && len(missions) > 0 {
		ids := make([]int64, 0, len(missions))
		for _, m := range missions {
			ids = append(ids, m.ID)
		}
		statuses, err := s.submissionRepo.LatestStatusByUser(ctx, userID, ids)
		if err != nil {
			return nil, 0, err
		}
		for _, v := range views {
			if status, ok := statuses[v.ID]; ok {
				v.HasSubmitted = true
				v.LastStatus = status
			}
		}
	}

	return views, total, nil
}

// GetMission 任务详情，带当前用户的提交情况
func (s *MissionService) GetMission(ctx context.Context, missionID, userID int64) (*MissionView, error) {
	mission, err := s.missionRepo.GetByID(ctx, missionID)
	if err != nil {
		return nil, err
	}

	view := &MissionView{Mission: mission}
	if userID != 0 {
		statuses, err := s.submissionRepo.LatestStatusByUser(ctx, userID, []int64{missionID})
		if err != nil {
			return nil, err
		}
		if status, ok := statuses[missionID]; ok {
			view.HasSubmitted = true
			view.LastStatus = status
		}
	}
	return view, nil
}

// Submit 提交任务
// 新提交一律落在 pending 状态，对余额没有任何影响；
// 同一用户可以对同一任务反复提交，评审只认最近一次的状态
func (s *MissionService) Submit(ctx context.Context, missionID, userID int64, attachmentRef, comment string) (*model.Submission, error) {
	if _, err := s.missionRepo.GetByID(ctx, missionID); err != nil {
		return nil, err
	}

	submission := &model.Submission{
		SubmissionNo:  idgen.GenerateSubmissionNo(),
		MissionID:     missionID,
		UserID:        userID,
		AttachmentRef: attachmentRef,
		Comment:       comment,
		Status:        model.SubmissionStatusPending,
	}
	if err := s.submissionRepo.Create(ctx, nil, submission); err != nil {
		return nil, fmt.Errorf("保存提交失败: %w", err)
	}
	return submission, nil
}

type GradeResult struct {
	SubmissionNo   string `json:"submission_no"`
	Status         string `json:"status"`
	CreditedAmount int64  `json:"credited_amount"` // success 时为任务奖励，其余为 0
}

// Grade 评审提交
//
// 【关键点】状态落终态和奖励入账放在同一个数据库事务里：
// 要么"判成功 + 发奖 + 流水 + 发件箱"全部生效，要么全部回滚，
// 不存在判了成功却没发奖的中间态。补偿任务只是针对历史脏数据的兜底
//
// 终态不允许二次评审（条件更新保证），堵死重复发奖
func (s *MissionService) Grade(ctx context.Context, submissionNo, verdict string) (*GradeResult, error) {
	if !model.IsValidVerdict(verdict) {
		return nil, repository.ErrInvalidVerdict
	}

	submission, err := s.submissionRepo.GetByNo(ctx, submissionNo)
	if err != nil {
		return nil, err
	}

	mission, err := s.missionRepo.GetByID(ctx, submission.MissionID)
	if err != nil {
		return nil, err
	}

	result := &GradeResult{
		SubmissionNo: submissionNo,
		Status:       verdict,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.submissionRepo.Grade(ctx, tx, submissionNo, verdict); err != nil {
			return err
		}

		if verdict != model.SubmissionStatusSuccess {
			return nil
		}

		balanceAfter, err := s.ledger.Credit(ctx, tx, submission.UserID, mission.CoinsReward,
			model.TransactionTypeReward, submissionNo,
			fmt.Sprintf("任务奖励-%s", mission.Title))
		if err != nil {
			return fmt.Errorf("发放任务奖励失败: %w", err)
		}
		result.CreditedAmount = mission.CoinsReward

		msgPayload := map[string]interface{}{
			"submission_no": submissionNo,
			"mission_id":    mission.ID,
			"user_id":       submission.UserID,
			"verdict":       verdict,
			"reward":        mission.CoinsReward,
			"balance_after": balanceAfter,
			"graded_at":     time.Now().Format(time.RFC3339),
		}
		payloadBytes, _ := json.Marshal(msgPayload)

		outboxMsg := &model.OutboxMessage{
			MessageKey: submissionNo,
			Topic:      s.cfg.Kafka.Topic.GradeResult,
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

	log.Printf("评审完成: submissionNo=%s, verdict=%s, reward=%d",
		submissionNo, verdict, result.CreditedAmount)

	return result, nil
}

// ListForMission 某任务的提交名单（骑士专用）
func (s *MissionService) ListForMission(ctx context.Context, missionID int64) ([]*model.Submission, error) {
	if _, err := s.missionRepo.GetByID(ctx, missionID); err != nil {
		return nil, err
	}
	return s.submissionRepo.ListByMission(ctx, missionID)
}

// ListAllSubmissions 全量提交记录（骑士专用）
func (s *MissionService) ListAllSubmissions(ctx context.Context) ([]*model.Submission, error) {
	return s.submissionRepo.ListAll(ctx)
}

type PurgeResult struct {
	DeletedSubmissions int64 `json:"deleted_submissions"`
	DeletedMissions    int64 `json:"deleted_missions"`
}

// PurgeSubmissions 清空提交记录（骑士专用）
// includeMissions 为 true 时连任务一起清掉；整个清理是一个事务，
// 任何一步失败就整体回滚，不会出现删了一半的状态
func (s *MissionService) PurgeSubmissions(ctx context.Context, includeMissions bool) (*PurgeResult, error) {
	result := &PurgeResult{}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		deleted, err := s.submissionRepo.DeleteAll(ctx, tx)
		if err != nil {
			return fmt.Errorf("清理提交记录失败: %w", err)
		}
		result.DeletedSubmissions = deleted

		if includeMissions {
			deleted, err := s.missionRepo.DeleteAll(ctx, tx)
			if err != nil {
				return fmt.Errorf("清理任务失败: %w", err)
			}
			result.DeletedMissions = deleted
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	log.Printf("清理完成: submissions=%d, missions=%d",
		result.DeletedSubmissions, result.DeletedMissions)

	return result, nil
}
