package repository

import (
	"context"
	"errors"

	"knightboard/internal/model"

	"gorm.io/gorm"
)

var (
	ErrSubmissionNotFound = errors.New("提交记录不存在")
	ErrInvalidVerdict     = errors.New("评审结论不合法")
	ErrAlreadyGraded      = errors.New("该提交已完成评审，不能重复评审")
)

type SubmissionRepository struct {
	db *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

func (r *SubmissionRepository) Create(ctx context.Context, tx *gorm.DB, submission *model.Submission) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(submission).Error
}

func (r *SubmissionRepository) GetByNo(ctx context.Context, submissionNo string) (*model.Submission, error) {
	var submission model.Submission
	err := r.db.WithContext(ctx).Where("submission_no = ?", submissionNo).First(&submission).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}
	return &submission, nil
}

// Grade 落终态
//
// 【关键点】条件更新只允许 pending 状态被改写：
//
//	UPDATE submission SET status = ? WHERE submission_no = ? AND status = 'pending'
//
// RowsAffected = 0 说明提交不存在或已经是终态。终态不允许二次评审，
// 否则 success 的奖励会被重复发放
func (r *SubmissionRepository) Grade(ctx context.Context, tx *gorm.DB, submissionNo string, verdict string) error {
	if !model.IsValidVerdict(verdict) {
		return ErrInvalidVerdict
	}
	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).
		Model(&model.Submission{}).
		Where("submission_no = ? AND status = ?", submissionNo, model.SubmissionStatusPending).
		Update("status", verdict)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		if _, err := r.GetByNo(ctx, submissionNo); err != nil {
			return err
		}
		return ErrAlreadyGraded
	}

	return nil
}

// ListByMission 某任务的全部提交，最新的在前（骑士评审用）
func (r *SubmissionRepository) ListByMission(ctx context.Context, missionID int64) ([]*model.Submission, error) {
	var submissions []*model.Submission
	err := r.db.WithContext(ctx).
		Where("mission_id = ?", missionID).
		Order("created_at DESC").
		Find(&submissions).Error
	return submissions, err
}

// ListAll 全量提交记录，最新的在前（骑士总览用）
func (r *SubmissionRepository) ListAll(ctx context.Context) ([]*model.Submission, error) {
	var submissions []*model.Submission
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&submissions).Error
	return submissions, err
}

// LatestStatusByUser 查询某用户在一批任务下最近一次提交的状态
// 返回 missionID -> status 映射，没提交过的任务不在映射里
func (r *SubmissionRepository) LatestStatusByUser(ctx context.Context, userID int64, missionIDs []int64) (map[int64]string, error) {
	statuses := make(map[int64]string)
	if len(missionIDs) == 0 {
		return statuses, nil
	}

	var submissions []*model.Submission
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND mission_id IN ?", userID, missionIDs).
		Order("created_at DESC").
		Find(&submissions).Error
	if err != nil {
		return nil, err
	}

	// 按创建时间倒序遍历，首次出现的就是该任务的最近提交
	for _, s := range submissions {
		if _, ok := statuses[s.MissionID]; !ok {
			statuses[s.MissionID] = s.Status
		}
	}
	return statuses, nil
}

// ListSuccessWithoutReward 查询已判成功但找不到对应奖励流水的提交
// 以 submission_no = coin_transaction.ref_no 为对账键，给补偿任务使用
func (r *SubmissionRepository) ListSuccessWithoutReward(ctx context.Context, limit int) ([]*model.Submission, error) {
	var submissions []*model.Submission
	err := r.db.WithContext(ctx).
		Where("status = ?", model.SubmissionStatusSuccess).
		Where("submission_no NOT IN (?)",
			r.db.Model(&model.CoinTransaction{}).Select("ref_no").Where("type = ?", model.TransactionTypeReward)).
		Order("created_at ASC").
		Limit(limit).
		Find(&submissions).Error
	return submissions, err
}

func (r *SubmissionRepository) DeleteAll(ctx context.Context, tx *gorm.DB) (int64, error) {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).Where("1 = 1").Delete(&model.Submission{})
	return result.RowsAffected, result.Error
}
