package repository

import (
	"context"
	"errors"

	"knightboard/internal/model"

	"gorm.io/gorm"
)

var (
	ErrMissionNotFound = errors.New("任务不存在")
)

type MissionRepository struct {
	db *gorm.DB
}

func NewMissionRepository(db *gorm.DB) *MissionRepository {
	return &MissionRepository{db: db}
}

func (r *MissionRepository) Create(ctx context.Context, mission *model.Mission) error {
	return r.db.WithContext(ctx).Create(mission).Error
}

func (r *MissionRepository) GetByID(ctx context.Context, missionID int64) (*model.Mission, error) {
	var mission model.Mission
	err := r.db.WithContext(ctx).Where("id = ?", missionID).First(&mission).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMissionNotFound
		}
		return nil, err
	}
	return &mission, nil
}

func (r *MissionRepository) List(ctx context.Context, page, pageSize int) ([]*model.Mission, int64, error) {
	var missions []*model.Mission
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Mission{})

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Order("id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&missions).Error

	return missions, total, err
}

// DeleteAll 删除全部任务，管理员清库的严格模式使用
// 必须和提交清理在同一个事务里，删了任务留着提交会产生悬挂引用
func (r *MissionRepository) DeleteAll(ctx context.Context, tx *gorm.DB) (int64, error) {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).Where("1 = 1").Delete(&model.Mission{})
	return result.RowsAffected, result.Error
}
