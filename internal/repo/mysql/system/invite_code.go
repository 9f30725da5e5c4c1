package system

import (
	"context"
	"time"

	"gorm.io/gorm"

	"raggate/internal/model"
	"raggate/internal/repo/mysql"
)

// InviteCodeRepository 邀请码仓库
type InviteCodeRepository struct {
	*mysql.Repository[model.InviteCode]
}

// NewInviteCodeRepository 创建邀请码仓库
func NewInviteCodeRepository(db *gorm.DB) (*InviteCodeRepository, error) {
	base, err := mysql.NewRepository[model.InviteCode](db)
	if err != nil {
		return nil, err
	}
	return &InviteCodeRepository{Repository: base}, nil
}

// ExistingCodes 返回 codes 中已存在的部分
func (r *InviteCodeRepository) ExistingCodes(ctx context.Context, db *gorm.DB, codes []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{})
	if len(codes) == 0 {
		return existing, nil
	}
	var found []string
	err := db.WithContext(ctx).Model(&model.InviteCode{}).
		Where("code IN ?", codes).
		Pluck("code", &found).Error
	if err != nil {
		return nil, err
	}
	for _, c := range found {
		existing[c] = struct{}{}
	}
	return existing, nil
}

// MarkUsed 条件更新 used=false 的记录，返回是否抢到；并发下同一邀请码只会成功一次
func (r *InviteCodeRepository) MarkUsed(ctx context.Context, db *gorm.DB, code string, userID uint) (bool, error) {
	now := time.Now()
	res := db.WithContext(ctx).Model(&model.InviteCode{}).
		Where("code = ? AND used = ?", code, false).
		Updates(map[string]interface{}{
			"used":       true,
			"used_by":    userID,
			"used_at":    now,
			"updated_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
