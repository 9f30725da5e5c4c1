package iam

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"gorm.io/gorm"

	"raggate/internal/model"
	"raggate/internal/model/system"
	sysrepo "raggate/internal/repo/mysql/system"
	"raggate/internal/service/crud"
)

// inviteAlphabet 邀请码字符集：大写字母与数字
const inviteAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// 邀请码长度限制
const (
	MinInviteCodeLength     = 8
	MaxInviteCodeLength     = 64
	DefaultInviteCodeLength = 12
	maxInviteBatch          = 500
)

// InviteCodeService 邀请码服务
type InviteCodeService struct {
	*crud.Service[model.InviteCode]
	codes         *sysrepo.InviteCodeRepository
	defaultLength int
}

// NewInviteCodeService 创建邀请码服务
func NewInviteCodeService(db *gorm.DB, codes *sysrepo.InviteCodeRepository, defaultLength int) (*InviteCodeService, error) {
	if codes == nil {
		return nil, fmt.Errorf("invite code service requires a repository")
	}
	base, err := crud.New(db, codes.Repository)
	if err != nil {
		return nil, err
	}
	if defaultLength < MinInviteCodeLength || defaultLength > MaxInviteCodeLength {
		defaultLength = DefaultInviteCodeLength
	}
	return &InviteCodeService{Service: base, codes: codes, defaultLength: defaultLength}, nil
}

// GenerateCode 生成单个随机邀请码
func GenerateCode(length int) (string, error) {
	max := big.NewInt(int64(len(inviteAlphabet)))
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate invite code: %w", err)
		}
		buf[i] = inviteAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// CreateInviteCodes 批量生成邀请码，已存在的码跳过重新生成，一次提交
func (s *InviteCodeService) CreateInviteCodes(ctx context.Context, count, length int) ([]*model.InviteCode, error) {
	if count < 1 || count > maxInviteBatch {
		return nil, system.NewServiceValidationError(
			fmt.Sprintf("count must be between 1 and %d", maxInviteBatch), map[string]interface{}{"field": "count"})
	}
	if length == 0 {
		length = s.defaultLength
	}
	if length < MinInviteCodeLength || length > MaxInviteCodeLength {
		return nil, system.NewServiceValidationError(
			fmt.Sprintf("length must be between %d and %d", MinInviteCodeLength, MaxInviteCodeLength),
			map[string]interface{}{"field": "length"})
	}

	var created []*model.InviteCode
	err := crud.WithTx(ctx, s.DB(ctx), func(ctx context.Context) error {
		db := s.DB(ctx)
		seen := make(map[string]struct{}, count)
		for attempts := 0; len(created) < count; attempts++ {
			if attempts > count*10 {
				return fmt.Errorf("unable to generate %d unique invite codes", count)
			}

			need := count - len(created)
			batch := make([]string, 0, need)
			for len(batch) < need {
				code, err := GenerateCode(length)
				if err != nil {
					return err
				}
				if _, dup := seen[code]; dup {
					continue
				}
				seen[code] = struct{}{}
				batch = append(batch, code)
			}

			existing, err := s.codes.ExistingCodes(ctx, db, batch)
			if err != nil {
				return err
			}
			for _, code := range batch {
				if _, ok := existing[code]; ok {
					continue
				}
				created = append(created, &model.InviteCode{Code: code})
			}
		}
		return s.codes.BulkCreate(ctx, db, created)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// CheckUsable 邀请码存在且未被使用，否则返回冲突错误
func (s *InviteCodeService) CheckUsable(ctx context.Context, code string) error {
	invite, err := s.codes.GetOrNone(ctx, s.DB(ctx), "code", code)
	if err != nil {
		return err
	}
	if invite == nil {
		return system.NewConflictError("邀请码不存在", map[string]interface{}{"field": "invite_code"})
	}
	if invite.Used {
		return system.NewConflictError("邀请码已被使用", map[string]interface{}{"field": "invite_code"})
	}
	return nil
}

// Consume 在 ctx 的事务中把邀请码标记为已使用，条件更新保证只成功一次
func (s *InviteCodeService) Consume(ctx context.Context, code string, userID uint) error {
	if err := s.CheckUsable(ctx, code); err != nil {
		return err
	}
	ok, err := s.codes.MarkUsed(ctx, s.DB(ctx), code, userID)
	if err != nil {
		return err
	}
	if !ok {
		return system.NewConflictError("邀请码已被使用", map[string]interface{}{"field": "invite_code"})
	}
	return nil
}
