/**
 * 系统仓库层:用户数据访问
 * @date 2026.10.16
 * @description 在通用仓库之上补充用户特有的查询：按用户名查找、带角色权限加载、角色集合替换。
 *              只做数据访问，业务规则在服务层。
 */
package system

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"raggate/internal/model"
	"raggate/internal/repo/mysql"
)

// 用户常用预加载路径
const (
	PreloadRoles       = "Roles"
	PreloadPermissions = "Roles.Permissions"
)

// UserRepository 用户仓库
type UserRepository struct {
	*mysql.Repository[model.User]
}

// NewUserRepository 创建用户仓库
func NewUserRepository(db *gorm.DB) (*UserRepository, error) {
	base, err := mysql.NewRepository[model.User](db)
	if err != nil {
		return nil, err
	}
	return &UserRepository{Repository: base}, nil
}

// GetByUsername 按用户名查询，不存在时返回 (nil, nil)
func (r *UserRepository) GetByUsername(ctx context.Context, db *gorm.DB, username string) (*model.User, error) {
	return r.GetOrNone(ctx, db, "username", username, PreloadRoles)
}

// GetWithPermissions 加载用户及其角色、权限，不存在时返回 (nil, nil)
func (r *UserRepository) GetWithPermissions(ctx context.Context, db *gorm.DB, userID uint) (*model.User, error) {
	return r.GetOrNone(ctx, db, "id", userID, PreloadPermissions)
}

// UsernameExists 用户名是否已被占用
func (r *UserRepository) UsernameExists(ctx context.Context, db *gorm.DB, username string) (bool, error) {
	n, err := r.Count(ctx, db, mysql.Filters{"username": username})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ReplaceRoles 整体替换用户角色(先删后插)
func (r *UserRepository) ReplaceRoles(ctx context.Context, db *gorm.DB, user *model.User, roles []*model.Role) error {
	if err := db.WithContext(ctx).Model(user).Association(PreloadRoles).Replace(roles); err != nil {
		return fmt.Errorf("replace roles of user %d failed: %w", user.ID, err)
	}
	user.Roles = roles
	return nil
}

// AppendRoles 追加角色，已存在的关联不会重复写入
func (r *UserRepository) AppendRoles(ctx context.Context, db *gorm.DB, user *model.User, roles ...*model.Role) error {
	if len(roles) == 0 {
		return nil
	}
	if err := db.WithContext(ctx).Model(user).Association(PreloadRoles).Append(roles); err != nil {
		return fmt.Errorf("append roles to user %d failed: %w", user.ID, err)
	}
	return nil
}
