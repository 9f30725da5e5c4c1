package crud

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"raggate/internal/config"
	"raggate/internal/model"
	"raggate/internal/model/system"
	"raggate/internal/pkg/database"
	"raggate/internal/repo/mysql"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewSQLiteConnection(&config.SQLiteConfig{Path: ":memory:", LogLevel: "silent"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func newRoleService(t *testing.T, db *gorm.DB, opts ...Option[model.Role]) *Service[model.Role] {
	t.Helper()
	svc, err := New(db, mysql.MustNewRepository[model.Role](db), opts...)
	require.NoError(t, err)
	return svc
}

func countRoles(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&model.Role{}).Count(&n).Error)
	return n
}

func TestNew_RequiresCollaborators(t *testing.T) {
	db := newTestDB(t)

	_, err := New[model.Role](nil, mysql.MustNewRepository[model.Role](db))
	assert.Error(t, err)

	_, err = New[model.Role](db, nil)
	assert.Error(t, err)
}

func TestService_CreateFiltersUnknownKeys(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := newRoleService(t, db)

	role, err := svc.Create(ctx, map[string]interface{}{
		"name":         "auditor",
		"display_name": "审计员",
		"bogus":        "dropped",
	}, true)
	require.NoError(t, err)
	assert.NotZero(t, role.ID)
	assert.False(t, role.CreatedAt.IsZero())
	assert.Equal(t, "审计员", role.DisplayName)
}

func TestService_CheckBeforeCreate(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	reject := errors.New("rejected")
	svc := newRoleService(t, db, WithCheckBeforeCreate[model.Role](func(ctx context.Context, db *gorm.DB, data map[string]interface{}) error {
		if data["name"] == "root" {
			return reject
		}
		return nil
	}))

	_, err := svc.Create(ctx, map[string]interface{}{"name": "root"}, true)
	assert.ErrorIs(t, err, reject)
	assert.Zero(t, countRoles(t, db))

	_, err = svc.Create(ctx, map[string]interface{}{"name": "ops"}, true)
	assert.NoError(t, err)
}

func TestService_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := newRoleService(t, db)

	role, err := svc.Create(ctx, map[string]interface{}{"name": "editor", "display_name": "编辑"}, true)
	require.NoError(t, err)

	updated, err := svc.Update(ctx, role.ID, map[string]interface{}{"display_name": "编辑者"}, true)
	require.NoError(t, err)
	assert.Equal(t, "编辑者", updated.DisplayName)
	assert.Equal(t, "editor", updated.Name)

	_, err = svc.Update(ctx, 9999, map[string]interface{}{"display_name": "x"}, true)
	assert.ErrorIs(t, err, system.ErrNotFound)

	deleted, err := svc.Delete(ctx, role.ID, true)
	require.NoError(t, err)
	assert.Equal(t, role.ID, deleted.ID)

	_, err = svc.GetByPK(ctx, role.ID, false)
	assert.ErrorIs(t, err, system.ErrNotFound)
}

func TestWithTx_RollsBackAsUnit(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := newRoleService(t, db)
	boom := errors.New("boom")

	err := WithTx(ctx, db, func(ctx context.Context) error {
		if _, err := svc.Create(ctx, map[string]interface{}{"name": "a"}, false); err != nil {
			return err
		}
		// commit=true 在已有事务中同样加入该事务
		if _, err := svc.Create(ctx, map[string]interface{}{"name": "b"}, true); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, countRoles(t, db))

	err = WithTx(ctx, db, func(ctx context.Context) error {
		_, err := svc.Create(ctx, map[string]interface{}{"name": "a"}, false)
		if err != nil {
			return err
		}
		// 嵌套调用复用同一事务
		return WithTx(ctx, db, func(ctx context.Context) error {
			_, err := svc.Create(ctx, map[string]interface{}{"name": "b"}, false)
			return err
		})
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, countRoles(t, db))
}

func TestService_GetPagedDetail(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := newRoleService(t, db, WithPreload[model.Role]("Permissions"))

	perm := &model.Permission{Name: "dataset:read"}
	require.NoError(t, db.Create(perm).Error)
	for _, name := range []string{"r1", "r2", "r3"} {
		require.NoError(t, db.Create(&model.Role{Name: name, Permissions: []*model.Permission{perm}}).Error)
	}

	items, total, err := svc.GetPaged(ctx, mysql.PageQuery{Page: 1, PageSize: 2, OrderBy: "name"}, true)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, items, 2)
	assert.Equal(t, []string{"dataset:read"}, items[0].PermissionNames())

	items, _, err = svc.GetPaged(ctx, mysql.PageQuery{Page: 1, PageSize: 2}, false)
	require.NoError(t, err)
	assert.Empty(t, items[0].Permissions)

	all, err := svc.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byPKs, err := svc.GetByPKs(ctx, mysql.ToAny([]uint{all[0].ID, all[1].ID}), true)
	require.NoError(t, err)
	assert.Len(t, byPKs, 2)
}
