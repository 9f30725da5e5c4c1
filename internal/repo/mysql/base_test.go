package mysql

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"raggate/internal/config"
	"raggate/internal/model"
	"raggate/internal/model/system"
	"raggate/internal/pkg/database"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewSQLiteConnection(&config.SQLiteConfig{Path: ":memory:", LogLevel: "silent"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func seedUsers(t *testing.T, db *gorm.DB, n int) []*model.User {
	t.Helper()
	users := make([]*model.User, 0, n)
	for i := 1; i <= n; i++ {
		users = append(users, &model.User{
			Username: fmt.Sprintf("user%02d", i),
			Password: "x",
			IsActive: i%2 == 1,
		})
	}
	require.NoError(t, db.Create(&users).Error)
	return users
}

func TestNewRepository(t *testing.T) {
	db := newTestDB(t)

	repo, err := NewRepository[model.User](db)
	require.NoError(t, err)
	assert.Equal(t, "User", repo.ModelName())
	assert.Equal(t, "id", repo.PrimaryKey())
	assert.Contains(t, repo.Columns(), "hashed_password")
	assert.True(t, repo.HasColumn("Username"))
	assert.False(t, repo.HasColumn("Roles"))

	code, err := NewRepository[model.InviteCode](db)
	require.NoError(t, err)
	assert.Equal(t, "code", code.PrimaryKey())

	_, err = NewRepository[model.User](nil)
	assert.Error(t, err)

	type noKey struct{ Name string }
	_, err = NewRepository[noKey](db)
	assert.Error(t, err)
}

func TestRepository_GetByUniqueField(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := MustNewRepository[model.User](db)
	seedUsers(t, db, 2)

	u, err := repo.GetByUniqueField(ctx, db, "username", "user01")
	require.NoError(t, err)
	assert.Equal(t, "user01", u.Username)

	_, err = repo.GetByUniqueField(ctx, db, "username", "ghost")
	require.Error(t, err)
	assert.ErrorIs(t, err, system.ErrNotFound)
	assert.Equal(t, "User with username=ghost not found.", err.Error())

	u, err = repo.GetOrNone(ctx, db, "username", "ghost")
	assert.NoError(t, err)
	assert.Nil(t, u)

	_, err = repo.GetByUniqueField(ctx, db, "no_such_column", 1)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, system.ErrNotFound)
}

func TestRepository_GetByPKs(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := MustNewRepository[model.User](db)
	users := seedUsers(t, db, 3)

	items, err := repo.GetByPKs(ctx, db, nil)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)

	items, err = repo.GetByPKs(ctx, db, ToAny([]uint{users[0].ID, users[2].ID}))
	require.NoError(t, err)
	assert.Len(t, items, 2)

	_, err = repo.GetByPKs(ctx, db, ToAny([]uint{users[1].ID, 998, 999}))
	require.Error(t, err)
	se, ok := system.AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, system.CodeNotFound, se.Code)
	assert.Equal(t, "User 998, 999 not found.", se.Message)
	assert.Equal(t, []string{"998", "999"}, se.Detail.(map[string]interface{})["missing"])

	items, err = repo.GetByPKs(ctx, db, ToAny([]uint{users[1].ID, 999}), WithRaiseNotFound(false))
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestRepository_GetOrCreate(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := MustNewRepository[model.Role](db)

	first, created, err := repo.GetOrCreate(ctx, db, "name", "admin", map[string]interface{}{"display_name": "管理员"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, first.ID)
	assert.Equal(t, "管理员", first.DisplayName)

	second, created, err := repo.GetOrCreate(ctx, db, "name", "admin", map[string]interface{}{"display_name": "ignored"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "管理员", second.DisplayName)

	var count int64
	require.NoError(t, db.Model(&model.Role{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

// 模拟并发：查询时尚不存在，插入时另一方已写入
func TestRepository_GetOrCreateLosesRace(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := MustNewRepository[model.Role](db)

	winner := &model.Role{Name: "editor"}
	require.NoError(t, db.Create(winner).Error)

	err := db.Transaction(func(tx *gorm.DB) error {
		got, created, err := repo.createOrFetch(ctx, tx, "name", "editor", nil)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, winner.ID, got.ID)

		// 保存点回滚后外层事务仍可继续使用
		return tx.Create(&model.Role{Name: "viewer"}).Error
	})
	require.NoError(t, err)

	var names []string
	require.NoError(t, db.Model(&model.Role{}).Order("name").Pluck("name", &names).Error)
	assert.Equal(t, []string{"editor", "viewer"}, names)
}

// 两个连接同时对文件库执行 GetOrCreate，只能落下一行
func TestRepository_GetOrCreateConcurrent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "race.db") + "?_pragma=busy_timeout(5000)"

	conns := make([]*gorm.DB, 2)
	for i := range conns {
		db, err := database.NewSQLiteConnection(&config.SQLiteConfig{Path: path, LogLevel: "silent"})
		require.NoError(t, err)
		t.Cleanup(func() { _ = database.Close(db) })
		conns[i] = db
	}
	repo := MustNewRepository[model.Role](conns[0])

	for name, call := range map[string]func(db *gorm.DB, value string) (*model.Role, bool, error){
		"get_or_create": func(db *gorm.DB, value string) (*model.Role, bool, error) {
			return repo.GetOrCreate(ctx, db, "name", value, nil)
		},
		// 跳过查询，两方必然都走插入
		"both_insert": func(db *gorm.DB, value string) (*model.Role, bool, error) {
			return repo.createOrFetch(ctx, db, "name", value, nil)
		},
	} {
		t.Run(name, func(t *testing.T) {
			var (
				wg      sync.WaitGroup
				start   = make(chan struct{})
				roles   = make([]*model.Role, len(conns))
				created = make([]bool, len(conns))
				errs    = make([]error, len(conns))
			)
			for i, db := range conns {
				wg.Add(1)
				go func(i int, db *gorm.DB) {
					defer wg.Done()
					<-start
					roles[i], created[i], errs[i] = call(db, name)
				}(i, db)
			}
			close(start)
			wg.Wait()

			for i := range conns {
				require.NoError(t, errs[i])
				require.NotNil(t, roles[i])
			}
			assert.Equal(t, roles[0].ID, roles[1].ID)
			assert.NotEqual(t, created[0], created[1], "exactly one caller creates the row")

			var count int64
			require.NoError(t, conns[0].Model(&model.Role{}).Where("name = ?", name).Count(&count).Error)
			assert.EqualValues(t, 1, count)
		})
	}
}

func TestRepository_GetPaged(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := MustNewRepository[model.User](db)
	seedUsers(t, db, 15)

	items, total, err := repo.GetPaged(ctx, db, PageQuery{Page: 2, PageSize: 10, OrderBy: "id"})
	require.NoError(t, err)
	assert.EqualValues(t, 15, total)
	require.Len(t, items, 5)
	assert.Equal(t, "user11", items[0].Username)

	items, total, err = repo.GetPaged(ctx, db, PageQuery{Page: 1, PageSize: 3, OrderBy: "username", Desc: true})
	require.NoError(t, err)
	assert.EqualValues(t, 15, total)
	assert.Equal(t, "user15", items[0].Username)

	// 页码越界返回空列表，总数不变
	items, total, err = repo.GetPaged(ctx, db, PageQuery{Page: 5, PageSize: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 15, total)
	assert.NotNil(t, items)
	assert.Empty(t, items)

	// 非法参数取默认值，未知排序字段被忽略
	items, _, err = repo.GetPaged(ctx, db, PageQuery{Page: 0, PageSize: 0, OrderBy: "nope"})
	require.NoError(t, err)
	assert.Len(t, items, DefaultPageSize)

	items, total, err = repo.GetPaged(ctx, db, PageQuery{Filters: Filters{"is_active": "true"}})
	require.NoError(t, err)
	assert.EqualValues(t, 8, total)
	assert.Len(t, items, 8)
}

func TestRepository_Filters(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := MustNewRepository[model.User](db)
	users := seedUsers(t, db, 6)

	count := func(f Filters) int64 {
		n, err := repo.Count(ctx, db, f)
		require.NoError(t, err)
		return n
	}

	// 未知字段与未知操作符等价于没有该条件
	assert.EqualValues(t, 6, count(nil))
	assert.EqualValues(t, 6, count(Filters{"bogus": "x"}))
	assert.EqualValues(t, 6, count(Filters{"username__between": "a"}))
	assert.Equal(t, count(Filters{"is_active": true}), count(Filters{"is_active": true, "bogus__eq": 1}))

	// 逗号分隔的 in 与列表等价
	assert.Equal(t,
		count(Filters{"username__in": []string{"user01", "user03"}}),
		count(Filters{"username__in": "user01,user03"}))
	assert.EqualValues(t, 2, count(Filters{"username__in": "user01,user03"}))
	assert.EqualValues(t, 2, count(Filters{"id__in": fmt.Sprintf("%d,%d", users[0].ID, users[1].ID)}))

	assert.EqualValues(t, 6, count(Filters{"username__like": "user"}))
	assert.EqualValues(t, 1, count(Filters{"Username__like": "05"}))
	assert.EqualValues(t, 2, count(Filters{"id__gt": users[3].ID}))
	assert.EqualValues(t, 1, count(Filters{"id__lt": fmt.Sprint(users[1].ID)}))
	assert.EqualValues(t, 1, count(Filters{"username": "user02", "is_active": "false"}))
	assert.EqualValues(t, 0, count(Filters{"username": "user02", "is_active": "true"}))
}

func TestRepository_HiddenColumnsNotQueryable(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := MustNewRepository[model.User](db)
	users := seedUsers(t, db, 3)
	require.NoError(t, db.Model(users[2]).Update("hashed_password", "zzz-last").Error)

	count := func(f Filters) int64 {
		n, err := repo.Count(ctx, db, f)
		require.NoError(t, err)
		return n
	}

	// 密码哈希列按列名或字段名都不能参与过滤
	assert.EqualValues(t, 3, count(Filters{"hashed_password__like": "NOT_IN_HASH"}))
	assert.EqualValues(t, 3, count(Filters{"hashed_password": "x"}))
	assert.EqualValues(t, 3, count(Filters{"Password__gt": "y"}))
	assert.EqualValues(t, 3, count(Filters{"password__lt": "a"}))

	// 也不能作为排序字段，按哈希倒序时排在首位的 users[2] 不应出现在第一页
	items, _, err := repo.GetPaged(ctx, db, PageQuery{Page: 1, PageSize: 1, OrderBy: "hashed_password", Desc: true})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.NotEqual(t, users[2].ID, items[0].ID)

	// 写入路径不受影响
	_, err = repo.Update(ctx, db, users[1], map[string]interface{}{"hashed_password": "rehashed"})
	require.NoError(t, err)
	var stored model.User
	require.NoError(t, db.First(&stored, users[1].ID).Error)
	assert.Equal(t, "rehashed", stored.Password)
}

func TestRepository_Update(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := MustNewRepository[model.User](db)
	users := seedUsers(t, db, 1)

	u, err := repo.GetByPK(ctx, db, users[0].ID)
	require.NoError(t, err)

	_, err = repo.Update(ctx, db, u, map[string]interface{}{
		"nickname":  "neo",
		"is_active": nil, // 非空列忽略 nil
		"id":        999, // 主键不可改
		"unknown":   "dropped",
	})
	require.NoError(t, err)

	reloaded, err := repo.GetByPK(ctx, db, users[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "neo", reloaded.Nickname)
	assert.True(t, reloaded.IsActive)

	// 零值也会写入
	_, err = repo.Update(ctx, db, reloaded, map[string]interface{}{"is_active": false})
	require.NoError(t, err)
	reloaded, err = repo.GetByPK(ctx, db, users[0].ID)
	require.NoError(t, err)
	assert.False(t, reloaded.IsActive)
}

func TestRepository_DeleteAndBuild(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	roles := MustNewRepository[model.Role](db)
	users := MustNewRepository[model.User](db)

	role := &model.Role{Name: "user"}
	require.NoError(t, roles.Create(ctx, db, role))

	u, err := users.Build(ctx, map[string]interface{}{
		"username":        "alice",
		"hashed_password": "hash",
		"is_active":       true,
		"not_a_column":    1,
	})
	require.NoError(t, err)
	u.Roles = []*model.Role{role}
	require.NoError(t, users.Create(ctx, db, u))

	deleted, err := users.Delete(ctx, db, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", deleted.Username)

	var links int64
	require.NoError(t, db.Table("auth_user_roles").Count(&links).Error)
	assert.Zero(t, links)

	_, err = users.Delete(ctx, db, u.ID)
	assert.ErrorIs(t, err, system.ErrNotFound)

	assert.NoError(t, users.BulkCreate(ctx, db, nil))
	all, err := users.GetAll(ctx, db)
	require.NoError(t, err)
	assert.Empty(t, all)
}
