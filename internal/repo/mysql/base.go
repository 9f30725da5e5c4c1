/**
 * 仓库层:通用仓库
 * @date 2026.10.16
 * @description 基于 gorm 的泛型仓库，列清单在构造时从模型 schema 解析一次。
 *              所有方法都接收调用方的 *gorm.DB(根连接或事务)，仓库本身不持有连接，
 *              事务边界由服务层决定。
 * @func
 * 	1.GetByPK / GetByPKs / GetByUniqueField / GetOrNone 查询
 * 	2.GetOrCreate 并发安全的获取或创建
 * 	3.GetAll / Count / GetPaged 列表与分页
 * 	4.Create / BulkCreate / Update / Delete 写操作
 */
package mysql

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"

	"raggate/internal/model/system"
	"raggate/internal/pkg/logger"
)

// 分页默认值
const (
	DefaultPage     = 1
	DefaultPageSize = 10
)

// queryOptions 单次查询选项
type queryOptions struct {
	raiseNotFound bool
	preload       []string
}

// QueryOption 查询选项
type QueryOption func(*queryOptions)

// WithRaiseNotFound 记录不存在时是否返回 NotFound 错误，默认返回
func WithRaiseNotFound(raise bool) QueryOption {
	return func(o *queryOptions) { o.raiseNotFound = raise }
}

// WithPreload 预加载关联，如 "Roles"、"Roles.Permissions"
func WithPreload(associations ...string) QueryOption {
	return func(o *queryOptions) { o.preload = append(o.preload, associations...) }
}

func buildOptions(opts []QueryOption) *queryOptions {
	o := &queryOptions{raiseNotFound: true}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// PageQuery 分页查询参数
type PageQuery struct {
	Page     int
	PageSize int
	Filters  Filters
	OrderBy  string
	Desc     bool
	Preload  []string
}

// Normalize page<1 取 1，page_size<=0 取默认值
func (q *PageQuery) Normalize() {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
}

// Offset 当前页偏移量
func (q *PageQuery) Offset() int {
	return (q.Page - 1) * q.PageSize
}

// Repository 泛型仓库
type Repository[T any] struct {
	schema *schema.Schema
	pk     *schema.Field
}

// NewRepository 解析模型 schema，模型必须有主键
func NewRepository[T any](db *gorm.DB) (*Repository[T], error) {
	if db == nil {
		return nil, errors.New("repository requires a database handle")
	}
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(new(T)); err != nil {
		return nil, fmt.Errorf("parse model schema failed: %w", err)
	}
	sch := stmt.Schema
	if len(sch.PrimaryFields) == 0 {
		return nil, fmt.Errorf("model %s has no primary key", sch.Name)
	}
	if len(sch.PrimaryFields) > 1 {
		logger.LogSystemEvent("Repository", "CompositePrimaryKey",
			fmt.Sprintf("model %s has a composite primary key, using %s", sch.Name, sch.PrimaryFields[0].DBName),
			logrus.WarnLevel, map[string]interface{}{"table": sch.Table})
	}
	return &Repository[T]{schema: sch, pk: sch.PrimaryFields[0]}, nil
}

// MustNewRepository 用于包级初始化，模型定义错误时直接 panic
func MustNewRepository[T any](db *gorm.DB) *Repository[T] {
	r, err := NewRepository[T](db)
	if err != nil {
		panic(err)
	}
	return r
}

// Schema 模型 schema
func (r *Repository[T]) Schema() *schema.Schema { return r.schema }

// ModelName 模型名，用于错误消息
func (r *Repository[T]) ModelName() string { return r.schema.Name }

// PrimaryKey 主键列名
func (r *Repository[T]) PrimaryKey() string { return r.pk.DBName }

// Columns 模型声明的列名
func (r *Repository[T]) Columns() []string {
	cols := make([]string, len(r.schema.DBNames))
	copy(cols, r.schema.DBNames)
	return cols
}

// HasColumn 按列名或字段名判断
func (r *Repository[T]) HasColumn(name string) bool {
	return lookupColumn(r.schema, name) != nil
}

// PKValue 读取对象主键值
func (r *Repository[T]) PKValue(ctx context.Context, obj *T) interface{} {
	v, _ := r.pk.ValueOf(ctx, reflect.ValueOf(obj))
	return v
}

func (r *Repository[T]) query(ctx context.Context, db *gorm.DB, preload []string) *gorm.DB {
	tx := db.WithContext(ctx).Model(new(T))
	for _, assoc := range preload {
		tx = tx.Preload(assoc)
	}
	return tx
}

// GetByUniqueField 按唯一列查询单条记录
func (r *Repository[T]) GetByUniqueField(ctx context.Context, db *gorm.DB, field string, value interface{}, opts ...QueryOption) (*T, error) {
	o := buildOptions(opts)
	f := lookupColumn(r.schema, field)
	if f == nil {
		return nil, fmt.Errorf("model %s has no column %q", r.schema.Name, field)
	}

	obj := new(T)
	err := r.query(ctx, db, o.preload).
		Where(clause.Eq{Column: columnOf(r.schema, f), Value: value}).
		Take(obj).Error
	if err == nil {
		return obj, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if o.raiseNotFound {
		return nil, system.NewNotFoundError(
			fmt.Sprintf("%s with %s=%v not found.", r.schema.Name, field, value), nil)
	}
	return nil, nil
}

// GetByPK 按主键查询
func (r *Repository[T]) GetByPK(ctx context.Context, db *gorm.DB, pk interface{}, opts ...QueryOption) (*T, error) {
	return r.GetByUniqueField(ctx, db, r.pk.DBName, pk, opts...)
}

// GetOrNone 不存在时返回 (nil, nil)
func (r *Repository[T]) GetOrNone(ctx context.Context, db *gorm.DB, field string, value interface{}, preload ...string) (*T, error) {
	return r.GetByUniqueField(ctx, db, field, value, WithRaiseNotFound(false), WithPreload(preload...))
}

// GetByPKs 批量按主键查询，空输入返回空列表；缺失的主键按输入顺序列在错误里
func (r *Repository[T]) GetByPKs(ctx context.Context, db *gorm.DB, pks []interface{}, opts ...QueryOption) ([]T, error) {
	if len(pks) == 0 {
		return []T{}, nil
	}
	o := buildOptions(opts)

	var items []T
	err := r.query(ctx, db, o.preload).
		Where(clause.IN{Column: columnOf(r.schema, r.pk), Values: pks}).
		Find(&items).Error
	if err != nil {
		return nil, err
	}

	if o.raiseNotFound {
		found := make(map[string]struct{}, len(items))
		for i := range items {
			found[fmt.Sprint(r.PKValue(ctx, &items[i]))] = struct{}{}
		}
		var missing []string
		for _, pk := range pks {
			key := fmt.Sprint(pk)
			if _, ok := found[key]; !ok {
				missing = append(missing, key)
			}
		}
		if len(missing) > 0 {
			return nil, system.NewNotFoundError(
				fmt.Sprintf("%s %s not found.", r.schema.Name, strings.Join(missing, ", ")),
				map[string]interface{}{"missing": missing})
		}
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// GetOrCreate 先查询，不存在则插入；并发插入撞上唯一约束时回滚到保存点并读取胜出方的记录
func (r *Repository[T]) GetOrCreate(ctx context.Context, db *gorm.DB, field string, value interface{}, defaults map[string]interface{}) (*T, bool, error) {
	obj, err := r.GetByUniqueField(ctx, db, field, value, WithRaiseNotFound(false))
	if err != nil {
		return nil, false, err
	}
	if obj != nil {
		return obj, false, nil
	}
	return r.createOrFetch(ctx, db, field, value, defaults)
}

func (r *Repository[T]) createOrFetch(ctx context.Context, db *gorm.DB, field string, value interface{}, defaults map[string]interface{}) (*T, bool, error) {
	data := make(map[string]interface{}, len(defaults)+1)
	for k, v := range defaults {
		data[k] = v
	}
	data[field] = value

	obj, err := r.Build(ctx, data)
	if err != nil {
		return nil, false, err
	}

	// 已在事务中时 gorm 使用 SAVEPOINT，失败只回滚这一次插入
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(obj).Error
	})
	if err == nil {
		return obj, true, nil
	}
	if !IsDuplicateKey(err) {
		return nil, false, err
	}

	existing, err := r.GetByUniqueField(ctx, db, field, value)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// GetAll 全量查询
func (r *Repository[T]) GetAll(ctx context.Context, db *gorm.DB, preload ...string) ([]T, error) {
	var items []T
	if err := r.query(ctx, db, preload).Find(&items).Error; err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// Count 按过滤条件计数
func (r *Repository[T]) Count(ctx context.Context, db *gorm.DB, filters Filters) (int64, error) {
	var total int64
	err := applyFilters(r.query(ctx, db, nil), r.schema, filters).Count(&total).Error
	return total, err
}

// GetPaged 分页查询；排序字段不存在时不排序
func (r *Repository[T]) GetPaged(ctx context.Context, db *gorm.DB, q PageQuery) ([]T, int64, error) {
	q.Normalize()

	total, err := r.Count(ctx, db, q.Filters)
	if err != nil {
		return nil, 0, err
	}

	tx := applyFilters(r.query(ctx, db, q.Preload), r.schema, q.Filters)
	if q.OrderBy != "" {
		if f := queryableColumn(r.schema, q.OrderBy); f != nil {
			tx = tx.Order(clause.OrderByColumn{Column: columnOf(r.schema, f), Desc: q.Desc})
		}
	}

	var items []T
	if err := tx.Offset(q.Offset()).Limit(q.PageSize).Find(&items).Error; err != nil {
		return nil, 0, err
	}
	if items == nil {
		items = []T{}
	}
	return items, total, nil
}

// Build 用列数据构造对象，非列的键被忽略
func (r *Repository[T]) Build(ctx context.Context, data map[string]interface{}) (*T, error) {
	obj := new(T)
	rv := reflect.ValueOf(obj)
	for key, value := range data {
		f := lookupColumn(r.schema, key)
		if f == nil {
			continue
		}
		if err := f.Set(ctx, rv, value); err != nil {
			return nil, fmt.Errorf("set %s.%s failed: %w", r.schema.Name, f.Name, err)
		}
	}
	return obj, nil
}

// Create 插入单条
func (r *Repository[T]) Create(ctx context.Context, db *gorm.DB, obj *T) error {
	return db.WithContext(ctx).Create(obj).Error
}

// BulkCreate 批量插入
func (r *Repository[T]) BulkCreate(ctx context.Context, db *gorm.DB, objs []*T) error {
	if len(objs) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&objs).Error
}

// Update 局部更新：未知键与主键跳过，nil 不会写入非空列
func (r *Repository[T]) Update(ctx context.Context, db *gorm.DB, obj *T, attrs map[string]interface{}) (*T, error) {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rv := reflect.ValueOf(obj)
	columns := make([]string, 0, len(keys))
	for _, key := range keys {
		f := lookupColumn(r.schema, key)
		if f == nil || f.PrimaryKey {
			continue
		}
		value := attrs[key]
		if isNil(value) {
			if f.NotNull {
				continue
			}
			value = nil
		}
		if err := f.Set(ctx, rv, value); err != nil {
			return nil, fmt.Errorf("set %s.%s failed: %w", r.schema.Name, f.Name, err)
		}
		columns = append(columns, f.DBName)
	}
	if len(columns) == 0 {
		return obj, nil
	}

	if err := db.WithContext(ctx).Model(obj).Select(columns).Updates(obj).Error; err != nil {
		return nil, err
	}
	return obj, nil
}

// Delete 先加载(不存在返回 NotFound)再删除，多对多关联行一并清理
func (r *Repository[T]) Delete(ctx context.Context, db *gorm.DB, pk interface{}) (*T, error) {
	obj, err := r.GetByPK(ctx, db, pk)
	if err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Select(clause.Associations).Delete(obj).Error; err != nil {
		return nil, err
	}
	return obj, nil
}

// IsDuplicateKey 唯一约束冲突
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "Duplicate entry")
}

// ToAny 将主键切片转换为 GetByPKs 的入参
func ToAny[S ~[]E, E any](s S) []interface{} {
	out := make([]interface{}, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}

func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
