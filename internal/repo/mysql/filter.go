/**
 * 仓库层:动态过滤表达式
 * @date 2026.10.16
 * @description 将 {"field__op": value} 形式的过滤条件转换为 gorm 子句。
 *              支持 eq(缺省)、like、in、gt、lt。字段按列名或 Go 字段名解析，
 *              未知字段、隐藏字段与未知操作符直接忽略，所有条件以 AND 连接。
 * @func ParseFilter, BuildConditions
 */
package mysql

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// Filters 过滤条件，键为 field 或 field__op
type Filters map[string]interface{}

// 支持的操作符
const (
	OpEq   = "eq"
	OpLike = "like"
	OpIn   = "in"
	OpGt   = "gt"
	OpLt   = "lt"
)

const opSeparator = "__"

// lookupColumn 解析为实体上的真实列，关联字段不算列
func lookupColumn(sch *schema.Schema, name string) *schema.Field {
	field := sch.LookUpField(name)
	if field == nil || field.DBName == "" {
		return nil
	}
	return field
}

// queryableColumn 可用于过滤与排序的列，json:"-" 的隐藏字段(如密码哈希)不对外开放
func queryableColumn(sch *schema.Schema, name string) *schema.Field {
	field := lookupColumn(sch, name)
	if field == nil || hiddenField(field) {
		return nil
	}
	return field
}

func hiddenField(field *schema.Field) bool {
	tag, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	return tag == "-"
}

func columnOf(sch *schema.Schema, field *schema.Field) clause.Column {
	return clause.Column{Table: sch.Table, Name: field.DBName}
}

// ParseFilter 解析单个过滤条件，无法识别时返回 nil
func ParseFilter(sch *schema.Schema, key string, value interface{}) clause.Expression {
	name, op := key, OpEq
	if idx := strings.Index(key, opSeparator); idx >= 0 {
		name, op = key[:idx], key[idx+len(opSeparator):]
	}

	field := queryableColumn(sch, name)
	if field == nil {
		return nil
	}
	col := columnOf(sch, field)

	switch op {
	case OpEq:
		return clause.Eq{Column: col, Value: coerce(field, value)}
	case OpLike:
		return clause.Like{Column: col, Value: fmt.Sprintf("%%%v%%", value)}
	case OpIn:
		return clause.IN{Column: col, Values: inValues(field, value)}
	case OpGt:
		return clause.Gt{Column: col, Value: coerce(field, value)}
	case OpLt:
		return clause.Lt{Column: col, Value: coerce(field, value)}
	default:
		return nil
	}
}

// BuildConditions 解析全部过滤条件，键排序后处理保证生成的SQL稳定
func BuildConditions(sch *schema.Schema, filters Filters) []clause.Expression {
	if len(filters) == 0 {
		return nil
	}
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	conds := make([]clause.Expression, 0, len(keys))
	for _, k := range keys {
		if expr := ParseFilter(sch, k, filters[k]); expr != nil {
			conds = append(conds, expr)
		}
	}
	return conds
}

// applyFilters 没有有效条件时不加 WHERE
func applyFilters(db *gorm.DB, sch *schema.Schema, filters Filters) *gorm.DB {
	conds := BuildConditions(sch, filters)
	if len(conds) == 0 {
		return db
	}
	return db.Where(clause.And(conds...))
}

// inValues 字符串按逗号拆分，切片逐个展开，其余值视为单元素
func inValues(field *schema.Field, value interface{}) []interface{} {
	if s, ok := value.(string); ok {
		parts := strings.Split(s, ",")
		out := make([]interface{}, 0, len(parts))
		for _, p := range parts {
			out = append(out, coerce(field, p))
		}
		return out
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		out := make([]interface{}, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out = append(out, coerce(field, rv.Index(i).Interface()))
		}
		return out
	}
	return []interface{}{coerce(field, value)}
}

// coerce 查询串传入的都是字符串，按列类型转换；转换失败保留原值
func coerce(field *schema.Field, value interface{}) interface{} {
	s, ok := value.(string)
	if !ok {
		return value
	}
	s = strings.TrimSpace(s)

	switch field.DataType {
	case schema.Bool:
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
	case schema.Int:
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i
		}
	case schema.Uint:
		if u, err := strconv.ParseUint(s, 10, 64); err == nil {
			return u
		}
	case schema.Float:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return value
}
