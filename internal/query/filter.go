package query

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	// MaxLimit limit 超过时截为 MaxLimit
	MaxLimit = 100
	// MaxPage page 超过时截为 MaxPage，Skip 不会溢出
	MaxPage = 1_000_000
)

// 保留参数：不会作为等值过滤透传
const (
	KeyPage           = "page"
	KeyLimit          = "limit"
	KeySortBy         = "sortBy"
	KeySortOrder      = "sortOrder"
	KeySearch         = "search"
	KeyStartDate      = "start_date"
	KeyEndDate        = "end_date"
	KeyPortfolioID    = "portfolio_id"
	KeySubPortfolioID = "sub_portfolio_id"
)

var reservedKeys = map[string]bool{
	KeyPage: true, KeyLimit: true, KeySortBy: true, KeySortOrder: true, KeySearch: true,
	KeyStartDate: true, KeyEndDate: true, KeyPortfolioID: true, KeySubPortfolioID: true,
}

// Sort 单字段排序
type Sort struct {
	Field string
	Desc  bool
}

// DateRange 闭区间 [From, To]
type DateRange struct {
	Field string
	From  time.Time
	To    time.Time
}

// Equal 等值过滤条件
type Equal struct {
	Field string
	Value any
}

// Schema 列表接口的可过滤字段定义（每种实体一份）
type Schema struct {
	// SearchFields search 参数匹配的文本字段（OR，大小写不敏感子串匹配）
	SearchFields []string
	// DateField start_date/end_date 作用的时间字段
	DateField string
	// DefaultSort 未指定 sortBy（或 sortBy 不合法）时的排序
	DefaultSort Sort
	// Fields 允许透传为等值过滤、以及允许 sortBy 的字段
	Fields []string
}

func (s Schema) has(field string) bool {
	for _, f := range s.Fields {
		if f == field {
			return true
		}
	}
	return false
}

// FilterSpec 规范化后的过滤条件，构建后只读
type FilterSpec struct {
	Page  int
	Limit int

	Sort Sort

	Search       string
	SearchFields []string

	DateRange *DateRange

	PortfolioID    string
	SubPortfolioID string

	Equals []Equal
}

// Skip 跳过的行数
func (f FilterSpec) Skip() int { return (f.Page - 1) * f.Limit }

// Take 本页行数
func (f FilterSpec) Take() int { return f.Limit }

// Build 把预处理后的查询参数转换为 FilterSpec
// 非法的分页/日期参数回退为默认值，不返回错误
func Build(raw map[string]any, schema Schema) FilterSpec {
	spec := FilterSpec{
		Page:  positiveInt(raw[KeyPage], DefaultPage, MaxPage),
		Limit: positiveInt(raw[KeyLimit], DefaultLimit, MaxLimit),
		Sort:  schema.DefaultSort,
	}

	if sortBy := asString(raw[KeySortBy]); sortBy != "" && schema.has(sortBy) {
		spec.Sort = Sort{
			Field: sortBy,
			Desc:  strings.EqualFold(asString(raw[KeySortOrder]), "desc"),
		}
	}

	if search := strings.TrimSpace(asString(raw[KeySearch])); search != "" && len(schema.SearchFields) > 0 {
		spec.Search = search
		spec.SearchFields = append([]string(nil), schema.SearchFields...)
	}

	if schema.DateField != "" {
		from, okFrom := parseDate(raw[KeyStartDate], false)
		to, okTo := parseDate(raw[KeyEndDate], true)
		if okFrom && okTo {
			spec.DateRange = &DateRange{Field: schema.DateField, From: from, To: to}
		}
	}

	spec.PortfolioID = asString(raw[KeyPortfolioID])
	spec.SubPortfolioID = asString(raw[KeySubPortfolioID])

	keys := make([]string, 0, len(raw))
	for k := range raw {
		if reservedKeys[k] || !schema.has(k) || raw[k] == nil {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		spec.Equals = append(spec.Equals, Equal{Field: k, Value: raw[k]})
	}

	return spec
}

// positiveInt 非法或非正数取 def，超过 ceil 取 ceil
func positiveInt(v any, def, ceil int) int {
	var n int64
	switch val := v.(type) {
	case int:
		n = int64(val)
	case int64:
		n = val
	case float64:
		if val != math.Trunc(val) || val <= 0 {
			return def
		}
		if val > float64(ceil) {
			return ceil
		}
		n = int64(val)
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		if err != nil {
			// 超出 int64 的纯数字也按上限处理
			if errors.Is(err, strconv.ErrRange) && !strings.HasPrefix(strings.TrimSpace(val), "-") {
				return ceil
			}
			return def
		}
		n = i
	default:
		return def
	}
	if n <= 0 {
		return def
	}
	if n > int64(ceil) {
		return ceil
	}
	return int(n)
}

func asString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseDate 解析日期；endOfDay 为 true 且只有日期部分时取当天最后时刻（闭区间）
func parseDate(v any, endOfDay bool) (time.Time, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if endOfDay && layout == "2006-01-02" {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return t, true
	}
	return time.Time{}, false
}
