package repository

import (
	"fmt"
	"strings"

	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/query"

	"github.com/lib/pq"
)

// columnMap 过滤字段 -> SQL 表达式（白名单，不在表中的字段不会进入 SQL）
type columnMap map[string]string

// whereBuilder 拼接 WHERE 条件与 $n 参数
type whereBuilder struct {
	where []string
	args  []any
}

func (w *whereBuilder) arg(v any) string {
	w.args = append(w.args, v)
	return fmt.Sprintf("$%d", len(w.args))
}

func (w *whereBuilder) add(cond string) {
	w.where = append(w.where, cond)
}

func (w *whereBuilder) clause() string {
	if len(w.where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.where, " AND ")
}

// restrictIDs col = ANY($n)
func (w *whereBuilder) restrictIDs(col string, ids []string) {
	w.add(fmt.Sprintf("%s = ANY(%s)", col, w.arg(pq.Array(ids))))
}

// applyFilter 追加 search / 时间范围 / 等值过滤
// PortfolioID、SubPortfolioID 的语义因实体而异，由调用方处理
func (w *whereBuilder) applyFilter(spec query.FilterSpec, cols columnMap) {
	if spec.Search != "" {
		var searchCols []string
		for _, f := range spec.SearchFields {
			if col, ok := cols[f]; ok {
				searchCols = append(searchCols, col)
			}
		}
		if len(searchCols) > 0 {
			p := w.arg("%" + escapeLike(spec.Search) + "%")
			parts := make([]string, 0, len(searchCols))
			for _, col := range searchCols {
				parts = append(parts, fmt.Sprintf("COALESCE(%s, '') ILIKE %s", col, p))
			}
			w.add("(" + strings.Join(parts, " OR ") + ")")
		}
	}

	if dr := spec.DateRange; dr != nil {
		if col, ok := cols[dr.Field]; ok {
			w.add(fmt.Sprintf("%s BETWEEN %s AND %s", col, w.arg(dr.From), w.arg(dr.To)))
		}
	}

	for _, eq := range spec.Equals {
		col, ok := cols[eq.Field]
		if !ok {
			continue
		}
		w.add(fmt.Sprintf("%s = %s", col, w.arg(eq.Value)))
	}
}

// pagination 追加 LIMIT/OFFSET 参数，返回子句
func (w *whereBuilder) pagination(spec query.FilterSpec) string {
	skip := spec.Skip()
	if skip < 0 {
		skip = 0
	}
	limit := w.arg(spec.Take())
	offset := w.arg(skip)
	return fmt.Sprintf(" LIMIT %s OFFSET %s", limit, offset)
}

// orderBy 单字段排序；以 idCol 作为第二排序键保证分页稳定
func orderBy(sort query.Sort, cols columnMap, fallback, idCol string) string {
	col, ok := cols[sort.Field]
	if !ok {
		col = fallback
	}
	dir := "ASC"
	if sort.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, %s %s", col, dir, idCol, dir)
}

// escapeLike 转义 LIKE 通配符（默认转义字符为反斜杠）
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
