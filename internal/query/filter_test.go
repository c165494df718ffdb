package query

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSchema = Schema{
	SearchFields: []string{"name", "description"},
	DateField:    "created_at",
	DefaultSort:  Sort{Field: "created_at", Desc: true},
	Fields:       []string{"name", "status", "created_at", "is_active"},
}

func TestNormalize(t *testing.T) {
	raw := Normalize(url.Values{
		"active":    {"true"},
		"archived":  {"false"},
		"deleted":   {"null"},
		"owner":     {"undefined"},
		"page":      {"3"},
		"ratio":     {"0.25"},
		"name":      {"Hotel 7"},
		"search":    {"  "},
		"category":  {"All"},
		"hex":       {"0x10"},
		"nan":       {"NaN"},
		"padded":    {" 12"},
		"sortOrder": {"DESC"},
	})

	assert.Equal(t, true, raw["active"])
	assert.Equal(t, false, raw["archived"])
	assert.NotContains(t, raw, "deleted")
	assert.NotContains(t, raw, "owner")
	assert.Equal(t, int64(3), raw["page"])
	assert.Equal(t, 0.25, raw["ratio"])
	assert.Equal(t, "Hotel 7", raw["name"])
	assert.NotContains(t, raw, "search")
	assert.NotContains(t, raw, "category")
	assert.Equal(t, "0x10", raw["hex"])
	assert.Equal(t, "NaN", raw["nan"])
	assert.Equal(t, " 12", raw["padded"])
	assert.Equal(t, "DESC", raw["sortOrder"])
}

func TestNormalize_NonCanonicalNumbersStayText(t *testing.T) {
	raw := Normalize(url.Values{
		"expedia_id": {"00123"},
		"booking_id": {"+42"},
		"agoda_id":   {"12345678901234567890"},
		"price":      {"1.50"},
		"exp":        {"1e3"},
		"zero":       {"0"},
		"negative":   {"-7"},
		"fraction":   {"-0.5"},
	})

	assert.Equal(t, "00123", raw["expedia_id"])
	assert.Equal(t, "+42", raw["booking_id"])
	assert.Equal(t, "12345678901234567890", raw["agoda_id"])
	assert.Equal(t, "1.50", raw["price"])
	assert.Equal(t, "1e3", raw["exp"])
	assert.Equal(t, int64(0), raw["zero"])
	assert.Equal(t, int64(-7), raw["negative"])
	assert.Equal(t, -0.5, raw["fraction"])
}

func TestNormalize_KeepsConcreteCategory(t *testing.T) {
	raw := Normalize(url.Values{"category": {"Hotels"}})
	assert.Equal(t, "Hotels", raw["category"])
}

func TestBuild_Defaults(t *testing.T) {
	spec := Build(map[string]any{}, testSchema)

	assert.Equal(t, 1, spec.Page)
	assert.Equal(t, 10, spec.Limit)
	assert.Equal(t, 0, spec.Skip())
	assert.Equal(t, 10, spec.Take())
	assert.Equal(t, Sort{Field: "created_at", Desc: true}, spec.Sort)
	assert.Empty(t, spec.Search)
	assert.Nil(t, spec.DateRange)
	assert.Empty(t, spec.Equals)
}

func TestBuild_Pagination(t *testing.T) {
	tests := []struct {
		name      string
		raw       map[string]any
		wantPage  int
		wantLimit int
		wantSkip  int
	}{
		{"numbers", map[string]any{"page": int64(3), "limit": int64(10)}, 3, 10, 20},
		{"strings", map[string]any{"page": "2", "limit": "25"}, 2, 25, 25},
		{"non numeric", map[string]any{"page": "abc", "limit": "x"}, 1, 10, 0},
		{"zero and negative", map[string]any{"page": int64(0), "limit": int64(-5)}, 1, 10, 0},
		{"fractional", map[string]any{"page": 1.5, "limit": 20.0}, 1, 20, 0},
		{"boolean", map[string]any{"page": true}, 1, 10, 0},
		{"limit capped", map[string]any{"page": int64(2), "limit": int64(5000)}, 2, MaxLimit, MaxLimit},
		{"huge page", map[string]any{"page": int64(100000000000000000), "limit": int64(100)}, MaxPage, 100, (MaxPage - 1) * 100},
		{"huge floats", map[string]any{"page": 1e30, "limit": -1e30}, MaxPage, 10, (MaxPage - 1) * 10},
		{"out of range strings", map[string]any{"page": "99999999999999999999", "limit": "-99999999999999999999"}, MaxPage, 10, (MaxPage - 1) * 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := Build(tt.raw, testSchema)
			assert.Equal(t, tt.wantPage, spec.Page)
			assert.Equal(t, tt.wantLimit, spec.Limit)
			assert.Equal(t, tt.wantSkip, spec.Skip())
		})
	}
}

func TestBuild_Sort(t *testing.T) {
	spec := Build(map[string]any{"sortBy": "name", "sortOrder": "DeSc"}, testSchema)
	assert.Equal(t, Sort{Field: "name", Desc: true}, spec.Sort)

	spec = Build(map[string]any{"sortBy": "name"}, testSchema)
	assert.Equal(t, Sort{Field: "name", Desc: false}, spec.Sort)

	spec = Build(map[string]any{"sortBy": "name", "sortOrder": "descending"}, testSchema)
	assert.False(t, spec.Sort.Desc)

	// 不允许的字段回退到默认排序
	spec = Build(map[string]any{"sortBy": "password", "sortOrder": "asc"}, testSchema)
	assert.Equal(t, testSchema.DefaultSort, spec.Sort)
}

func TestBuild_Search(t *testing.T) {
	spec := Build(map[string]any{"search": " hilton "}, testSchema)
	assert.Equal(t, "hilton", spec.Search)
	assert.Equal(t, []string{"name", "description"}, spec.SearchFields)

	spec = Build(map[string]any{"search": int64(2024)}, testSchema)
	assert.Equal(t, "2024", spec.Search)

	spec = Build(map[string]any{"search": "x"}, Schema{})
	assert.Empty(t, spec.Search)
}

func TestBuild_DateRange(t *testing.T) {
	spec := Build(map[string]any{"start_date": "2024-01-01", "end_date": "2024-01-31"}, testSchema)
	require.NotNil(t, spec.DateRange)
	assert.Equal(t, "created_at", spec.DateRange.Field)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), spec.DateRange.From)
	assert.Equal(t, time.Date(2024, 1, 31, 23, 59, 59, 999999999, time.UTC), spec.DateRange.To)

	spec = Build(map[string]any{"start_date": "2024-01-01T10:00:00Z", "end_date": "2024-01-01T12:00:00Z"}, testSchema)
	require.NotNil(t, spec.DateRange)
	assert.Equal(t, 12, spec.DateRange.To.Hour())

	// 只有一边：不做范围过滤
	spec = Build(map[string]any{"start_date": "2024-01-01"}, testSchema)
	assert.Nil(t, spec.DateRange)

	// 非法日期：不报错，也不过滤
	spec = Build(map[string]any{"start_date": "yesterday", "end_date": "2024-01-01"}, testSchema)
	assert.Nil(t, spec.DateRange)
}

func TestBuild_EqualsAndExtraction(t *testing.T) {
	raw := map[string]any{
		"portfolio_id":     "pf-1",
		"sub_portfolio_id": "sp-1",
		"status":           "active",
		"is_active":        true,
		"unknown":          "dropped",
		"page":             int64(2),
	}
	spec := Build(raw, testSchema)

	assert.Equal(t, "pf-1", spec.PortfolioID)
	assert.Equal(t, "sp-1", spec.SubPortfolioID)
	assert.Equal(t, []Equal{
		{Field: "is_active", Value: true},
		{Field: "status", Value: "active"},
	}, spec.Equals)
}

func TestBuild_FromNormalizedQuery(t *testing.T) {
	raw := Normalize(url.Values{
		"page":      {"3"},
		"limit":     {"10"},
		"sortBy":    {"name"},
		"sortOrder": {"desc"},
		"search":    {"inn"},
		"status":    {"active"},
	})
	spec := Build(raw, testSchema)

	assert.Equal(t, 20, spec.Skip())
	assert.Equal(t, 10, spec.Take())
	assert.Equal(t, Sort{Field: "name", Desc: true}, spec.Sort)
	assert.Equal(t, "inn", spec.Search)
	assert.Equal(t, []Equal{{Field: "status", Value: "active"}}, spec.Equals)
}

func TestNewMetadata(t *testing.T) {
	spec := FilterSpec{Page: 3, Limit: 10}
	meta := NewMetadata(23, spec)
	assert.Equal(t, Metadata{TotalDocuments: 23, CurrentPage: 3, Limit: 10, TotalPage: 3}, meta)

	assert.Equal(t, 2, NewMetadata(20, spec).TotalPage)
	assert.Equal(t, 0, NewMetadata(0, spec).TotalPage)
}

func TestEmptyPage(t *testing.T) {
	page := EmptyPage[string](FilterSpec{Page: 2, Limit: 5})
	assert.Empty(t, page.Items)
	assert.NotNil(t, page.Items)
	assert.Equal(t, Metadata{TotalDocuments: 0, CurrentPage: 2, Limit: 5, TotalPage: 0}, page.Metadata)
}
