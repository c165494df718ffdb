package repository

import "github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/query"

// 各列表接口的过滤定义（字段名即查询参数名）

var PropertySchema = query.Schema{
	SearchFields: []string{"name", "user_email", "expedia_id", "booking_id", "agoda_id"},
	DateField:    "created_at",
	DefaultSort:  query.Sort{Field: "created_at", Desc: true},
	Fields: []string{
		"name", "expedia_id", "expedia_status", "booking_id", "booking_status",
		"agoda_id", "agoda_status", "user_email", "created_at", "updated_at",
	},
}

var SubPortfolioSchema = query.Schema{
	SearchFields: []string{"name", "description"},
	DateField:    "created_at",
	DefaultSort:  query.Sort{Field: "created_at", Desc: true},
	Fields:       []string{"name", "description", "created_at", "updated_at", "propertyCount"},
}

var PortfolioSchema = query.Schema{
	SearchFields: []string{"name"},
	DateField:    "created_at",
	DefaultSort:  query.Sort{Field: "created_at", Desc: true},
	Fields:       []string{"name", "created_by", "updated_by", "created_at", "updated_at"},
}

var GrantSchema = query.Schema{
	DateField:   "created_at",
	DefaultSort: query.Sort{Field: "created_at", Desc: true},
	Fields:      []string{"user_id", "property_id", "created_at", "updated_at"},
}
