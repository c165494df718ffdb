package query

// Metadata 列表接口的分页信息
type Metadata struct {
	TotalDocuments int `json:"totalDocuments"`
	CurrentPage    int `json:"currentPage"`
	Limit          int `json:"limit"`
	TotalPage      int `json:"totalPage"`
}

// NewMetadata totalPage = ceil(total / limit)
func NewMetadata(total int, spec FilterSpec) Metadata {
	totalPage := 0
	if spec.Limit > 0 {
		totalPage = (total + spec.Limit - 1) / spec.Limit
	}
	return Metadata{
		TotalDocuments: total,
		CurrentPage:    spec.Page,
		Limit:          spec.Limit,
		TotalPage:      totalPage,
	}
}

// Page 一页结果
type Page[T any] struct {
	Items    []T      `json:"data"`
	Metadata Metadata `json:"metadata"`
}

// EmptyPage 无结果（不查询存储）
func EmptyPage[T any](spec FilterSpec) *Page[T] {
	return &Page[T]{Items: []T{}, Metadata: NewMetadata(0, spec)}
}
