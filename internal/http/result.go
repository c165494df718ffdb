package httpapi

import "github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/query"

// Result 统一响应信封
// metadata 只在列表接口出现
type Result[T any] struct {
	StatusCode int             `json:"statusCode"`
	Message    string          `json:"message"`
	Data       T               `json:"data"`
	Metadata   *query.Metadata `json:"metadata,omitempty"`
}

func Ok[T any](status int, message string, data T) Result[T] {
	return Result[T]{StatusCode: status, Message: message, Data: data}
}

func OkPage[T any](message string, page *query.Page[T]) Result[[]T] {
	meta := page.Metadata
	return Result[[]T]{StatusCode: 200, Message: message, Data: page.Items, Metadata: &meta}
}

func Fail(status int, message string) Result[any] {
	return Result[any]{StatusCode: status, Message: message, Data: nil}
}
