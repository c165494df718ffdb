package service

import "errors"

var (
	// ErrForbidden 非 admin 且没有适用的授权
	ErrForbidden = errors.New("forbidden")
	// ErrValidation 请求参数不合法
	ErrValidation = errors.New("validation failed")
)
