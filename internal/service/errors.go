package service

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnauthorized 无法解析owner身份
var ErrUnauthorized = errors.New("unauthorized")

// ErrNoValidRows 导入无任何有效行（per-row错误随响应一并返回）
var ErrNoValidRows = errors.New("no valid rows")

// FieldError 字段级校验错误
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError 请求校验失败。校验在任何写入之前完成，不会部分生效。
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid input"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
