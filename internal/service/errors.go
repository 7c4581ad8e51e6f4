package service

import (
	"errors"
	"fmt"
)

// ErrUnavailable 表示所需的外部协作方（对象存储等）未配置。
var ErrUnavailable = errors.New("service unavailable")

// ValidationError 表示必填字段缺失或为空。
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func newValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError 表示请求的记录不存在。
type NotFoundError struct {
	Resource string
	ID       interface{}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Resource, e.ID)
}

// ConflictError 表示记录当前状态不允许该操作，例如重复回复。
type ConflictError struct {
	Resource string
	ID       interface{}
	Reason   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %v: %s", e.Resource, e.ID, e.Reason)
}

// AuthorizationError 表示非管理员调用了仅限管理员的操作。
type AuthorizationError struct {
	Op string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("%s requires admin", e.Op)
}

// Caller 描述发起调用的一方。
type Caller struct {
	Admin bool
}

// AdminCaller 和 VisitorCaller 是两种常用的调用方。
var (
	AdminCaller   = Caller{Admin: true}
	VisitorCaller = Caller{}
)

func requireAdmin(caller Caller, op string) error {
	if !caller.Admin {
		return &AuthorizationError{Op: op}
	}
	return nil
}
