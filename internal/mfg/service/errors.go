package service

import (
	"errors"
	"fmt"

	"github.com/AjAjish/manufacturing-erp/internal/mfg/entity"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInactiveUser       = errors.New("user account is disabled")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// ValidationError 携带面向用户的错误信息
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// Actor 执行写操作的用户，显式传入每个写方法
type Actor struct {
	UserID    string
	Email     string
	Name      string
	Role      string
	IP        string
	UserAgent string
}

// ID 未知用户返回 nil
func (a Actor) ID() *string {
	if a.UserID == "" {
		return nil
	}
	id := a.UserID
	return &id
}

// DisplayName 历史记录中展示的名字
func (a Actor) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.Email
}

func (a Actor) IsAdmin() bool {
	return a.Role == entity.RoleAdmin
}
