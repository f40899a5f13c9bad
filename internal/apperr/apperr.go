package apperr

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Kind 标识错误类别，同步接口据此映射 HTTP 状态码。
type Kind string

const (
	InvalidArgument    Kind = "invalid_argument"
	NotFound           Kind = "not_found"
	PermissionDenied   Kind = "permission_denied"
	AlreadyExists      Kind = "already_exists"
	FailedPrecondition Kind = "failed_precondition"
	Internal           Kind = "internal"
)

// Error 携带类别与可读信息的领域错误。
type Error struct {
	Kind    Kind
	Message string
	TraceID string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New 创建指定类别的错误。
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap 包装底层错误并归入类别。
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// Internalf 创建内部错误并附带 trace id，便于日志关联。
func Internalf(err error, format string, args ...any) *Error {
	return &Error{Kind: Internal, Message: fmt.Sprintf(format, args...), TraceID: uuid.NewString(), Err: err}
}

// KindOf 返回错误类别，非领域错误一律视为 Internal。
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// IsKind 判断错误是否属于指定类别。
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
