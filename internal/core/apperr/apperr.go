package apperr

import (
	"errors"
	"net/http"
)

// Kind 错误类别，直接对应 HTTP 语义
type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindUnsupportedMedia
	KindUnavailable
)

var statusOf = map[Kind]int{
	KindInternal:         http.StatusInternalServerError,
	KindBadRequest:       http.StatusBadRequest,
	KindUnauthorized:     http.StatusUnauthorized,
	KindForbidden:        http.StatusForbidden,
	KindNotFound:         http.StatusNotFound,
	KindConflict:         http.StatusConflict,
	KindUnsupportedMedia: http.StatusUnsupportedMediaType,
	KindUnavailable:      http.StatusServiceUnavailable,
}

// Error service 与 handler 共用的业务错误
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "application error"
}

func (e *Error) Unwrap() error { return e.Err }

// Status HTTP 状态码
func (e *Error) Status() int {
	if s, ok := statusOf[e.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

func BadRequest(msg string) error       { return &Error{Kind: KindBadRequest, Msg: msg} }
func Unauthorized(msg string) error     { return &Error{Kind: KindUnauthorized, Msg: msg} }
func Forbidden(msg string) error        { return &Error{Kind: KindForbidden, Msg: msg} }
func NotFound(msg string) error         { return &Error{Kind: KindNotFound, Msg: msg} }
func Conflict(msg string) error         { return &Error{Kind: KindConflict, Msg: msg} }
func UnsupportedMedia(msg string) error { return &Error{Kind: KindUnsupportedMedia, Msg: msg} }
func Unavailable(msg string, err error) error {
	return &Error{Kind: KindUnavailable, Msg: msg, Err: err}
}
func Internal(msg string, err error) error { return &Error{Kind: KindInternal, Msg: msg, Err: err} }

// KindOf 非 *Error 一律视为 internal
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// Is 判断 err 是否为指定 kind
func Is(err error, k Kind) bool { return err != nil && KindOf(err) == k }
