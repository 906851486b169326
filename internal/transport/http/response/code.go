package response

import "net/http"

// 业务码直接使用 HTTP 状态码，成功为 0
const (
	CodeOK               = 0
	CodeBadRequest       = http.StatusBadRequest
	CodeUnauthorized     = http.StatusUnauthorized
	CodeForbidden        = http.StatusForbidden
	CodeNotFound         = http.StatusNotFound
	CodeConflict         = http.StatusConflict
	CodeTooLarge         = http.StatusRequestEntityTooLarge
	CodeUnsupportedMedia = http.StatusUnsupportedMediaType
	CodeTooManyRequests  = http.StatusTooManyRequests
	CodeServerError      = http.StatusInternalServerError
	CodeUnavailable      = http.StatusServiceUnavailable
	CodeTimeout          = http.StatusGatewayTimeout
)

// CodeMsgMap 集中管理 code - message
var CodeMsgMap = map[int]string{
	CodeOK:               "OK",
	CodeBadRequest:       "Bad Request",
	CodeUnauthorized:     "Unauthorized",
	CodeForbidden:        "Forbidden",
	CodeNotFound:         "Not Found",
	CodeConflict:         "Conflict",
	CodeTooLarge:         "Request Entity Too Large",
	CodeUnsupportedMedia: "Unsupported Media Type",
	CodeTooManyRequests:  "Too Many Requests",
	CodeServerError:      "Internal Server Error",
	CodeUnavailable:      "Service Unavailable",
	CodeTimeout:          "Gateway Timeout",
}
