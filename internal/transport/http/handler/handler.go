package handler

import (
	"errors"
	"net/http"

	"ajeu-backend/internal/core/apperr"
)

// badInput 手动绑定 / 取表单失败时的 400
func badInput(err error, msg string) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperr.BadRequest("request body too large")
	}
	return apperr.BadRequest(msg)
}
