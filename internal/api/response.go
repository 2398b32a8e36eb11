package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorCode — машиночитаемый код ошибки API.
type ErrorCode string

// Коды ошибок.
const (
	ErrCodeBadRequest     ErrorCode = "bad_request"
	ErrCodeConflict       ErrorCode = "conflict"
	ErrCodeMethodNotAllow ErrorCode = "method_not_allowed"
	ErrCodeInternalError  ErrorCode = "internal_error"
)

// DataResponse — обёртка успешного ответа.
type DataResponse struct {
	Data any `json:"data"`
}

// ErrorDetail — тело ошибки.
type ErrorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// ErrorResponse — обёртка ответа с ошибкой.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// JSON отправляет произвольный JSON-ответ.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Data отправляет успешный ответ в обёртке {"data": ...}.
func Data(w http.ResponseWriter, status int, v any) {
	JSON(w, status, DataResponse{Data: v})
}

// Error отправляет ответ с ошибкой.
func Error(w http.ResponseWriter, status int, code ErrorCode, message string) {
	JSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// BadRequest отправляет ошибку 400.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// Conflict отправляет ошибку 409.
func Conflict(w http.ResponseWriter, message string) {
	Error(w, http.StatusConflict, ErrCodeConflict, message)
}

// MethodNotAllowed отправляет ошибку 405.
func MethodNotAllowed(w http.ResponseWriter) {
	Error(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllow, "method not allowed")
}

// InternalError логирует ошибку и отправляет 500 без деталей.
func InternalError(w http.ResponseWriter, logger *slog.Logger, err error) {
	logger.Error("internal error", "error", err)
	Error(w, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
}
