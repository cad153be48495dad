// Пакет errors — конструкторы стандартных ошибок HTTP API SIF.
// Единый формат: {"error": {"code": "...", "message": "..."}}.
// Все HTTP-ответы с ошибками должны использовать WriteError.
package errors //nolint:revive // конфликт имени со stdlib осознанный, пакет внутренний

import (
	"encoding/json"
	"net/http"
)

// Коды ошибок API.
const (
	CodeValidationError   = "VALIDATION_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeLinkExpired       = "LINK_EXPIRED"
	CodeLinkInactive      = "LINK_INACTIVE"
	CodeQuotaExceeded     = "QUOTA_EXCEEDED"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeFileTooLarge      = "FILE_TOO_LARGE"
	CodeIntegrityError    = "INTEGRITY_ERROR"
	CodeConflict          = "CONFLICT"
	CodeInternalError     = "INTERNAL_ERROR"
)

// errorBody — структура тела ответа ошибки.
type errorBody struct {
	Error errorDetail `json:"error"`
}

// errorDetail — детали ошибки.
type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError записывает ответ ошибки в стандартном формате SIF.
// statusCode — HTTP статус-код, code — машиночитаемый код, message — описание.
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// --- Конструкторы для типичных ошибок ---

// ValidationError — 400 некорректные входные данные.
func ValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeValidationError, message)
}

// NotFound — 404 ресурс не найден.
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, CodeNotFound, message)
}

// LinkExpired — 410 срок действия ссылки истёк.
func LinkExpired(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusGone, CodeLinkExpired, message)
}

// LinkInactive — 409 ссылка отключена или истекла.
func LinkInactive(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, CodeLinkInactive, message)
}

// QuotaExceeded — 410 квота скачиваний исчерпана.
func QuotaExceeded(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusGone, CodeQuotaExceeded, message)
}

// Unauthorized — 401 неверный или отсутствующий пароль.
func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, CodeUnauthorized, message)
}

// InvalidTransition — 409 недопустимый переход статуса.
func InvalidTransition(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, CodeInvalidTransition, message)
}

// FileTooLarge — 413 файл превышает лимит.
func FileTooLarge(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusRequestEntityTooLarge, CodeFileTooLarge, message)
}

// IntegrityError — 500 содержимое отсутствует при активной записи.
func IntegrityError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeIntegrityError, message)
}

// Conflict — 503 не удалось применить конкурентное обновление.
func Conflict(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusServiceUnavailable, CodeConflict, message)
}

// InternalError — 500 внутренняя ошибка.
func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeInternalError, message)
}
