// errors.go — типизированные ошибки бизнес-логики выдачи и погашения ссылок.
// Клиентские отказы (NotFound, Expired и т.д.) — нормальные исходы,
// серверные (Integrity, Conflict) — повод для алерта.
package service

import (
	"errors"
	"fmt"

	"github.com/Secure-File-Sharing-System/SIF/internal/domain/model"
)

// RedeemReason — причина отказа в погашении ссылки.
type RedeemReason string

const (
	ReasonNotFound      RedeemReason = "not_found"
	ReasonExpired       RedeemReason = "expired"
	ReasonInactive      RedeemReason = "inactive"
	ReasonQuotaExceeded RedeemReason = "quota_exceeded"
	ReasonUnauthorized  RedeemReason = "unauthorized"
	ReasonIntegrity     RedeemReason = "integrity"
	ReasonConflict      RedeemReason = "conflict"
)

// RedeemError — отказ в погашении с причиной.
type RedeemError struct {
	Reason RedeemReason
	// Status заполняется для ReasonInactive: в каком статусе находится ссылка.
	Status model.LinkStatus
	Err    error
}

func (e *RedeemError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("погашение отклонено (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("погашение отклонено (%s)", e.Reason)
}

func (e *RedeemError) Unwrap() error {
	return e.Err
}

// IsClientFault сообщает, вызван ли отказ состоянием ссылки или действиями
// клиента. Такие отказы не логируются как ошибки сервиса.
func (e *RedeemError) IsClientFault() bool {
	switch e.Reason {
	case ReasonNotFound, ReasonExpired, ReasonInactive, ReasonQuotaExceeded, ReasonUnauthorized:
		return true
	}
	return false
}

// AsRedeemError извлекает RedeemError из цепочки ошибок.
func AsRedeemError(err error) (*RedeemError, bool) {
	var re *RedeemError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// ErrInvalidTransition возвращается при попытке недопустимой смены статуса,
// например реактивации истекшей ссылки.
var ErrInvalidTransition = errors.New("недопустимый переход статуса")

// ErrNotFound — запрошенная ссылка не существует.
var ErrNotFound = errors.New("ссылка не найдена")
