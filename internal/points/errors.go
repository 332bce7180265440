package points

import "fmt"

// Коды предусловий; уходят клиенту как есть, чтобы он мог поправить запрос.
const (
	CodeNoActivePeriod      = "NoActivePeriod"
	CodeNoActiveRuleVersion = "NoActiveRuleVersion"
	CodeEmptyAward          = "EmptyAward"
	CodeSnapshotExists      = "SnapshotExists"
	CodeNotFound            = "NotFound"
	CodeWrongStatus         = "WrongStatus"
	CodeDuplicateRequest    = "DuplicateRequest"
)

// ValidationError — кривой ввод; отклоняем до открытия транзакции.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func validationf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// PreconditionError — состояние системы не позволяет операцию (нет активного
// периода, пустой набор правил, снапшот уже снят и т.п.).
type PreconditionError struct {
	Code string
	Msg  string
}

func (e *PreconditionError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Msg) }

func precondition(code, format string, args ...any) error {
	return &PreconditionError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// AuthorizationError наружу уходит без деталей: не раскрываем, существует ли
// ресурс.
type AuthorizationError struct {
	Msg string
}

func (e *AuthorizationError) Error() string { return e.Msg }

var errForbidden = &AuthorizationError{Msg: "недостаточно прав"}
