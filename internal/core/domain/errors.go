package domain

import "fmt"

type ErrorKind string

const (
	ErrorKindValidation ErrorKind = "validation"
	ErrorKindConflict   ErrorKind = "conflict"
	ErrorKindNotFound   ErrorKind = "not_found"
	ErrorKindExternal   ErrorKind = "external"
)

type ErrorCode string

const (
	CodeSlotConflict          ErrorCode = "slot_conflict"
	CodePatientDoubleBooked   ErrorCode = "patient_double_booked"
	CodeDoctorUnavailable     ErrorCode = "doctor_unavailable"
	CodeInvalidBookingTime    ErrorCode = "invalid_booking_time"
	CodeInvalidInput          ErrorCode = "invalid_input"
	CodeAlreadyActive         ErrorCode = "already_active"
	CodeNotActive             ErrorCode = "not_active"
	CodeNotPaused             ErrorCode = "not_paused"
	CodeInvalidReorderRequest ErrorCode = "invalid_reorder_request"
	CodeInvalidTransition     ErrorCode = "invalid_transition"
	CodeAppointmentNotFound   ErrorCode = "appointment_not_found"
	CodeStoreFailure          ErrorCode = "store_failure"
)

// Типизированная ошибка ядра: вид определяет HTTP-статус на границе,
// код стабилен для клиентов, сообщение человекочитаемое.
type Error struct {
	Kind    ErrorKind
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewValidationError(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{Kind: ErrorKindValidation, Code: code, Message: fmt.Sprintf(format, args...)}
}

func NewConflictError(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{Kind: ErrorKindConflict, Code: code, Message: fmt.Sprintf(format, args...)}
}

func NewNotFoundError(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{Kind: ErrorKindNotFound, Code: code, Message: fmt.Sprintf(format, args...)}
}

func NewExternalError(code ErrorCode, message string, err error) *Error {
	return &Error{Kind: ErrorKindExternal, Code: code, Message: message, Err: err}
}

func ErrorKindOf(err error) ErrorKind {
	if domainErr, ok := err.(*Error); ok {
		return domainErr.Kind
	}
	return ErrorKindExternal
}

func ErrorCodeOf(err error) ErrorCode {
	if domainErr, ok := err.(*Error); ok {
		return domainErr.Code
	}
	return ErrorCode("")
}
