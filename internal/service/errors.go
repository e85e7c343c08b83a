package service

type ErrorCode string

const (
	ErrorCodeAdminExists        ErrorCode = "ADMIN_EXISTS"
	ErrorCodeTeamExists         ErrorCode = "TEAM_EXISTS"
	ErrorCodeMemberExists       ErrorCode = "MEMBER_EXISTS"
	ErrorCodeSessionOpen        ErrorCode = "SESSION_OPEN"
	ErrorCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrorCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrorCodeInvalidBody        ErrorCode = "INVALID_BODY"
	ErrorCodeUnspecified        ErrorCode = "UNSPECIFIED"
)

type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

func (e *Error) Error() string {
	return e.Message
}
