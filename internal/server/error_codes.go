package server

const (
	// Validation (1xxx)
	ErrCodeInvalidArgument = 1000
	ErrCodeInvalidJSON     = 1001
	ErrCodeRequestTooLarge = 1002
	ErrCodeInvalidID       = 1003
	ErrCodeMissingRequired = 1004
	ErrCodeInvalidEmail    = 1005
	ErrCodeInvalidPassword = 1006
	ErrCodeInvalidName     = 1007

	// Domain state (2xxx)
	ErrCodeFileNotFound    = 2001
	ErrCodeAccountNotFound = 2002
	ErrCodeEmailTaken      = 2101
	ErrCodeQuotaExceeded   = 2201

	// Auth & limits (3xxx)
	ErrCodeUnauthorized      = 3001
	ErrCodeForbidden         = 3002
	ErrCodeResourceExhausted = 3003

	// Internal/system (4xxx)
	ErrCodeInternal     = 4001
	ErrCodeStoreFailure = 4002
	ErrCodeBlobFailure  = 4003
)

func defaultErrorCodeByStatus(status int) int {
	switch status {
	case 400:
		return ErrCodeInvalidArgument
	case 401:
		return ErrCodeUnauthorized
	case 403:
		return ErrCodeForbidden
	case 404:
		return ErrCodeFileNotFound
	case 409:
		return ErrCodeEmailTaken
	case 413:
		return ErrCodeQuotaExceeded
	case 429:
		return ErrCodeResourceExhausted
	case 500:
		return ErrCodeInternal
	default:
		return 0
	}
}
