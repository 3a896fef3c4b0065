package port

import "errors"

// Client-side error taxonomy. Transport errors report errors.Is against one of these.
var (
	ErrAuthExpired       = errors.New("session expired")
	ErrAuthCheckNegative = errors.New("not authenticated")
	ErrNetwork           = errors.New("network failure")
	ErrValidation        = errors.New("validation failed")
	ErrRemoteRejection   = errors.New("request rejected")
	ErrNotFound          = errors.New("not found")
	ErrStaleResult       = errors.New("result belongs to a view that is no longer current")
	ErrSubmitInFlight    = errors.New("submission already in flight")
	ErrUnknownProvider   = errors.New("unknown identity provider")
)

// Server-side sentinel errors.
var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenInvalid     = errors.New("token invalid")
	ErrTokenRevoked     = errors.New("token revoked")
	ErrUserNotFound     = errors.New("user not found")
	ErrCourseNotFound   = errors.New("course not found")
	ErrLessonNotFound   = errors.New("lesson not found")
	ErrInvalidProgress  = errors.New("invalid progress update")
	ErrProviderDisabled = errors.New("provider not configured")
)
