package common

const ErrCodeNotFound = "IP_NOT_FOUND"
const ErrCodeTooLarge = "IP_TOO_LARGE"
const ErrCodeMethodNotAllowed = "IP_METHOD_NOT_ALLOWED"
const ErrCodeBadRequest = "IP_BAD_REQUEST"
const ErrCodeForbidden = "IP_FORBIDDEN"
const ErrCodeRateLimitExceeded = "IP_LIMIT_EXCEEDED"
const ErrCodeExportInProgress = "IP_EXPORT_IN_PROGRESS"
const ErrCodeUpstream = "IP_UPSTREAM_FAILED"
const ErrCodeUnknown = "IP_UNKNOWN"
