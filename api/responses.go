package api

import (
	"io"

	"github.com/t2bot/image-backup-proxy/common"
)

type EmptyResponse struct{}

type DoNotCacheResponse struct {
	Payload interface{}
}

type TextResponse struct {
	Text string
}

// StreamResponse is written directly to the client. Once WriteTo starts the
// status and headers are committed, so failures can only abort the connection.
type StreamResponse struct {
	ContentType string
	Filename    string
	WriteTo     func(w io.Writer) error
}

type ErrorResponse struct {
	Code         string `json:"errcode"`
	Message      string `json:"error"`
	InternalCode string `json:"ip_errcode"`
}

func InternalServerError(message string) *ErrorResponse {
	return &ErrorResponse{common.ErrCodeUnknown, message, common.ErrCodeUnknown}
}

func MethodNotAllowed() *ErrorResponse {
	return &ErrorResponse{common.ErrCodeUnknown, "Method Not Allowed", common.ErrCodeMethodNotAllowed}
}

func RateLimitReached() *ErrorResponse {
	return &ErrorResponse{common.ErrCodeRateLimitExceeded, "Rate Limited", common.ErrCodeRateLimitExceeded}
}

func NotFoundError() *ErrorResponse {
	return &ErrorResponse{common.ErrCodeNotFound, "Not found", common.ErrCodeNotFound}
}

func RequestTooLarge() *ErrorResponse {
	return &ErrorResponse{common.ErrCodeTooLarge, "Too Large", common.ErrCodeTooLarge}
}

func BadRequest(message string) *ErrorResponse {
	return &ErrorResponse{common.ErrCodeUnknown, message, common.ErrCodeBadRequest}
}

func OriginNotAllowed() *ErrorResponse {
	return &ErrorResponse{common.ErrCodeForbidden, "Not allowed by CORS", common.ErrCodeForbidden}
}

func ExportInProgress() *ErrorResponse {
	return &ErrorResponse{common.ErrCodeExportInProgress, "An export is already running", common.ErrCodeExportInProgress}
}

func UpstreamError(message string) *ErrorResponse {
	return &ErrorResponse{common.ErrCodeUnknown, message, common.ErrCodeUpstream}
}
