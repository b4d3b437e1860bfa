package cloudinary

import (
	"encoding/json"
	"fmt"
)

// ApiError is a non-success reply from the image-hosting API.
type ApiError struct {
	StatusCode int
	Message    string
}

func (e ApiError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("api request failed with status %d: %s", e.StatusCode, e.Message)
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func newApiError(statusCode int, body []byte) *ApiError {
	apiErr := &ApiError{StatusCode: statusCode}
	parsed := errorBody{}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		apiErr.Message = parsed.Error.Message
	} else if len(body) > 0 && len(body) <= 512 {
		apiErr.Message = string(body)
	}
	return apiErr
}
