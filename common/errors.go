package common

import (
	"errors"
)

var ErrExportInProgress = errors.New("another export is already running")
var ErrExportAlreadyRun = errors.New("exporter has already been used")
var ErrInvalidState = errors.New("exporter is not in the required state")
var ErrAssetTooLarge = errors.New("asset exceeds the configured size limit")
var ErrNoContentUrl = errors.New("record has no content url")
var ErrOriginNotAllowed = errors.New("origin not allowed")
var ErrMissingCredentials = errors.New("api credentials are not configured")
