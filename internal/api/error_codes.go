// internal/api/error_codes.go
package api

// API error codes. Errors coming from the services carry their own code
// (see internal/errors); these cover failures raised by the HTTP layer itself.
const (
	// general
	ErrorBadRequest      = "BAD_REQUEST"
	ErrorNotFound        = "NOT_FOUND"
	ErrorInternalError   = "INTERNAL_ERROR"
	ErrorConflict        = "CONFLICT"
	ErrorRateLimited     = "RATE_LIMIT_EXCEEDED"
	ErrorPayloadTooLarge = "PAYLOAD_TOO_LARGE"

	// request parsing
	ErrorInvalidJSON    = "INVALID_JSON"
	ErrorInvalidPanelID = "INVALID_PANEL_ID"

	// files
	ErrorFileInvalid  = "FILE_INVALID"
	ErrorFileMissing  = "FILE_MISSING"
	ErrorFileNotFound = "FILE_NOT_FOUND"

	// settings
	ErrorConfigInvalid = "CONFIG_INVALID"
	ErrorConfigSave    = "CONFIG_SAVE_FAILED"
)
