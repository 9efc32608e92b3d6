package log

// Canonical field name constants for structured logging.
const (
	FieldComponent = "component"
	FieldEvent     = "event"
	FieldRequestID = "request_id"

	FieldEndpoint = "endpoint"
	FieldChannel  = "channel"
	FieldSlug     = "slug"
	FieldPath     = "path"
	FieldURL      = "url"
	FieldCode     = "code"
	FieldAttempt  = "attempt"
)
