package domain

import "fmt"

// Error codes for configuration failures. Configuration errors are fatal at
// startup: the engine refuses to serve requests rather than operate on
// inconsistent taxonomy or rule data.
const (
	ErrSchemaViolation   = "SCHEMA_VIOLATION"
	ErrDuplicateID       = "DUPLICATE_CANONICAL_ID"
	ErrAmbiguousSynonym  = "AMBIGUOUS_SYNONYM"
	ErrBadPattern        = "UNPARSEABLE_PATTERN"
	ErrUnknownCanonical  = "UNKNOWN_CANONICAL_ID"
	ErrCrossDomainBucket = "CROSS_DOMAIN_BUCKET"
)

// ConfigError is a fatal startup-time configuration error. It is never
// produced at request time; request-time ambiguity is encoded in the
// Decision record instead.
type ConfigError struct {
	Code     string `json:"code"`
	Document string `json:"document,omitempty"`
	Message  string `json:"message"`
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Document != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Document, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewConfigError creates a ConfigError for the given document.
func NewConfigError(code, document, format string, args ...interface{}) *ConfigError {
	return &ConfigError{
		Code:     code,
		Document: document,
		Message:  fmt.Sprintf(format, args...),
	}
}
