package ingest

import "strings"

// ConfigurationError reports that no usable provider alias was supplied.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

// MaskIntegrityError reports provider aliases still present after masking.
type MaskIntegrityError struct {
	Issues []string
}

func (e *MaskIntegrityError) Error() string {
	return strings.Join(e.Issues, "; ")
}
