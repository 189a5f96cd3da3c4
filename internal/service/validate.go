package service

import "fmt"

// MissingFieldError names the first required field that was absent or empty.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field %q", e.Field)
}

// ValidateRequired checks required in order and stops at the first field
// that is missing or empty. It does not report further missing fields.
func ValidateRequired(fields map[string]string, required []string) error {
	for _, name := range required {
		if fields[name] == "" {
			return &MissingFieldError{Field: name}
		}
	}
	return nil
}
