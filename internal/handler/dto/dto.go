// Package dto provides Data Transfer Objects for API requests and responses.
//
// Request types validate themselves: required fields and enum membership are
// checked here so the services can trust their inputs.
package dto

import (
	"fmt"
	"strings"
)

// ValidationError is returned by Validate methods. Its message is safe to
// show to API clients.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// required returns a ValidationError naming every blank field.
// pairs alternates field name and value.
func required(pairs ...string) error {
	var missing []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			missing = append(missing, pairs[i])
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return invalid("missing required fields: %s", strings.Join(missing, ", "))
}
