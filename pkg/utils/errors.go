package utils

import "fmt"

type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Details)
	}
	return e.Message
}

func NewSetupError(step string, err error) *APIError {
	return &APIError{
		Code:    2001,
		Message: fmt.Sprintf("setup step %s failed", step),
		Details: err.Error(),
	}
}

func NewValidationError(field string, value interface{}) *APIError {
	return &APIError{
		Code:    3001,
		Message: fmt.Sprintf("invalid parameter: %s", field),
		Details: fmt.Sprintf("invalid value: %v", value),
	}
}

func NewNotFoundError(resource, id string) *APIError {
	return &APIError{
		Code:    4004,
		Message: fmt.Sprintf("%s not found", resource),
		Details: id,
	}
}

func NewSystemError(err error) *APIError {
	return &APIError{
		Code:    5001,
		Message: "system error",
		Details: err.Error(),
	}
}
