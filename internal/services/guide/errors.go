package guide

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrBackendUnreachable = errors.New("guide backend unreachable")
	ErrInvalidInput       = errors.New("invalid input parameters")
)

const (
	UnreachableMessage  = "Unable to connect to the server. Please ensure the backend is running."
	GenericMessage      = "Something went wrong. Try again."
	ShapeMessage        = "The guide service returned an incomplete guide. Please try again."
	InvalidInputMessage = "Please fill in every field. Sunlight hours must be a whole number."
)

// APIError is a non-2xx answer from the backend. Message is already the
// human-readable text to show.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// ShapeError reports a 2xx response whose body does not match the guide
// schema. Path is the JSON path that failed, e.g. "plant_care_guidance.daily_care".
type ShapeError struct {
	Path string
	Err  error
}

func (e *ShapeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("unexpected guide response: missing %s", e.Path)
	}
	if e.Path == "" {
		return fmt.Sprintf("unexpected guide response: %v", e.Err)
	}
	return fmt.Sprintf("unexpected guide response at %s: %v", e.Path, e.Err)
}

func (e *ShapeError) Unwrap() error {
	return e.Err
}

// UserMessage maps any error from RequestGuide to the single line shown to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *APIError
	var shapeErr *ShapeError
	switch {
	case errors.As(err, &apiErr):
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return GenericMessage
	case errors.Is(err, ErrBackendUnreachable):
		return UnreachableMessage
	case errors.As(err, &shapeErr):
		return ShapeMessage
	case errors.Is(err, ErrInvalidInput):
		return InvalidInputMessage
	default:
		return GenericMessage
	}
}

// Outcome classifies an error for usage logging.
func Outcome(err error) string {
	var apiErr *APIError
	var shapeErr *ShapeError
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &apiErr):
		return "api_error"
	case errors.Is(err, ErrBackendUnreachable):
		return "unreachable"
	case errors.As(err, &shapeErr):
		return "shape_error"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	default:
		return "error"
	}
}
