package models

import (
	"errors"
	"fmt"
)

var (
	// ErrFacilityNotFound is returned by single-facility lookups.
	ErrFacilityNotFound = errors.New("facility not found")
	// ErrPlaceNotFound is returned when a direct place lookup has no match.
	ErrPlaceNotFound = errors.New("place not found")
)

// ValidationError reports unusable caller input. The pipeline is not entered.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid request: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for the given field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// ConfigError reports a missing or invalid piece of required configuration.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s %s", e.Key, e.Reason)
}

// MissingConfig builds a ConfigError for an unset key.
func MissingConfig(key string) error {
	return &ConfigError{Key: key, Reason: "is not set"}
}

// GeocodeError reports that a place name could not be turned into coordinates.
type GeocodeError struct {
	Place  string
	Status string
	Err    error
}

func (e *GeocodeError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("geocode %q: %v", e.Place, e.Err)
	case e.Status != "":
		return fmt.Sprintf("geocode %q: status %s", e.Place, e.Status)
	default:
		return fmt.Sprintf("geocode %q failed", e.Place)
	}
}

func (e *GeocodeError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsConfig reports whether err is a ConfigError.
func IsConfig(err error) bool {
	var c *ConfigError
	return errors.As(err, &c)
}
