// Package validate checks raw driver input before it becomes part of a reading.
package validate

import "errors"

// Error codes reported by the validators.
const (
	CodeOdometerWhitespace = "odometer_whitespace"
	CodeOdometerDecimal    = "odometer_decimal"
	CodeOdometerNonDigit   = "odometer_non_digit"
	CodeOdometerOverflow   = "odometer_overflow"
	CodeOdometerBelowFleet = "odometer_below_fleet"
	CodeOdometerBelowTrip  = "odometer_below_trip"

	CodeWeightWhitespace = "weight_whitespace"
	CodeWeightFormat     = "weight_format"
	CodeWeightRange      = "weight_range"
)

// Error is a recoverable input rejection. Message is shown to the driver as is.
type Error struct {
	code    string
	Message string
	// Minimum is the required lower bound for ordering violations.
	Minimum int64
}

func (e *Error) Error() string { return e.Message }

// Code returns the stable rejection code used in logs and metrics.
func (e *Error) Code() string { return e.code }

// AsError extracts a validation error from err.
func AsError(err error) (*Error, bool) {
	var verr *Error
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

func reject(code, msg string) *Error {
	return &Error{code: code, Message: msg}
}
