package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a food id is absent from both the live
	// source and the stale cache, or from the custom store.
	ErrNotFound = errors.New("food not found")

	// ErrUnsupportedUnit is returned for a unit outside the weight, volume
	// and descriptive tables.
	ErrUnsupportedUnit = errors.New("unsupported unit")

	// ErrMissingConversionData is returned when density or portion metadata
	// required for a conversion is absent.
	ErrMissingConversionData = errors.New("conversion data not available")

	// ErrAmbiguousConversion is returned when a descriptive unit matches no
	// resolution tier.
	ErrAmbiguousConversion = errors.New("no matching portion")

	// ErrMalformedData is returned when mandatory nutrients are missing
	// after normalization or scaling.
	ErrMalformedData = errors.New("malformed nutrition data")

	// ErrInvalidInput is returned for invalid caller-supplied values such as
	// a non-positive serving amount or a negative nutrient.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnitMismatch is returned when a per-serving custom food is
	// requested in a unit other than the one it was saved with.
	ErrUnitMismatch = errors.New("unit mismatch")

	// ErrUpstreamFailure is returned when an upstream API request fails.
	ErrUpstreamFailure = errors.New("upstream API request failed")
)

// weightUnitHint is appended to conversion failures so callers can
// self-diagnose without consulting logs.
const weightUnitHint = "Try again using a weight unit such as g or oz."

// ConversionError reports a failed unit-to-grams conversion with enough
// context to retry. It unwraps to one of the conversion sentinels.
type ConversionError struct {
	Unit              string
	Reason            string
	AvailablePortions []string
	Sentinel          error
}

func (e *ConversionError) Error() string {
	msg := fmt.Sprintf("cannot convert unit %q: %s", e.Unit, e.Reason)
	if len(e.AvailablePortions) > 0 {
		msg += fmt.Sprintf(". Available portions: %s", strings.Join(e.AvailablePortions, ", "))
	}
	return msg + ". " + weightUnitHint
}

func (e *ConversionError) Unwrap() error { return e.Sentinel }

// UnsupportedUnitError reports an unrecognized unit and lists every
// supported one.
type UnsupportedUnitError struct {
	Unit      string
	Supported []string
}

func (e *UnsupportedUnitError) Error() string {
	return fmt.Sprintf("unsupported unit: %q. Supported units: %s",
		e.Unit, strings.Join(e.Supported, ", "))
}

func (e *UnsupportedUnitError) Unwrap() error { return ErrUnsupportedUnit }

// UnitMismatchError reports a per-serving custom food requested in the wrong
// unit, naming the unit the food was saved with.
type UnitMismatchError struct {
	FoodID    string
	Requested string
	Stored    string
}

func (e *UnitMismatchError) Error() string {
	return fmt.Sprintf("cannot convert unit %q to %q for this custom food: it was saved per %s",
		e.Requested, e.Stored, e.Stored)
}

func (e *UnitMismatchError) Unwrap() error { return ErrUnitMismatch }

// MealItemError wraps a failed meal item lookup with its index and id.
type MealItemError struct {
	Index  int
	FoodID string
	Err    error
}

func (e *MealItemError) Error() string {
	return fmt.Sprintf("failed to get nutrition for item %d (foodId: %q): %v",
		e.Index, e.FoodID, e.Err)
}

func (e *MealItemError) Unwrap() error { return e.Err }
