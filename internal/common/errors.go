// Package common defines shared constants and sentinel errors used across
// the client layers of GarageKeeper. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (

	// Input errors raised by the CLI and local services.
	ErrorInvalidInput      = errors.New("invalid input")
	ErrorUnknownCollection = errors.New("unknown collection")
)
