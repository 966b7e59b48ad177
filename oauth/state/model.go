// Package state encodes the opaque OAuth "state" parameter that carries the
// connecting assistant across the provider redirect.
package state

import "errors"

// ErrInvalid is returned for any state value that does not decode, verify
// and validate.
var ErrInvalid = errors.New("invalid oauth state")

// ConnectionState correlates a provider callback with the assistant that
// started the connection.
type ConnectionState struct {
	AssistantID string `json:"assistantId" validate:"required,entityid"`
	BusinessID  string `json:"businessId" validate:"required,entityid"`
	CustomerID  string `json:"customerId" validate:"required,entityid"`
}
