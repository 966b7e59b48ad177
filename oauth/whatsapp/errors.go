package whatsapp

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by this package matches exactly one of
// them with errors.Is.
var (
	ErrConfiguration         = errors.New("configuration error")
	ErrInvalidInput          = errors.New("invalid input")
	ErrInvalidCallback       = errors.New("invalid callback")
	ErrAuthorizationDenied   = errors.New("authorization denied")
	ErrInvalidState          = errors.New("invalid state")
	ErrProviderToken         = errors.New("provider token exchange failed")
	ErrAccountResolution     = errors.New("account resolution failed")
	ErrNoPhoneNumbers        = errors.New("no phone numbers")
	ErrPhoneResolution       = errors.New("phone number resolution failed")
	ErrMalformedProviderData = errors.New("malformed provider data")
	ErrNotFound              = errors.New("not found")
	ErrPersistence           = errors.New("persistence error")
	ErrInternal              = errors.New("internal error")
)

var kinds = []error{
	ErrConfiguration,
	ErrInvalidInput,
	ErrInvalidCallback,
	ErrAuthorizationDenied,
	ErrInvalidState,
	ErrProviderToken,
	ErrAccountResolution,
	ErrNoPhoneNumbers,
	ErrPhoneResolution,
	ErrMalformedProviderData,
	ErrNotFound,
	ErrPersistence,
	ErrInternal,
}

// errCodeAlreadyUsed sits under ErrInvalidCallback when the replay guard
// has seen the authorization code before.
var errCodeAlreadyUsed = errors.New("authorization code already used")

// Error is a failed step. Message is safe to show to end users, Err holds
// the detail that should only be logged.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Exchange names one of the two token exchanges.
type Exchange string

const (
	ExchangeShortLived Exchange = "short-lived"
	ExchangeLongLived  Exchange = "long-lived"
)

// ProviderTokenError is the detail of an ErrProviderToken failure.
type ProviderTokenError struct {
	Exchange Exchange
	// ProviderMessage is the provider's error.message, when it sent one.
	ProviderMessage string
	Err             error
}

func (e *ProviderTokenError) Error() string {
	if e.ProviderMessage != "" {
		return fmt.Sprintf("%s token exchange: %s", e.Exchange, e.ProviderMessage)
	}
	return fmt.Sprintf("%s token exchange: %v", e.Exchange, e.Err)
}

func (e *ProviderTokenError) Unwrap() error {
	return e.Err
}

// KindOf returns the error kind err matches, or nil.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// UserMessage returns the end-user message carried by err.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Unexpected error while connecting WhatsApp."
}
