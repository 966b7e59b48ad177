package graph

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/Seann-Moser/waconnect/utils"
)

// Granted permission names requested by the connection flow.
const (
	ScopeBusinessManagement = "whatsapp_business_management"
	ScopeBusinessMessaging  = "whatsapp_business_messaging"
)

// PhoneNumberFields is the field list requested for a WABA's phone numbers.
const PhoneNumberFields = "id,verified_name,display_phone_number,quality_rating,is_embedded_signup_number"

// /oauth/access_token
type TokenResponse struct {
	AccessToken string `json:"access_token" validate:"required"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// /debug_token
type DebugTokenResponse struct {
	Data DebugTokenData `json:"data"`
}

type DebugTokenData struct {
	AppID          string          `json:"app_id"`
	Type           string          `json:"type"`
	Application    string          `json:"application"`
	ExpiresAt      int64           `json:"expires_at"`
	IsValid        bool            `json:"is_valid"`
	Scopes         []string        `json:"scopes"`
	GranularScopes []GranularScope `json:"granular_scopes"`
}

// GranularScope lists the assets a single permission was granted on.
type GranularScope struct {
	Scope     string   `json:"scope"`
	TargetIDs []string `json:"target_ids,omitempty"`
}

// /{waba_id}/phone_numbers
// Entries stay raw so each one can be checked on its own once selected.
type PhoneNumberList struct {
	Data []json.RawMessage `json:"data"`
}

// PhoneNumber is a fully validated phone number record.
type PhoneNumber struct {
	ID                     string `json:"id" validate:"required"`
	VerifiedName           string `json:"verified_name" validate:"required"`
	DisplayPhoneNumber     string `json:"display_phone_number" validate:"required"`
	QualityRating          string `json:"quality_rating" validate:"required,oneof=GREEN YELLOW RED UNKNOWN NA"`
	IsEmbeddedSignupNumber bool   `json:"is_embedded_signup_number,omitempty"`
}

// ParsePhoneNumber decodes a single phone number entry and checks that every
// field the binding needs is present and well typed.
func ParsePhoneNumber(raw json.RawMessage) (PhoneNumber, error) {
	var p PhoneNumber
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&p); err != nil {
		return p, fmt.Errorf("%w: %v", ErrSchema, err)
	}
	if err := utils.Struct(p); err != nil {
		return p, fmt.Errorf("%w: %v", ErrSchema, err)
	}
	return p, nil
}

// APIError is the Graph API error envelope plus the HTTP status it came with.
type APIError struct {
	StatusCode   int    `json:"-"`
	Message      string `json:"message"`
	Type         string `json:"type"`
	Code         int    `json:"code"`
	ErrorSubcode int    `json:"error_subcode,omitempty"`
	FBTraceID    string `json:"fbtrace_id,omitempty"`
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("graph api: %s (%s, status %d)", e.Message, e.Type, e.StatusCode)
	}
	return fmt.Sprintf("graph api: %s (status %d)", e.Message, e.StatusCode)
}

type errorEnvelope struct {
	Error *APIError `json:"error"`
}
