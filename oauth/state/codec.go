package state

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Seann-Moser/waconnect/utils"
)

const signatureSeparator = "."

// Codec turns a ConnectionState into a URL-safe string and back. With a
// key the payload is followed by an HMAC-SHA256 signature; without one the
// value is plain base64url JSON.
type Codec struct {
	key []byte
}

// NewCodec returns a codec. A nil or empty key disables signing.
func NewCodec(key []byte) *Codec {
	return &Codec{key: key}
}

// Signed reports whether the codec signs and verifies state values.
func (c *Codec) Signed() bool {
	return len(c.key) > 0
}

// Encode validates s and serializes it.
func (c *Codec) Encode(s ConnectionState) (string, error) {
	if err := utils.Struct(s); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	jsonData, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	value := base64.RawURLEncoding.EncodeToString(jsonData)
	if !c.Signed() {
		return value, nil
	}
	return value + signatureSeparator + computeHMAC(value, c.key), nil
}

// Decode treats raw as untrusted input: it verifies the signature when the
// codec is keyed, decodes strictly and validates every field.
func (c *Codec) Decode(raw string) (ConnectionState, error) {
	var s ConnectionState
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return s, fmt.Errorf("%w: empty value", ErrInvalid)
	}

	value := raw
	if c.Signed() {
		parts := strings.Split(raw, signatureSeparator)
		if len(parts) != 2 {
			return s, fmt.Errorf("%w: missing signature", ErrInvalid)
		}
		value = parts[0]
		if !validateHMAC(value, parts[1], c.key) {
			return s, fmt.Errorf("%w: bad signature", ErrInvalid)
		}
	}

	// some encoders keep the base64 padding
	jsonData, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(value, "="))
	if err != nil {
		return s, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	dec := json.NewDecoder(bytes.NewReader(jsonData))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return ConnectionState{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if dec.More() {
		return ConnectionState{}, fmt.Errorf("%w: trailing data", ErrInvalid)
	}
	if err := utils.Struct(s); err != nil {
		return ConnectionState{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return s, nil
}

func computeHMAC(message string, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(message))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func validateHMAC(message, sig string, secret []byte) bool {
	expected := computeHMAC(message, secret)
	return hmac.Equal([]byte(sig), []byte(expected))
}
