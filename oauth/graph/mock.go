package graph

import (
	"context"
	"encoding/json"

	"golang.org/x/oauth2"
)

// MockAPI provides customizable hooks for testing code that depends on API.
type MockAPI struct {
	AuthorizationURLFunc  func(p AuthorizationParams) string
	ExchangeCodeFunc      func(ctx context.Context, code, redirectURI string) (*oauth2.Token, error)
	ExchangeLongLivedFunc func(ctx context.Context, shortLived string) (*oauth2.Token, error)
	DebugTokenFunc        func(ctx context.Context, inputToken string) (*DebugTokenData, error)
	PhoneNumbersFunc      func(ctx context.Context, accountID, accessToken string) ([]json.RawMessage, error)
}

// Ensure MockAPI implements API
var _ API = (*MockAPI)(nil)

// AuthorizationURL calls AuthorizationURLFunc if set, otherwise returns ""
func (m *MockAPI) AuthorizationURL(p AuthorizationParams) string {
	if m.AuthorizationURLFunc != nil {
		return m.AuthorizationURLFunc(p)
	}
	return ""
}

// ExchangeCode calls ExchangeCodeFunc if set, otherwise returns nil, nil
func (m *MockAPI) ExchangeCode(ctx context.Context, code, redirectURI string) (*oauth2.Token, error) {
	if m.ExchangeCodeFunc != nil {
		return m.ExchangeCodeFunc(ctx, code, redirectURI)
	}
	return nil, nil
}

// ExchangeLongLived calls ExchangeLongLivedFunc if set, otherwise returns nil, nil
func (m *MockAPI) ExchangeLongLived(ctx context.Context, shortLived string) (*oauth2.Token, error) {
	if m.ExchangeLongLivedFunc != nil {
		return m.ExchangeLongLivedFunc(ctx, shortLived)
	}
	return nil, nil
}

// DebugToken calls DebugTokenFunc if set, otherwise returns nil, nil
func (m *MockAPI) DebugToken(ctx context.Context, inputToken string) (*DebugTokenData, error) {
	if m.DebugTokenFunc != nil {
		return m.DebugTokenFunc(ctx, inputToken)
	}
	return nil, nil
}

// PhoneNumbers calls PhoneNumbersFunc if set, otherwise returns nil, nil
func (m *MockAPI) PhoneNumbers(ctx context.Context, accountID, accessToken string) ([]json.RawMessage, error) {
	if m.PhoneNumbersFunc != nil {
		return m.PhoneNumbersFunc(ctx, accountID, accessToken)
	}
	return nil, nil
}
