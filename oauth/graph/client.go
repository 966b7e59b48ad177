// Package graph talks to the Meta OAuth dialog and Graph API endpoints used
// to connect a WhatsApp Business Account.
package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Seann-Moser/waconnect/utils"
	"golang.org/x/oauth2"
)

const (
	DefaultOAuthBaseURL = "https://www.facebook.com"
	DefaultGraphBaseURL = "https://graph.facebook.com"
	DefaultAPIVersion   = "v19.0"
	DefaultTimeout      = 15 * time.Second
)

// ErrSchema marks a provider response that did not match the expected shape.
var ErrSchema = errors.New("unexpected provider response")

// API is the subset of the Graph API the connection flow depends on.
type API interface {
	AuthorizationURL(p AuthorizationParams) string
	ExchangeCode(ctx context.Context, code, redirectURI string) (*oauth2.Token, error)
	ExchangeLongLived(ctx context.Context, shortLived string) (*oauth2.Token, error)
	DebugToken(ctx context.Context, inputToken string) (*DebugTokenData, error)
	PhoneNumbers(ctx context.Context, accountID, accessToken string) ([]json.RawMessage, error)
}

type Options struct {
	AppID        string
	AppSecret    string
	APIVersion   string
	OAuthBaseURL string
	GraphBaseURL string
	Timeout      time.Duration
	HTTPClient   *http.Client
	Logger       *slog.Logger
}

// AuthorizationParams are the per-request parts of the dialog URL.
type AuthorizationParams struct {
	RedirectURI string
	State       string
	Scopes      []string
	ConfigID    string
}

var _ API = &Client{}

// Client is a Graph API client. Calls are one-shot; nothing is retried since
// authorization codes are single use.
type Client struct {
	opts Options
	http *http.Client
	log  *slog.Logger
}

func NewClient(opts Options) *Client {
	if opts.APIVersion == "" {
		opts.APIVersion = DefaultAPIVersion
	}
	if opts.OAuthBaseURL == "" {
		opts.OAuthBaseURL = DefaultOAuthBaseURL
	}
	if opts.GraphBaseURL == "" {
		opts.GraphBaseURL = DefaultGraphBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	l := opts.Logger
	if l == nil {
		l = slog.Default()
	}
	opts.OAuthBaseURL = strings.TrimRight(opts.OAuthBaseURL, "/")
	opts.GraphBaseURL = strings.TrimRight(opts.GraphBaseURL, "/")
	return &Client{opts: opts, http: hc, log: l.With("component", "graph")}
}

func (c *Client) oauthConfig(redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.opts.AppID,
		ClientSecret: c.opts.AppSecret,
		RedirectURL:  redirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:  fmt.Sprintf("%s/%s/dialog/oauth", c.opts.OAuthBaseURL, c.opts.APIVersion),
			TokenURL: c.graphURL("oauth/access_token"),
		},
	}
}

// AuthorizationURL builds the OAuth dialog URL. Meta expects a
// comma-separated scope list, so scopes are passed as a raw parameter rather
// than through oauth2.Config.Scopes (which joins with spaces).
func (c *Client) AuthorizationURL(p AuthorizationParams) string {
	opts := []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("scope", strings.Join(p.Scopes, ",")),
	}
	if p.ConfigID != "" {
		opts = append(opts, oauth2.SetAuthURLParam("config_id", p.ConfigID))
	}
	return c.oauthConfig(p.RedirectURI).AuthCodeURL(p.State, opts...)
}

// ExchangeCode trades an authorization code for a short-lived user token.
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI string) (*oauth2.Token, error) {
	q := url.Values{
		"client_id":     {c.opts.AppID},
		"redirect_uri":  {redirectURI},
		"client_secret": {c.opts.AppSecret},
		"code":          {code},
	}
	return c.exchange(ctx, q)
}

// ExchangeLongLived trades a short-lived user token for a ~60 day token.
func (c *Client) ExchangeLongLived(ctx context.Context, shortLived string) (*oauth2.Token, error) {
	q := url.Values{
		"grant_type":        {"fb_exchange_token"},
		"client_id":         {c.opts.AppID},
		"client_secret":     {c.opts.AppSecret},
		"fb_exchange_token": {shortLived},
	}
	return c.exchange(ctx, q)
}

func (c *Client) exchange(ctx context.Context, q url.Values) (*oauth2.Token, error) {
	var resp TokenResponse
	if err := c.get(ctx, "oauth/access_token", q, &resp); err != nil {
		return nil, err
	}
	if err := utils.Struct(resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchema, err)
	}
	tok := &oauth2.Token{
		AccessToken: resp.AccessToken,
		TokenType:   resp.TokenType,
	}
	if resp.ExpiresIn > 0 {
		tok.Expiry = time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	return tok, nil
}

// DebugToken inspects inputToken with the app access token.
func (c *Client) DebugToken(ctx context.Context, inputToken string) (*DebugTokenData, error) {
	q := url.Values{
		"input_token":  {inputToken},
		"access_token": {c.opts.AppID + "|" + c.opts.AppSecret},
	}
	var resp DebugTokenResponse
	if err := c.get(ctx, "debug_token", q, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// PhoneNumbers lists the phone numbers registered under a WABA.
func (c *Client) PhoneNumbers(ctx context.Context, accountID, accessToken string) ([]json.RawMessage, error) {
	q := url.Values{
		"access_token": {accessToken},
		"fields":       {PhoneNumberFields},
	}
	var resp PhoneNumberList
	if err := c.get(ctx, url.PathEscape(accountID)+"/phone_numbers", q, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) graphURL(path string) string {
	return fmt.Sprintf("%s/%s/%s", c.opts.GraphBaseURL, c.opts.APIVersion, path)
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.graphURL(path)+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			// the query carries the app secret and the code
			urlErr.URL = c.graphURL(path)
		}
		return fmt.Errorf("graph request %s failed: %w", path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	// the query carries tokens and the app secret, only the path is logged
	c.log.Debug("graph call", "path", path, "status", resp.StatusCode, "elapsed", time.Since(started))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response, body []byte) error {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error != nil && env.Error.Message != "" {
		env.Error.StatusCode = resp.StatusCode
		return env.Error
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}
