package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Seann-Moser/waconnect/assistant"
	"github.com/Seann-Moser/waconnect/oauth/graph"
	"github.com/Seann-Moser/waconnect/oauth/replay"
	"github.com/Seann-Moser/waconnect/oauth/state"
	"golang.org/x/oauth2"
)

const (
	testShortToken = "EAAG-SHORT-LIVED-0001"
	testLongToken  = "EAAG-LONG-LIVED-TOKEN-9999"
	testCallback   = "https://app.test/api/oauth/whatsapp/callback"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

// syncBuffer lets the logger be read back while handlers write to it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type fixture struct {
	cfg      Config
	api      *graph.MockAPI
	codec    *state.Codec
	store    *assistant.MemoryStore
	guard    *replay.MemoryGuard
	logs     *syncBuffer
	logger   *slog.Logger
	resolver *Resolver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		cfg: Config{
			AppID:                  "APP123",
			AppSecret:              "APP-SECRET",
			EmbeddedSignupConfigID: "CFG-1",
			CallbackURL:            testCallback,
			CallTimeout:            time.Second,
		},
		api:   happyAPI(),
		codec: state.NewCodec(testKey),
		store: assistant.NewMemoryStore(
			assistant.Assistant{ID: "a1", BusinessID: "b1", Name: "Front desk"},
			assistant.Assistant{ID: "a2", BusinessID: "b2", Name: "Other"},
		),
		guard: replay.NewMemoryGuard(time.Minute),
		logs:  &syncBuffer{},
	}
	f.logger = slog.New(slog.NewTextHandler(f.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	f.resolver = NewResolver(f.cfg, f.api, f.codec, f.store, f.guard, f.logger)
	return f
}

func (f *fixture) state(t *testing.T, assistantID, businessID, customerID string) string {
	t.Helper()
	s, err := f.codec.Encode(state.ConnectionState{AssistantID: assistantID, BusinessID: businessID, CustomerID: customerID})
	if err != nil {
		t.Fatalf("encode state: %v", err)
	}
	return s
}

func happyAPI() *graph.MockAPI {
	return &graph.MockAPI{
		AuthorizationURLFunc: func(p graph.AuthorizationParams) string {
			return "https://www.facebook.com/v19.0/dialog/oauth?state=" + p.State
		},
		ExchangeCodeFunc: func(ctx context.Context, code, redirectURI string) (*oauth2.Token, error) {
			return &oauth2.Token{AccessToken: testShortToken}, nil
		},
		ExchangeLongLivedFunc: func(ctx context.Context, shortLived string) (*oauth2.Token, error) {
			return &oauth2.Token{AccessToken: testLongToken, Expiry: time.Now().Add(60 * 24 * time.Hour)}, nil
		},
		DebugTokenFunc: func(ctx context.Context, inputToken string) (*graph.DebugTokenData, error) {
			return &graph.DebugTokenData{
				IsValid: true,
				GranularScopes: []graph.GranularScope{
					{Scope: graph.ScopeBusinessManagement, TargetIDs: []string{"W1"}},
					{Scope: graph.ScopeBusinessMessaging, TargetIDs: []string{"P1"}},
				},
			}, nil
		},
		PhoneNumbersFunc: func(ctx context.Context, accountID, accessToken string) ([]json.RawMessage, error) {
			return []json.RawMessage{phoneJSON("P0", false), phoneJSON("P1", false)}, nil
		},
	}
}
