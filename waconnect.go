// Package waconnect wires the WhatsApp connection flow into an HTTP service.
package waconnect

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Seann-Moser/waconnect/assistant"
	"github.com/Seann-Moser/waconnect/config"
	"github.com/Seann-Moser/waconnect/oauth/graph"
	"github.com/Seann-Moser/waconnect/oauth/replay"
	"github.com/Seann-Moser/waconnect/oauth/state"
	"github.com/Seann-Moser/waconnect/oauth/whatsapp"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// Deps are the collaborators built outside the service.
type Deps struct {
	Store assistant.Store
	// Redis backs the code replay guard; nil keeps it in memory.
	Redis      redis.Cmdable
	HTTPClient *http.Client
	Logger     *slog.Logger
}

type Service struct {
	Initiator    *whatsapp.Initiator
	Resolver     *whatsapp.Resolver
	Disconnector *whatsapp.Disconnector
	handler      *whatsapp.Handler
	log          *slog.Logger
}

func New(cfg *config.Config, deps Deps) (*Service, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("assistant store is required")
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	key, err := state.DeriveKey(cfg.App.StateSecret, cfg.Meta.AppSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to derive state key: %w", err)
	}
	codec := state.NewCodec(key)

	api := graph.NewClient(graph.Options{
		AppID:        cfg.Meta.AppID,
		AppSecret:    cfg.Meta.AppSecret,
		APIVersion:   cfg.Meta.APIVersion,
		OAuthBaseURL: cfg.Meta.OAuthBaseURL,
		GraphBaseURL: cfg.Meta.GraphBaseURL,
		Timeout:      cfg.Meta.Timeout,
		HTTPClient:   deps.HTTPClient,
		Logger:       log,
	})

	var guard replay.Guard
	if deps.Redis != nil {
		guard = replay.NewRedisGuard(deps.Redis, cfg.Redis.CodeClaimTTL)
	} else {
		guard = replay.NewMemoryGuard(cfg.Redis.CodeClaimTTL)
	}

	flow := whatsapp.Config{
		AppID:                  cfg.Meta.AppID,
		AppSecret:              cfg.Meta.AppSecret,
		EmbeddedSignupConfigID: cfg.Meta.EmbeddedSignupConfigID,
		CallbackURL:            cfg.CallbackURL(),
		CallTimeout:            cfg.Meta.Timeout,
	}
	s := &Service{
		Initiator:    whatsapp.NewInitiator(flow, api, codec, log),
		Resolver:     whatsapp.NewResolver(flow, api, codec, deps.Store, guard, log),
		Disconnector: whatsapp.NewDisconnector(deps.Store, log),
		log:          log,
	}
	s.handler = whatsapp.NewHandler(s.Initiator, s.Resolver, s.Disconnector, deps.Store, whatsapp.UIConfig{
		BaseURL:       cfg.App.BaseURL,
		AssistantPath: cfg.App.AssistantPath,
		FallbackPath:  cfg.App.FallbackPath,
	}, cfg.CallbackURL(), log)

	if cfg.Meta.AppID == "" || cfg.Meta.AppSecret == "" {
		log.Warn("META_APP_ID or META_APP_SECRET is not set, connections will fail until configured")
	}
	return s, nil
}

// Routes returns the service's HTTP handler.
func (s *Service) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	})
	s.handler.Register(mux)
	return s.Middleware(mux)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Middleware tags each request with an id and logs its outcome. Only the
// path is logged: callback queries carry authorization codes.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		started := time.Now()
		next.ServeHTTP(rec, r)

		s.log.InfoContext(r.Context(), "http request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"elapsed", time.Since(started),
		)
	})
}
