package whatsapp

import (
	"context"
	"log/slog"

	"github.com/Seann-Moser/waconnect/oauth/graph"
	"github.com/Seann-Moser/waconnect/oauth/state"
	"github.com/Seann-Moser/waconnect/utils"
)

// ConnectRequest starts a connection for one assistant.
type ConnectRequest struct {
	AssistantID string `json:"assistantId" validate:"required,entityid"`
	BusinessID  string `json:"businessId" validate:"required,entityid"`
	CustomerID  string `json:"customerId" validate:"required,entityid"`
	RedirectURI string `json:"redirectUri" validate:"required,absurl"`
}

// Initiator builds the authorization URL. It makes no network calls.
type Initiator struct {
	cfg   Config
	api   graph.API
	codec *state.Codec
	log   *slog.Logger
}

func NewInitiator(cfg Config, api graph.API, codec *state.Codec, logger *slog.Logger) *Initiator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Initiator{cfg: cfg, api: api, codec: codec, log: logger.With("component", "initiator")}
}

// AuthorizationURL validates req and returns the dialog URL to redirect the
// user to.
func (i *Initiator) AuthorizationURL(ctx context.Context, req ConnectRequest) (string, error) {
	if err := utils.Struct(req); err != nil {
		return "", newError(ErrInvalidInput, "The connection request is invalid.", err)
	}
	if i.cfg.AppID == "" {
		i.log.ErrorContext(ctx, "META_APP_ID is not set")
		return "", newError(ErrConfiguration, configurationMessage, nil)
	}

	encoded, err := i.codec.Encode(state.ConnectionState{
		AssistantID: req.AssistantID,
		BusinessID:  req.BusinessID,
		CustomerID:  req.CustomerID,
	})
	if err != nil {
		return "", newError(ErrInvalidInput, "The connection request is invalid.", err)
	}

	log := i.log.With("assistant_id", req.AssistantID, "business_id", req.BusinessID)
	if i.cfg.EmbeddedSignupConfigID == "" {
		log.WarnContext(ctx, "embedded signup config id is not set, using the generic oauth dialog")
	}
	if !i.codec.Signed() {
		log.WarnContext(ctx, "oauth state is not signed, set STATE_SECRET or META_APP_SECRET")
	}

	u := i.api.AuthorizationURL(graph.AuthorizationParams{
		RedirectURI: req.RedirectURI,
		State:       encoded,
		Scopes:      Scopes,
		ConfigID:    i.cfg.EmbeddedSignupConfigID,
	})
	log.InfoContext(ctx, "built whatsapp authorization url", "redirect_uri", req.RedirectURI)
	return u, nil
}
