package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Seann-Moser/waconnect/assistant"
	"github.com/Seann-Moser/waconnect/oauth/graph"
	"github.com/Seann-Moser/waconnect/oauth/replay"
	"github.com/Seann-Moser/waconnect/oauth/state"
	"github.com/Seann-Moser/waconnect/utils"
	"github.com/google/uuid"
)

// CallbackParams are the query parameters of the provider redirect.
type CallbackParams struct {
	Code             string
	State            string
	Error            string
	ErrorReason      string
	ErrorDescription string
}

// CallbackResult is the outcome of one callback. State is set whenever the
// state value could be decoded, including on failure, so callers can send
// the user back to the right assistant.
type CallbackResult struct {
	AttemptID string
	State     *state.ConnectionState
	Binding   *assistant.Binding
	Err       error
	Message   string
}

func (r CallbackResult) OK() bool {
	return r.Err == nil
}

// Resolver turns a provider redirect into a stored binding.
type Resolver struct {
	cfg   Config
	api   graph.API
	codec *state.Codec
	store assistant.Store
	guard replay.Guard
	log   *slog.Logger
	now   func() time.Time
}

// NewResolver creates a resolver. guard may be nil, in which case codes are
// not checked for reuse.
func NewResolver(cfg Config, api graph.API, codec *state.Codec, store assistant.Store, guard replay.Guard, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		cfg:   cfg,
		api:   api,
		codec: codec,
		store: store,
		guard: guard,
		log:   logger.With("component", "resolver"),
		now:   time.Now,
	}
}

// Resolve runs the callback steps in order and stops at the first failure.
// It never panics and never returns a nil Err together with a nil Binding.
func (r *Resolver) Resolve(ctx context.Context, p CallbackParams) (res CallbackResult) {
	res.AttemptID = uuid.NewString()
	log := r.log.With("attempt_id", res.AttemptID)

	defer func() {
		if rec := recover(); rec != nil {
			log.ErrorContext(ctx, "callback resolution panicked", "panic", fmt.Sprint(rec))
			res.Binding = nil
			res.Err = newError(ErrInternal, "Unexpected error while connecting WhatsApp.", fmt.Errorf("panic: %v", rec))
			res.Message = UserMessage(res.Err)
		}
	}()

	// the user may close the browser mid flow; the calls still run to
	// completion or timeout
	ctx = context.WithoutCancel(ctx)

	fail := func(err *Error) CallbackResult {
		res.Err = err
		res.Message = err.Message
		log.WarnContext(ctx, "whatsapp callback failed", "kind", err.Kind.Error(), "error", err.Err)
		return res
	}

	if r.cfg.AppID == "" || r.cfg.AppSecret == "" {
		return fail(newError(ErrConfiguration, configurationMessage, errors.New("META_APP_ID and META_APP_SECRET are required")))
	}

	if p.Error != "" {
		if res.State = r.peekState(p.State); res.State != nil {
			log = log.With("assistant_id", res.State.AssistantID, "business_id", res.State.BusinessID)
		}
		msg := p.ErrorDescription
		if msg == "" {
			msg = "The WhatsApp authorization was cancelled or denied."
		}
		return fail(newError(ErrAuthorizationDenied, msg, fmt.Errorf("%s (%s)", p.Error, p.ErrorReason)))
	}
	if p.Code == "" || p.State == "" {
		if res.State = r.peekState(p.State); res.State != nil {
			log = log.With("assistant_id", res.State.AssistantID, "business_id", res.State.BusinessID)
		}
		return fail(newError(ErrInvalidCallback, "The callback is missing required parameters.", errors.New("code and state are required")))
	}

	st, err := r.codec.Decode(p.State)
	if err != nil {
		return fail(newError(ErrInvalidState, "The connection request could not be verified. Please start again.", err))
	}
	res.State = &st
	log = log.With("assistant_id", st.AssistantID, "business_id", st.BusinessID)

	binding, cerr := r.connect(ctx, log, st, p.Code)
	if cerr != nil {
		return fail(cerr)
	}
	res.Binding = binding
	res.Message = "WhatsApp connection configured successfully."
	log.InfoContext(ctx, "whatsapp connected",
		"phone_number_id", binding.PhoneNumberID,
		"waba_id", binding.WhatsappBusinessAccountID,
		"token", utils.MaskSecret(binding.Token),
	)
	return res
}

// peekState decodes raw for redirect purposes only.
func (r *Resolver) peekState(raw string) *state.ConnectionState {
	if raw == "" {
		return nil
	}
	st, err := r.codec.Decode(raw)
	if err != nil {
		return nil
	}
	return &st
}

func (r *Resolver) connect(ctx context.Context, log *slog.Logger, st state.ConnectionState, code string) (*assistant.Binding, *Error) {
	if err := r.claim(ctx, log, code); err != nil {
		return nil, err
	}

	shortLived, err := r.exchange(ctx, ExchangeShortLived, func(ctx context.Context) (string, error) {
		tok, err := r.api.ExchangeCode(ctx, code, r.cfg.CallbackURL)
		if err != nil || tok == nil {
			return "", err
		}
		return tok.AccessToken, nil
	})
	if err != nil {
		return nil, err
	}
	longLived, err := r.exchange(ctx, ExchangeLongLived, func(ctx context.Context) (string, error) {
		tok, err := r.api.ExchangeLongLived(ctx, shortLived)
		if err != nil || tok == nil {
			return "", err
		}
		return tok.AccessToken, nil
	})
	if err != nil {
		return nil, err
	}
	log.DebugContext(ctx, "token exchange complete", "token", utils.MaskSecret(longLived))

	account, err := r.resolveAccount(ctx, longLived)
	if err != nil {
		return nil, err
	}
	log = log.With("waba_id", account.AccountID)

	phone, err := r.resolvePhone(ctx, log, account, longLived)
	if err != nil {
		return nil, err
	}

	b := assistant.Binding{
		Token:                     longLived,
		PhoneNumberID:             phone.ID,
		WhatsappBusinessAccountID: account.AccountID,
		WhatsappDisplayName:       phone.VerifiedName,
		WhatsappBusiness:          phone.DisplayPhoneNumber,
		WhatsappQualityRating:     phone.QualityRating,
		ConnectedAt:               r.now().UTC(),
	}
	if serr := r.store.Connect(ctx, st.AssistantID, st.BusinessID, b); serr != nil {
		if errors.Is(serr, assistant.ErrNotFound) {
			return nil, newError(ErrNotFound, "The assistant was not found for this business.", serr)
		}
		return nil, newError(ErrPersistence, "The WhatsApp connection could not be saved.", serr)
	}
	return &b, nil
}

// claim fails open: a guard outage must not block connections.
func (r *Resolver) claim(ctx context.Context, log *slog.Logger, code string) *Error {
	if r.guard == nil {
		return nil
	}
	ok, err := r.guard.Claim(ctx, code)
	if err != nil {
		log.WarnContext(ctx, "authorization code replay check unavailable", "error", err)
		return nil
	}
	if !ok {
		return newError(ErrInvalidCallback, "This authorization was already used. Please start again.", errCodeAlreadyUsed)
	}
	return nil
}

func (r *Resolver) exchange(ctx context.Context, which Exchange, call func(ctx context.Context) (string, error)) (string, *Error) {
	callCtx, cancel := context.WithTimeout(ctx, r.cfg.callTimeout())
	defer cancel()

	tok, err := call(callCtx)
	if err == nil && tok == "" {
		err = fmt.Errorf("%w: access_token missing", graph.ErrSchema)
	}
	if err != nil {
		pte := &ProviderTokenError{Exchange: which, Err: err}
		var apiErr *graph.APIError
		if errors.As(err, &apiErr) {
			pte.ProviderMessage = apiErr.Message
		}
		msg := fmt.Sprintf("Meta rejected the %s token exchange.", which)
		if pte.ProviderMessage != "" {
			msg = fmt.Sprintf("Meta rejected the %s token exchange: %s", which, pte.ProviderMessage)
		}
		return "", newError(ErrProviderToken, msg, pte)
	}
	return tok, nil
}

func (r *Resolver) resolveAccount(ctx context.Context, token string) (AccountResolution, *Error) {
	callCtx, cancel := context.WithTimeout(ctx, r.cfg.callTimeout())
	defer cancel()

	data, err := r.api.DebugToken(callCtx, token)
	if err != nil {
		return AccountResolution{}, newError(ErrAccountResolution, "The granted WhatsApp permissions could not be read.", err)
	}
	if data == nil {
		return AccountResolution{}, newError(ErrAccountResolution, "The granted WhatsApp permissions could not be read.", graph.ErrSchema)
	}
	account, err := ResolveAccount(data.GranularScopes)
	if err != nil {
		return account, newError(ErrAccountResolution, "No WhatsApp Business Account was granted. Please allow access to a business account.", err)
	}
	return account, nil
}

func (r *Resolver) resolvePhone(ctx context.Context, log *slog.Logger, account AccountResolution, token string) (graph.PhoneNumber, *Error) {
	callCtx, cancel := context.WithTimeout(ctx, r.cfg.callTimeout())
	defer cancel()

	numbers, err := r.api.PhoneNumbers(callCtx, account.AccountID, token)
	if err != nil {
		return graph.PhoneNumber{}, newError(ErrPhoneResolution, "The phone numbers of the business account could not be read.", err)
	}
	if len(numbers) == 0 {
		return graph.PhoneNumber{}, newError(ErrNoPhoneNumbers, "The WhatsApp Business Account has no phone numbers.", nil)
	}

	sel, err := SelectPhoneNumber(numbers, account.CandidatePhoneID)
	if err != nil {
		return graph.PhoneNumber{}, newError(ErrPhoneResolution, "No phone number could be selected.", err)
	}
	if account.CandidatePhoneID != "" && sel.Rule != "granted-scope" {
		log.WarnContext(ctx, "granted phone number not listed under the business account", "candidate_phone_id", account.CandidatePhoneID)
	}
	if sel.Ambiguous {
		log.WarnContext(ctx, "ambiguous phone number selection, using the first listed number", "rule", sel.Rule, "count", len(numbers))
	}

	phone, err := graph.ParsePhoneNumber(sel.Raw)
	if err != nil {
		return phone, newError(ErrMalformedProviderData, "Meta returned incomplete phone number data.", err)
	}
	log.InfoContext(ctx, "selected phone number", "rule", sel.Rule, "phone_number_id", phone.ID)
	return phone, nil
}
