package whatsapp

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Seann-Moser/waconnect/assistant"
	"github.com/Seann-Moser/waconnect/oauth/state"
	"github.com/Seann-Moser/waconnect/utils"
)

// maxBodyBytes caps JSON request bodies on the POST routes.
const maxBodyBytes = 1 << 20

const (
	DefaultAssistantPath = "/admin/clientes/{customerId}/negocios/{businessId}/asistente/"
	DefaultFallbackPath  = "/admin/dashboard"
)

// Values of the whatsapp_status query parameter on the UI redirect.
const (
	StatusSuccess         = "success"
	StatusErrorMeta       = "error_meta"
	StatusErrorCallback   = "error_callback"
	StatusErrorProcessing = "error_processing"
)

// UIConfig says where the callback sends the browser afterwards.
type UIConfig struct {
	BaseURL string
	// AssistantPath may contain {customerId}, {businessId} and {assistantId}.
	AssistantPath string
	FallbackPath  string
}

type Handler struct {
	initiator    *Initiator
	resolver     *Resolver
	disconnector *Disconnector
	store        assistant.Store
	ui           UIConfig
	redirectURI  string
	log          *slog.Logger
}

// NewHandler wires the HTTP surface. redirectURI is used when a connect
// request does not name one.
func NewHandler(i *Initiator, r *Resolver, d *Disconnector, store assistant.Store, ui UIConfig, redirectURI string, logger *slog.Logger) *Handler {
	if ui.AssistantPath == "" {
		ui.AssistantPath = DefaultAssistantPath
	}
	if ui.FallbackPath == "" {
		ui.FallbackPath = DefaultFallbackPath
	}
	ui.BaseURL = strings.TrimRight(ui.BaseURL, "/")
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		initiator:    i,
		resolver:     r,
		disconnector: d,
		store:        store,
		ui:           ui,
		redirectURI:  redirectURI,
		log:          logger.With("component", "http"),
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/whatsapp/connect", h.Connect)
	mux.HandleFunc("POST /api/whatsapp/connect", h.Connect)
	mux.HandleFunc("GET "+CallbackPath, h.Callback)
	mux.HandleFunc("POST /api/whatsapp/disconnect", h.Disconnect)
	mux.HandleFunc("GET /api/whatsapp/assistants", h.Assistant)
}

// Connect redirects a GET to the dialog and answers a POST with the URL.
func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	var req ConnectRequest
	if r.Method == http.MethodPost {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
	} else {
		q := r.URL.Query()
		req = ConnectRequest{
			AssistantID: q.Get("assistantId"),
			BusinessID:  q.Get("businessId"),
			CustomerID:  q.Get("customerId"),
			RedirectURI: q.Get("redirectUri"),
		}
	}
	if req.RedirectURI == "" {
		req.RedirectURI = h.redirectURI
	}

	authURL, err := h.initiator.AuthorizationURL(r.Context(), req)
	if err != nil {
		writeError(w, statusFor(err), UserMessage(err))
		return
	}
	if r.Method == http.MethodPost {
		writeJSON(w, http.StatusOK, map[string]string{"authorizationUrl": authURL})
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

// Callback resolves the provider redirect and sends the browser back to the
// admin UI with the outcome in the query string.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := CallbackParams{
		Code:             q.Get("code"),
		State:            q.Get("state"),
		Error:            q.Get("error"),
		ErrorReason:      q.Get("error_reason"),
		ErrorDescription: q.Get("error_description"),
	}
	res := h.resolver.Resolve(r.Context(), p)

	v := url.Values{}
	switch {
	case res.OK():
		v.Set("whatsapp_status", StatusSuccess)
		v.Set("message", res.Message)
	case errors.Is(res.Err, ErrAuthorizationDenied):
		v.Set("whatsapp_status", StatusErrorMeta)
		v.Set("whatsapp_error", p.Error)
		v.Set("whatsapp_error_description", res.Message)
	case errors.Is(res.Err, ErrInvalidCallback):
		v.Set("whatsapp_status", StatusErrorCallback)
		if errors.Is(res.Err, errCodeAlreadyUsed) {
			v.Set("whatsapp_error", "code_already_used")
		} else {
			v.Set("whatsapp_error", "missing_params")
		}
		v.Set("whatsapp_error_description", res.Message)
	default:
		v.Set("whatsapp_status", StatusErrorProcessing)
		v.Set("whatsapp_error", "processing_failed")
		v.Set("whatsapp_error_description", res.Message)
	}
	http.Redirect(w, r, h.uiURL(res.State, v), http.StatusFound)
}

func (h *Handler) uiURL(st *state.ConnectionState, v url.Values) string {
	path := h.ui.FallbackPath
	if st != nil {
		path = strings.NewReplacer(
			"{customerId}", url.PathEscape(st.CustomerID),
			"{businessId}", url.PathEscape(st.BusinessID),
			"{assistantId}", url.PathEscape(st.AssistantID),
		).Replace(h.ui.AssistantPath)
	}
	return h.ui.BaseURL + path + "?" + v.Encode()
}

type disconnectRequest struct {
	AssistantID string `json:"assistantId"`
}

func (h *Handler) Disconnect(w http.ResponseWriter, r *http.Request) {
	var req disconnectRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := h.disconnector.Disconnect(r.Context(), req.AssistantID); err != nil {
		if errors.Is(err, ErrPersistence) {
			h.log.ErrorContext(r.Context(), "disconnect failed", "assistant_id", req.AssistantID, "error", err)
		}
		writeError(w, statusFor(err), UserMessage(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ConnectionView is the public view of an assistant's connection. The token
// is masked.
type ConnectionView struct {
	AssistantID               string                     `json:"assistantId"`
	BusinessID                string                     `json:"businessId"`
	Name                      string                     `json:"name,omitempty"`
	WhatsappConnectionStatus  assistant.ConnectionStatus `json:"whatsappConnectionStatus"`
	PhoneNumberID             *string                    `json:"phoneNumberId"`
	WhatsappBusinessAccountID *string                    `json:"whatsappBusinessAccountId"`
	WhatsappDisplayName       *string                    `json:"whatsappDisplayName"`
	WhatsappBusiness          *string                    `json:"whatsappBusiness"`
	WhatsappQualityRating     *string                    `json:"whatsappQualityRating"`
	WhatsappTokenLastSet      *time.Time                 `json:"whatsappTokenLastSet"`
	TokenPreview              string                     `json:"tokenPreview,omitempty"`
}

func newConnectionView(a *assistant.Assistant) ConnectionView {
	v := ConnectionView{
		AssistantID:               a.ID,
		BusinessID:                a.BusinessID,
		Name:                      a.Name,
		WhatsappConnectionStatus:  a.WhatsappConnectionStatus,
		PhoneNumberID:             a.PhoneNumberID,
		WhatsappBusinessAccountID: a.WhatsappBusinessAccountID,
		WhatsappDisplayName:       a.WhatsappDisplayName,
		WhatsappBusiness:          a.WhatsappBusiness,
		WhatsappQualityRating:     a.WhatsappQualityRating,
		WhatsappTokenLastSet:      a.WhatsappTokenLastSet,
	}
	if a.Token != nil {
		v.TokenPreview = utils.MaskSecret(*a.Token)
	}
	return v
}

// Assistant returns the connection view of a business's assistant.
func (h *Handler) Assistant(w http.ResponseWriter, r *http.Request) {
	businessID := r.URL.Query().Get("businessId")
	if !utils.ValidEntityID(businessID) {
		writeError(w, http.StatusBadRequest, "invalid businessId")
		return
	}
	a, err := h.store.GetByBusiness(r.Context(), businessID)
	if err != nil {
		if errors.Is(err, assistant.ErrNotFound) {
			writeError(w, http.StatusNotFound, "assistant not found")
			return
		}
		h.log.ErrorContext(r.Context(), "failed to load assistant", "business_id", businessID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load assistant")
		return
	}
	writeJSON(w, http.StatusOK, newConnectionView(a))
}

func statusFor(err error) int {
	switch KindOf(err) {
	case ErrInvalidInput, ErrInvalidCallback, ErrInvalidState:
		return http.StatusBadRequest
	case ErrNotFound:
		return http.StatusNotFound
	case ErrAuthorizationDenied:
		return http.StatusForbidden
	case ErrProviderToken, ErrAccountResolution, ErrNoPhoneNumbers, ErrPhoneResolution, ErrMalformedProviderData:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON helper sends a JSON response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("error writing JSON response", "error", err)
	}
}

// writeError helper sends a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
