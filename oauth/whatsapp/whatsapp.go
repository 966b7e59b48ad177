// Package whatsapp links a WhatsApp Business phone number to an assistant
// through Meta's OAuth dialog, and unlinks it again.
//
// The flow has three parts. Initiator builds the dialog URL with a signed
// state value. Resolver handles the redirect back: it exchanges the code for
// a long-lived token, works out which business account and phone number the
// user granted, and stores the binding. Disconnector clears the binding.
package whatsapp

import (
	"time"

	"github.com/Seann-Moser/waconnect/oauth/graph"
)

// CallbackPath is where Meta redirects after the dialog.
const CallbackPath = "/api/oauth/whatsapp/callback"

const configurationMessage = "WhatsApp integration is not configured. Contact the administrator."

// Scopes requested from the dialog.
var Scopes = []string{graph.ScopeBusinessManagement, graph.ScopeBusinessMessaging}

type Config struct {
	AppID     string
	AppSecret string
	// EmbeddedSignupConfigID steers the dialog to the embedded signup UI.
	EmbeddedSignupConfigID string
	// CallbackURL is the redirect URI sent in the code exchange. Meta only
	// accepts the exchange when it equals the one used for the dialog.
	CallbackURL string
	// CallTimeout bounds each outbound call made while resolving a callback.
	CallTimeout time.Duration
}

func (c Config) callTimeout() time.Duration {
	if c.CallTimeout <= 0 {
		return graph.DefaultTimeout
	}
	return c.CallTimeout
}
