package whatsapp

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Seann-Moser/waconnect/assistant"
	"github.com/Seann-Moser/waconnect/utils"
)

// Disconnector clears an assistant's WhatsApp binding. The token is not
// revoked at Meta.
type Disconnector struct {
	store assistant.Store
	log   *slog.Logger
}

func NewDisconnector(store assistant.Store, logger *slog.Logger) *Disconnector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Disconnector{store: store, log: logger.With("component", "disconnector")}
}

func (d *Disconnector) Disconnect(ctx context.Context, assistantID string) error {
	if !utils.ValidEntityID(assistantID) {
		return newError(ErrInvalidInput, "The assistant id is invalid.", nil)
	}
	log := d.log.With("assistant_id", assistantID)

	if _, err := d.store.Get(ctx, assistantID); err != nil {
		return d.storeError(err)
	}
	if err := d.store.Disconnect(ctx, assistantID); err != nil {
		return d.storeError(err)
	}
	log.InfoContext(ctx, "whatsapp disconnected")
	return nil
}

func (d *Disconnector) storeError(err error) error {
	if errors.Is(err, assistant.ErrNotFound) {
		return newError(ErrNotFound, "The assistant was not found.", err)
	}
	return newError(ErrPersistence, "The WhatsApp connection could not be removed.", err)
}
