// Package assistant persists the WhatsApp connection fields of assistant
// records.
package assistant

import "context"

// Store defines the writes the connection flow performs on assistants.
type Store interface {
	// Get returns the assistant or ErrNotFound.
	Get(ctx context.Context, assistantID string) (*Assistant, error)

	// GetByBusiness returns the assistant that belongs to a business.
	GetByBusiness(ctx context.Context, businessID string) (*Assistant, error)

	// Connect writes a full binding to the assistant matching both IDs. Any
	// other assistant holding the same phone number is disconnected first.
	// Returns ErrNotFound if the assistant does not belong to the business.
	Connect(ctx context.Context, assistantID, businessID string, b Binding) error

	// Disconnect clears every connection field. Returns ErrNotFound if the
	// assistant does not exist.
	Disconnect(ctx context.Context, assistantID string) error
}
