package assistant

import (
	"errors"
	"time"
)

type ConnectionStatus string

// Stored values are shared with the admin app, hence the Spanish literals.
const (
	StatusConnected    ConnectionStatus = "CONECTADO"
	StatusNotConnected ConnectionStatus = "NO_CONECTADO"
)

var ErrNotFound = errors.New("assistant not found")

// Assistant is the virtual assistant record. Only the WhatsApp connection
// fields are written by this module.
type Assistant struct {
	ID                        string           `bson:"_id" json:"id"`
	BusinessID                string           `bson:"businessId" json:"businessId"`
	Name                      string           `bson:"name,omitempty" json:"name,omitempty"`
	Token                     *string          `bson:"token" json:"-"`
	PhoneNumberID             *string          `bson:"phoneNumberId" json:"phoneNumberId"`
	WhatsappBusinessAccountID *string          `bson:"whatsappBusinessAccountId" json:"whatsappBusinessAccountId"`
	WhatsappDisplayName       *string          `bson:"whatsappDisplayName" json:"whatsappDisplayName"`
	WhatsappBusiness          *string          `bson:"whatsappBusiness" json:"whatsappBusiness"`
	WhatsappQualityRating     *string          `bson:"whatsappQualityRating" json:"whatsappQualityRating"`
	WhatsappConnectionStatus  ConnectionStatus `bson:"whatsappConnectionStatus" json:"whatsappConnectionStatus"`
	WhatsappTokenLastSet      *time.Time       `bson:"whatsappTokenLastSet" json:"whatsappTokenLastSet"`
}

// Binding is everything a successful connection writes, in one piece.
type Binding struct {
	Token                     string
	PhoneNumberID             string
	WhatsappBusinessAccountID string
	WhatsappDisplayName       string
	WhatsappBusiness          string
	WhatsappQualityRating     string
	ConnectedAt               time.Time
}

// Connected reports whether the record carries a complete binding.
func (a *Assistant) Connected() bool {
	return a.WhatsappConnectionStatus == StatusConnected &&
		a.Token != nil && a.PhoneNumberID != nil && a.WhatsappBusinessAccountID != nil &&
		a.WhatsappDisplayName != nil && a.WhatsappBusiness != nil && a.WhatsappQualityRating != nil &&
		a.WhatsappTokenLastSet != nil
}

// Cleared reports whether every connection field is empty.
func (a *Assistant) Cleared() bool {
	return a.WhatsappConnectionStatus == StatusNotConnected &&
		a.Token == nil && a.PhoneNumberID == nil && a.WhatsappBusinessAccountID == nil &&
		a.WhatsappDisplayName == nil && a.WhatsappBusiness == nil && a.WhatsappQualityRating == nil &&
		a.WhatsappTokenLastSet == nil
}

func (a *Assistant) apply(b Binding) {
	at := b.ConnectedAt
	a.Token = strPtr(b.Token)
	a.PhoneNumberID = strPtr(b.PhoneNumberID)
	a.WhatsappBusinessAccountID = strPtr(b.WhatsappBusinessAccountID)
	a.WhatsappDisplayName = strPtr(b.WhatsappDisplayName)
	a.WhatsappBusiness = strPtr(b.WhatsappBusiness)
	a.WhatsappQualityRating = strPtr(b.WhatsappQualityRating)
	a.WhatsappConnectionStatus = StatusConnected
	a.WhatsappTokenLastSet = &at
}

func (a *Assistant) clear() {
	a.Token = nil
	a.PhoneNumberID = nil
	a.WhatsappBusinessAccountID = nil
	a.WhatsappDisplayName = nil
	a.WhatsappBusiness = nil
	a.WhatsappQualityRating = nil
	a.WhatsappConnectionStatus = StatusNotConnected
	a.WhatsappTokenLastSet = nil
}

func strPtr(s string) *string {
	return &s
}
