package whatsapp

import (
	"encoding/json"
	"errors"

	"github.com/Seann-Moser/waconnect/oauth/graph"
)

var (
	errNoAccountGrant = errors.New("no whatsapp_business_management grant with a target")
	errNoPhoneRule    = errors.New("no selection rule matched")
)

// AccountResolution is what the granted scopes say about the assets the
// user picked in the dialog.
type AccountResolution struct {
	AccountID        string
	CandidatePhoneID string
}

type scopeRule struct {
	name  string
	apply func(res *AccountResolution, s graph.GranularScope) bool
}

// accountRules run in order against every granular scope entry.
var accountRules = []scopeRule{
	{
		name: "management-target",
		apply: func(res *AccountResolution, s graph.GranularScope) bool {
			if s.Scope != graph.ScopeBusinessManagement || len(s.TargetIDs) == 0 || res.AccountID != "" {
				return false
			}
			res.AccountID = s.TargetIDs[0]
			return true
		},
	},
	{
		// a messaging grant on the whole account is not a phone number
		name: "messaging-target",
		apply: func(res *AccountResolution, s graph.GranularScope) bool {
			if s.Scope != graph.ScopeBusinessMessaging || len(s.TargetIDs) == 0 {
				return false
			}
			if res.AccountID == "" || res.CandidatePhoneID != "" || s.TargetIDs[0] == res.AccountID {
				return false
			}
			res.CandidatePhoneID = s.TargetIDs[0]
			return true
		},
	},
}

// ResolveAccount applies the account rules to the token's granular scopes.
// It fails when no management grant names a business account.
func ResolveAccount(scopes []graph.GranularScope) (AccountResolution, error) {
	var res AccountResolution
	for _, s := range scopes {
		for _, rule := range accountRules {
			rule.apply(&res, s)
		}
	}
	if res.AccountID == "" {
		return res, errNoAccountGrant
	}
	return res, nil
}

// phoneEntry is the lenient view of a listed number used for selection.
// The chosen entry is validated in full afterwards.
type phoneEntry struct {
	ID                     string `json:"id"`
	IsEmbeddedSignupNumber bool   `json:"is_embedded_signup_number"`
}

type phoneRule struct {
	name      string
	ambiguous bool
	pick      func(entries []phoneEntry, candidateID string) int
}

// phoneRules are tried in order; the first one returning an index wins.
var phoneRules = []phoneRule{
	{
		name: "granted-scope",
		pick: func(entries []phoneEntry, candidateID string) int {
			if candidateID == "" {
				return -1
			}
			for i, e := range entries {
				if e.ID == candidateID {
					return i
				}
			}
			return -1
		},
	},
	{
		name: "embedded-signup",
		pick: func(entries []phoneEntry, _ string) int {
			for i, e := range entries {
				if e.IsEmbeddedSignupNumber {
					return i
				}
			}
			return -1
		},
	},
	{
		name: "single-number",
		pick: func(entries []phoneEntry, _ string) int {
			if len(entries) == 1 {
				return 0
			}
			return -1
		},
	},
	{
		name:      "first-listed",
		ambiguous: true,
		pick: func(entries []phoneEntry, _ string) int {
			if len(entries) > 1 {
				return 0
			}
			return -1
		},
	},
}

// PhoneSelection is the outcome of the phone rules.
type PhoneSelection struct {
	Raw  json.RawMessage
	Rule string
	// Ambiguous marks a guess among several equally plausible numbers.
	Ambiguous bool
}

// SelectPhoneNumber picks one of the listed numbers. candidateID is the
// phone number named by the messaging grant, if any.
func SelectPhoneNumber(raw []json.RawMessage, candidateID string) (PhoneSelection, error) {
	entries := make([]phoneEntry, len(raw))
	for i, r := range raw {
		// unreadable entries keep a zero value and can still be picked by
		// position; validation rejects them later
		_ = json.Unmarshal(r, &entries[i])
	}
	for _, rule := range phoneRules {
		if i := rule.pick(entries, candidateID); i >= 0 {
			return PhoneSelection{Raw: raw[i], Rule: rule.name, Ambiguous: rule.ambiguous}, nil
		}
	}
	return PhoneSelection{}, errNoPhoneRule
}
