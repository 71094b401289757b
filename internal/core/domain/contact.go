package domain

import (
	"strings"
	"time"
)

// Contact is the engine's read-only view of a CRM contact. Contact CRUD is
// owned elsewhere; the engine only needs addresses, consent flags and the
// attributes targeting filters on.
type Contact struct {
	ID       int64
	TenantID int64

	Name           string
	Email          string
	Phone          string
	InstagramID    string
	TelegramChatID string

	LifecycleStage string
	LeadSource     string
	OptInStatus    string
	DoNotContact   bool
	TagIDs         []int64
}

// FirstName returns the first space-separated word of the contact name.
func (c Contact) FirstName() string {
	name := strings.TrimSpace(c.Name)
	if i := strings.IndexByte(name, ' '); i > 0 {
		return name[:i]
	}
	return name
}

// AddressFor returns the contact's address for a channel and whether one is
// set. A missing address is a permanent dispatch failure.
func (c Contact) AddressFor(ch ChannelType) (string, bool) {
	var addr string
	switch ch {
	case ChannelEmail:
		addr = c.Email
	case ChannelSMS, ChannelWhatsApp, ChannelVoice:
		addr = c.Phone
	case ChannelInstagram:
		addr = c.InstagramID
	case ChannelTelegram:
		addr = c.TelegramChatID
	}
	return addr, addr != ""
}

// HasTag reports whether the contact carries any of the given tag ids.
func (c Contact) HasTag(ids []int64) bool {
	for _, want := range ids {
		for _, got := range c.TagIDs {
			if want == got {
				return true
			}
		}
	}
	return false
}

// Lead is the engine's read-only view of a lead attached to a contact.
type Lead struct {
	ID        int64
	ContactID int64
	Stage     string
	Score     int
	DealValue int64
	CreatedAt time.Time
}
