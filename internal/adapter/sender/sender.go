// Package sender provides the channel dispatch registry and a dry-run sender
// used in demo mode and tests. Real provider integrations implement
// port.ChannelSender and register the same way.
package sender

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"outreach-engine/internal/core/domain"
	"outreach-engine/internal/core/port"
)

// Registry maps channels to senders. Implements port.SenderRegistry.
type Registry struct {
	senders map[domain.ChannelType]port.ChannelSender
}

func NewRegistry() *Registry {
	return &Registry{senders: make(map[domain.ChannelType]port.ChannelSender)}
}

// Register binds a sender to a channel, replacing any previous binding.
func (r *Registry) Register(ch domain.ChannelType, s port.ChannelSender) {
	r.senders[ch] = s
}

func (r *Registry) SenderFor(ch domain.ChannelType) (port.ChannelSender, bool) {
	s, ok := r.senders[ch]
	return s, ok
}

// NewDryRunRegistry returns a registry with a dry-run sender on every
// channel.
func NewDryRunRegistry(log *slog.Logger) *Registry {
	r := NewRegistry()
	dry := &DryRunSender{log: log}
	for _, ch := range []domain.ChannelType{
		domain.ChannelEmail, domain.ChannelSMS, domain.ChannelWhatsApp,
		domain.ChannelInstagram, domain.ChannelTelegram, domain.ChannelVoice,
	} {
		r.Register(ch, dry)
	}
	return r
}

// DryRunSender logs the dispatch instead of contacting a provider and
// reports success with a synthetic external reference.
type DryRunSender struct {
	log *slog.Logger
}

func NewDryRunSender(log *slog.Logger) *DryRunSender {
	return &DryRunSender{log: log}
}

func (s *DryRunSender) Send(_ context.Context, contact domain.Contact, msg *domain.CampaignMessage, _ domain.MessageContent) (port.SendResult, error) {
	ref := uuid.NewString()
	addr, _ := contact.AddressFor(msg.Channel)
	s.log.Info("dry-run dispatch",
		"channel", msg.Channel,
		"message_id", msg.ID,
		"contact_id", contact.ID,
		"address", addr,
		"external_ref", ref,
	)
	return port.SendResult{Delivered: true, ExternalRef: ref}, nil
}
