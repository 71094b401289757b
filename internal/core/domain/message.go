package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// ChannelType is a delivery medium for a single campaign message.
type ChannelType string

const (
	ChannelEmail     ChannelType = "email"
	ChannelSMS       ChannelType = "sms"
	ChannelWhatsApp  ChannelType = "whatsapp"
	ChannelInstagram ChannelType = "instagram"
	ChannelTelegram  ChannelType = "telegram"
	ChannelVoice     ChannelType = "voice"
)

// Valid reports whether t is a known channel.
func (t ChannelType) Valid() bool {
	switch t {
	case ChannelEmail, ChannelSMS, ChannelWhatsApp, ChannelInstagram, ChannelTelegram, ChannelVoice:
		return true
	}
	return false
}

// DelayUnit is the time unit of a step's delay relative to the previous step.
type DelayUnit string

const (
	DelayMinutes DelayUnit = "minutes"
	DelayHours   DelayUnit = "hours"
	DelayDays    DelayUnit = "days"
	DelayWeeks   DelayUnit = "weeks"
)

// MessageContent is the per-channel payload of a message step. Each channel
// carries only the fields relevant to it; the renderer and senders never see
// another channel's variant.
type MessageContent interface {
	Channel() ChannelType
}

// EmailContent is the payload of an email step.
type EmailContent struct {
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	HTMLBody string `json:"html_body,omitempty"`
}

func (EmailContent) Channel() ChannelType { return ChannelEmail }

// SMSContent is the payload of an SMS step.
type SMSContent struct {
	Body string `json:"body"`
}

func (SMSContent) Channel() ChannelType { return ChannelSMS }

// WhatsAppContent is the payload of a WhatsApp step. Template name and params
// address a pre-approved provider template; Body covers free-form session
// messages.
type WhatsAppContent struct {
	TemplateName   string            `json:"template_name,omitempty"`
	TemplateParams map[string]string `json:"template_params,omitempty"`
	Body           string            `json:"body,omitempty"`
}

func (WhatsAppContent) Channel() ChannelType { return ChannelWhatsApp }

// DirectMessageContent is the payload of an Instagram or Telegram step.
type DirectMessageContent struct {
	Platform ChannelType `json:"platform"`
	Body     string      `json:"body"`
}

func (c DirectMessageContent) Channel() ChannelType { return c.Platform }

// VoiceContent is the payload of a voice-call step.
type VoiceContent struct {
	Script     string            `json:"script"`
	VoiceID    string            `json:"voice_id,omitempty"`
	FlowConfig map[string]string `json:"flow_config,omitempty"`
}

func (VoiceContent) Channel() ChannelType { return ChannelVoice }

// CampaignMessage is one step in a campaign's ordered sequence.
type CampaignMessage struct {
	ID            int64
	CampaignID    int64
	SequenceOrder int // 1-based, unique per campaign
	Name          string
	Channel       ChannelType
	Content       MessageContent

	DelayAmount int
	DelayUnit   DelayUnit

	// Optional same-day send window in "HH:MM" form. Malformed values are
	// ignored by the scheduler rather than failing the send.
	SendWindowStart string
	SendWindowEnd   string
	WeekdaysOnly    bool

	ABVariant string
	Active    bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EncodeContent serializes a content variant for storage.
func EncodeContent(c MessageContent) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("nil message content")
	}
	return json.Marshal(c)
}

// DecodeContent deserializes a stored payload into the variant for the given
// channel.
func DecodeContent(channel ChannelType, raw []byte) (MessageContent, error) {
	switch channel {
	case ChannelEmail:
		var c EmailContent
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		return c, nil
	case ChannelSMS:
		var c SMSContent
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		return c, nil
	case ChannelWhatsApp:
		var c WhatsAppContent
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		return c, nil
	case ChannelInstagram, ChannelTelegram:
		var c DirectMessageContent
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		c.Platform = channel
		return c, nil
	case ChannelVoice:
		var c VoiceContent
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, fmt.Errorf("unknown channel %q", channel)
}
