package domain

import "time"

// ActivityType is the event vocabulary of the append-only ledger.
type ActivityType string

const (
	ActivityEmailSent         ActivityType = "email_sent"
	ActivityEmailDelivered    ActivityType = "email_delivered"
	ActivityEmailOpened       ActivityType = "email_opened"
	ActivityEmailClicked      ActivityType = "email_clicked"
	ActivityEmailReplied      ActivityType = "email_replied"
	ActivityEmailBounced      ActivityType = "email_bounced"
	ActivityEmailUnsubscribed ActivityType = "email_unsubscribed"

	ActivitySMSSent      ActivityType = "sms_sent"
	ActivitySMSDelivered ActivityType = "sms_delivered"
	ActivitySMSReplied   ActivityType = "sms_replied"
	ActivitySMSFailed    ActivityType = "sms_failed"

	ActivityWhatsAppSent      ActivityType = "whatsapp_sent"
	ActivityWhatsAppDelivered ActivityType = "whatsapp_delivered"
	ActivityWhatsAppRead      ActivityType = "whatsapp_read"
	ActivityWhatsAppReplied   ActivityType = "whatsapp_replied"

	// Instagram and Telegram direct messages share one sent type; the
	// payload carries the platform.
	ActivityMessageSent ActivityType = "message_sent"

	ActivityCallInitiated ActivityType = "call_initiated"
	ActivityCallAnswered  ActivityType = "call_answered"
	ActivityCallCompleted ActivityType = "call_completed"
	ActivityCallFailed    ActivityType = "call_failed"
	ActivityVoicemailLeft ActivityType = "voicemail_left"

	ActivityLinkClicked        ActivityType = "link_clicked"
	ActivityOpportunityCreated ActivityType = "opportunity_created"
	ActivityDealWon            ActivityType = "deal_won"

	ActivityOptedOut ActivityType = "opted_out"
	ActivityError    ActivityType = "error"
)

// SentTypeFor maps a channel to its dispatch-success activity type.
func SentTypeFor(ch ChannelType) ActivityType {
	switch ch {
	case ChannelEmail:
		return ActivityEmailSent
	case ChannelSMS:
		return ActivitySMSSent
	case ChannelWhatsApp:
		return ActivityWhatsAppSent
	case ChannelVoice:
		return ActivityCallInitiated
	default:
		return ActivityMessageSent
	}
}

// SentTypes lists every dispatch-success activity type.
func SentTypes() []ActivityType {
	return []ActivityType{
		ActivityEmailSent, ActivitySMSSent, ActivityWhatsAppSent,
		ActivityMessageSent, ActivityCallInitiated,
	}
}

// IsOpen reports whether t counts as an open.
func (t ActivityType) IsOpen() bool {
	return t == ActivityEmailOpened || t == ActivityWhatsAppRead
}

// IsClick reports whether t counts as a click.
func (t ActivityType) IsClick() bool {
	return t == ActivityEmailClicked || t == ActivityLinkClicked
}

// IsReply reports whether t counts as a reply.
func (t ActivityType) IsReply() bool {
	switch t {
	case ActivityEmailReplied, ActivitySMSReplied, ActivityWhatsAppReplied:
		return true
	}
	return false
}

// IsConversion reports whether t counts as a conversion.
func (t ActivityType) IsConversion() bool {
	return t == ActivityOpportunityCreated || t == ActivityDealWon
}

// IsBounce reports whether t is a provider bounce signal.
func (t ActivityType) IsBounce() bool {
	return t == ActivityEmailBounced || t == ActivitySMSFailed
}

// Activity is one append-only ledger event. Never mutated after insert; the
// sole source of truth for engagement metrics.
type Activity struct {
	ID         int64
	CampaignID int64
	ContactID  int64
	LeadID     *int64
	MessageID  *int64

	Type      ActivityType
	Timestamp time.Time

	Data          map[string]string
	RevenueAmount int64
	ExternalID    string
	ErrorMessage  string
}
