package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderTokens(t *testing.T) {
	contact := Contact{Name: "Jane Doe", Email: "jane@example.com", Phone: "+15550100"}
	lead := &Lead{Stage: "mql", Score: 42, DealValue: 150000}

	got := RenderTokens("Hi {{first_name}}, is {{email}} still yours?", contact, nil)
	require.Equal(t, "Hi Jane, is jane@example.com still yours?", got)

	got = RenderTokens("{{name}} / {{phone}} / {{phone_number}}", contact, nil)
	require.Equal(t, "Jane Doe / +15550100 / +15550100", got)

	got = RenderTokens("stage={{lead_stage}} score={{lead_score}} value={{deal_value}}", contact, lead)
	require.Equal(t, "stage=mql score=42 value=150000", got)
}

func TestRenderTokensWithoutLead(t *testing.T) {
	contact := Contact{Name: "Jane"}
	// Lead tokens stay verbatim when no lead is attached.
	got := RenderTokens("value={{deal_value}}", contact, nil)
	require.Equal(t, "value={{deal_value}}", got)
}

func TestRenderTokensUnknownTokenVerbatim(t *testing.T) {
	got := RenderTokens("{{company}} fits {{first_name}}", Contact{Name: "Jane"}, nil)
	require.Equal(t, "{{company}} fits Jane", got)
}

func TestRenderTokensIdempotent(t *testing.T) {
	contact := Contact{Name: "Jane Doe", Email: "jane@example.com"}
	once := RenderTokens("Hello {{first_name}} <{{email}}>", contact, nil)
	twice := RenderTokens(once, contact, nil)
	require.Equal(t, once, twice)
}

func TestRenderContentVariants(t *testing.T) {
	contact := Contact{Name: "Jane Doe", Phone: "+15550100"}

	email := RenderContent(EmailContent{Subject: "Hi {{first_name}}", Body: "Call {{phone}}"}, contact, nil).(EmailContent)
	require.Equal(t, "Hi Jane", email.Subject)
	require.Equal(t, "Call +15550100", email.Body)

	sms := RenderContent(SMSContent{Body: "{{first_name}}?"}, contact, nil).(SMSContent)
	require.Equal(t, "Jane?", sms.Body)

	wa := RenderContent(WhatsAppContent{
		TemplateName:   "welcome",
		TemplateParams: map[string]string{"1": "{{first_name}}"},
	}, contact, nil).(WhatsAppContent)
	require.Equal(t, "Jane", wa.TemplateParams["1"])

	voice := RenderContent(VoiceContent{Script: "This is a call for {{name}}"}, contact, nil).(VoiceContent)
	require.Equal(t, "This is a call for Jane Doe", voice.Script)
}

func TestRenderContentDoesNotMutateOriginal(t *testing.T) {
	contact := Contact{Name: "Jane"}
	original := WhatsAppContent{TemplateParams: map[string]string{"1": "{{first_name}}"}}
	_ = RenderContent(original, contact, nil)
	require.Equal(t, "{{first_name}}", original.TemplateParams["1"])
}
