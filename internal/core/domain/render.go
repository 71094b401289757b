package domain

import (
	"strconv"
	"strings"
)

// RenderTokens substitutes personalization tokens in a template using contact
// and optional lead data. The token set is closed; unknown tokens are left
// verbatim. Pure and idempotent, so it is safe for previews and test sends.
func RenderTokens(template string, contact Contact, lead *Lead) string {
	if template == "" {
		return template
	}
	pairs := []string{
		"{{first_name}}", contact.FirstName(),
		"{{name}}", contact.Name,
		"{{email}}", contact.Email,
		"{{phone}}", contact.Phone,
		"{{phone_number}}", contact.Phone,
	}
	if lead != nil {
		pairs = append(pairs,
			"{{deal_value}}", strconv.FormatInt(lead.DealValue, 10),
			"{{lead_stage}}", lead.Stage,
			"{{lead_score}}", strconv.Itoa(lead.Score),
		)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// RenderContent returns a copy of a content variant with every text field
// personalized for the contact.
func RenderContent(content MessageContent, contact Contact, lead *Lead) MessageContent {
	switch c := content.(type) {
	case EmailContent:
		c.Subject = RenderTokens(c.Subject, contact, lead)
		c.Body = RenderTokens(c.Body, contact, lead)
		c.HTMLBody = RenderTokens(c.HTMLBody, contact, lead)
		return c
	case SMSContent:
		c.Body = RenderTokens(c.Body, contact, lead)
		return c
	case WhatsAppContent:
		c.Body = RenderTokens(c.Body, contact, lead)
		if len(c.TemplateParams) > 0 {
			params := make(map[string]string, len(c.TemplateParams))
			for k, v := range c.TemplateParams {
				params[k] = RenderTokens(v, contact, lead)
			}
			c.TemplateParams = params
		}
		return c
	case DirectMessageContent:
		c.Body = RenderTokens(c.Body, contact, lead)
		return c
	case VoiceContent:
		c.Script = RenderTokens(c.Script, contact, lead)
		return c
	default:
		return content
	}
}
