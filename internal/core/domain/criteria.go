package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// TargetingError reports malformed targeting criteria. Surfaced to the
// caller; no enrollments are created when it is returned.
type TargetingError struct {
	Reason string
}

func (e *TargetingError) Error() string {
	return "invalid targeting criteria: " + e.Reason
}

// TargetCriteria is the declarative audience filter of a campaign. Every
// field is optional; empty criteria match every contactable contact. The
// JSON form rejects unknown keys at the boundary instead of carrying an
// opaque blob into the engine.
type TargetCriteria struct {
	LifecycleStages []string `json:"lifecycle_stages,omitempty"`
	LeadSources     []string `json:"lead_sources,omitempty"`
	LeadStages      []string `json:"lead_stages,omitempty"`
	TagIDs          []int64  `json:"tag_ids,omitempty"`
	ScoreMin        *int     `json:"score_min,omitempty"`
	ScoreMax        *int     `json:"score_max,omitempty"`
	OptInStatus     []string `json:"opt_in_status,omitempty"`
	IncludeContacts *bool    `json:"include_contacts,omitempty"`
	IncludeLeads    *bool    `json:"include_leads,omitempty"`

	// Manual selection, merged with the filtered set.
	ContactIDs []int64 `json:"contact_ids,omitempty"`
	LeadIDs    []int64 `json:"lead_ids,omitempty"`

	// Cap on the resolved audience size. Zero means no cap.
	MaxContacts int `json:"max_contacts,omitempty"`
}

// ParseCriteria decodes and validates a criteria document.
func ParseCriteria(raw []byte) (*TargetCriteria, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var c TargetCriteria
	if err := dec.Decode(&c); err != nil {
		return nil, &TargetingError{Reason: err.Error()}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Encode serializes the criteria for storage.
func (c *TargetCriteria) Encode() ([]byte, error) {
	return json.Marshal(c)
}

// Validate checks internal consistency.
func (c *TargetCriteria) Validate() error {
	if c.ScoreMin != nil && c.ScoreMax != nil && *c.ScoreMin > *c.ScoreMax {
		return &TargetingError{Reason: fmt.Sprintf("score_min %d exceeds score_max %d", *c.ScoreMin, *c.ScoreMax)}
	}
	if c.MaxContacts < 0 {
		return &TargetingError{Reason: "max_contacts must not be negative"}
	}
	return nil
}

// LeadRequired reports whether the criteria can only be satisfied by
// contacts that have a lead attached.
func (c *TargetCriteria) LeadRequired() bool {
	if len(c.LeadStages) > 0 || c.ScoreMin != nil || c.ScoreMax != nil {
		return true
	}
	return c.IncludeContacts != nil && !*c.IncludeContacts &&
		(c.IncludeLeads == nil || *c.IncludeLeads)
}

// Matches evaluates the filter dimensions against a contact and its optional
// lead. Do-not-contact exclusion and enrollment dedupe happen in the
// targeting engine, not here.
func (c *TargetCriteria) Matches(contact Contact, lead *Lead) bool {
	if len(c.LifecycleStages) > 0 && !containsString(c.LifecycleStages, contact.LifecycleStage) {
		return false
	}
	if len(c.LeadSources) > 0 && !containsString(c.LeadSources, contact.LeadSource) {
		return false
	}
	if len(c.OptInStatus) > 0 && !containsString(c.OptInStatus, contact.OptInStatus) {
		return false
	}
	if len(c.TagIDs) > 0 && !contact.HasTag(c.TagIDs) {
		return false
	}
	if c.LeadRequired() && lead == nil {
		return false
	}
	if lead != nil {
		if len(c.LeadStages) > 0 && !containsString(c.LeadStages, lead.Stage) {
			return false
		}
		if c.ScoreMin != nil && lead.Score < *c.ScoreMin {
			return false
		}
		if c.ScoreMax != nil && lead.Score > *c.ScoreMax {
			return false
		}
	}
	return true
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
