package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCriteriaRejectsUnknownKeys(t *testing.T) {
	_, err := ParseCriteria([]byte(`{"lifecycle_stages": ["lead"], "surprise": true}`))
	var targeting *TargetingError
	require.ErrorAs(t, err, &targeting)
}

func TestParseCriteriaValidates(t *testing.T) {
	_, err := ParseCriteria([]byte(`{"score_min": 80, "score_max": 20}`))
	require.Error(t, err)

	_, err = ParseCriteria([]byte(`{"max_contacts": -1}`))
	require.Error(t, err)

	c, err := ParseCriteria([]byte(`{"lifecycle_stages": ["lead"], "score_min": 10, "tag_ids": [1, 2]}`))
	require.NoError(t, err)
	require.Equal(t, []string{"lead"}, c.LifecycleStages)
	require.Equal(t, 10, *c.ScoreMin)
}

func TestCriteriaMatches(t *testing.T) {
	scoreMin := 30
	c := &TargetCriteria{
		LifecycleStages: []string{"lead", "mql"},
		ScoreMin:        &scoreMin,
		TagIDs:          []int64{5},
	}

	contact := Contact{LifecycleStage: "lead", TagIDs: []int64{3, 5}}
	require.True(t, c.Matches(contact, &Lead{Score: 50}))
	require.False(t, c.Matches(contact, &Lead{Score: 10}))
	// Score bound requires a lead.
	require.False(t, c.Matches(contact, nil))

	require.False(t, c.Matches(Contact{LifecycleStage: "customer", TagIDs: []int64{5}}, &Lead{Score: 50}))
	require.False(t, c.Matches(Contact{LifecycleStage: "lead", TagIDs: []int64{3}}, &Lead{Score: 50}))
}

func TestCriteriaEmptyMatchesEverything(t *testing.T) {
	c := &TargetCriteria{}
	require.True(t, c.Matches(Contact{LifecycleStage: "anything"}, nil))
}

func TestDecodeContentRoundTrip(t *testing.T) {
	raw, err := EncodeContent(EmailContent{Subject: "s", Body: "b"})
	require.NoError(t, err)
	content, err := DecodeContent(ChannelEmail, raw)
	require.NoError(t, err)
	require.Equal(t, EmailContent{Subject: "s", Body: "b"}, content)

	// Direct message payloads get the platform stamped from the channel.
	raw, err = EncodeContent(DirectMessageContent{Body: "hi"})
	require.NoError(t, err)
	content, err = DecodeContent(ChannelTelegram, raw)
	require.NoError(t, err)
	require.Equal(t, ChannelTelegram, content.Channel())

	_, err = DecodeContent("carrier-pigeon", []byte(`{}`))
	require.Error(t, err)
}
