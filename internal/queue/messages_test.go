package queue

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartoutreach/hub/internal/model"
)

func TestDecode_CampaignMessage(t *testing.T) {
	body := `{
		"phoneNumber": "+12125551234",
		"message": "Hi Ada, sale today",
		"campaignId": "camp-1",
		"customerId": "+12125551234",
		"messageType": "campaign"
	}`

	msg, err := Decode([]byte(body), "")
	require.NoError(t, err)
	assert.Equal(t, KindCampaign, msg.Kind)
	require.NotNil(t, msg.Campaign)
	assert.Equal(t, "+12125551234", msg.Campaign.PhoneNumber)
	assert.Equal(t, "camp-1", msg.Campaign.CampaignID)
	assert.Nil(t, msg.Manual)
	assert.Nil(t, msg.Agent)
}

func TestDecode_AttributeOverridesBody(t *testing.T) {
	// Producers set the messageType attribute; the body discriminator is
	// only a fallback for older producers.
	body := `{"phoneNumber": "+12125551234", "message": "hello"}`

	msg, err := Decode([]byte(body), "manual")
	require.NoError(t, err)
	assert.Equal(t, KindManual, msg.Kind)
	require.NotNil(t, msg.Manual)
}

func TestDecode_AgentResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "camelCase shape",
			body: `{
				"phoneNumber": "+12125551234",
				"agentResponse": {
					"response_text": "Thanks for your interest!",
					"should_handoff": true,
					"handoff_reason": "pricing question",
					"user_sentiment": "positive",
					"campaign_id": "camp-1"
				}
			}`,
		},
		{
			name: "legacy snake_case shape",
			body: `{
				"phone_number": "+12125551234",
				"agent_response": {
					"response_text": "Thanks for your interest!",
					"should_handoff": true,
					"handoff_reason": "pricing question",
					"user_sentiment": "positive",
					"campaign_id": "camp-1"
				},
				"timestamp": "2026-02-11T10:00:00Z"
			}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Decode([]byte(tt.body), "agent_response")
			require.NoError(t, err)
			assert.Equal(t, KindAgentResponse, msg.Kind)
			require.NotNil(t, msg.Agent)
			assert.Equal(t, "+12125551234", msg.Agent.Phone())

			resp := msg.Agent.Response()
			require.NotNil(t, resp)
			assert.Equal(t, "Thanks for your interest!", resp.ResponseText)
			assert.True(t, resp.ShouldHandoff)
			assert.Equal(t, model.SentimentPositive, resp.UserSentiment)
			assert.Equal(t, "camp-1", resp.CampaignID)
		})
	}
}

func TestDecode_AgentResponseMissingFields(t *testing.T) {
	_, err := Decode([]byte(`{"phoneNumber": "+12125551234"}`), "agent_response")
	require.Error(t, err)
	assert.True(t, model.IsValidation(err))
}

func TestDecode_UnknownKind(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		attrKind string
	}{
		{"unrecognized attribute", `{"phoneNumber": "+12125551234"}`, "broadcast"},
		{"unrecognized body discriminator", `{"messageType": "fax"}`, ""},
		{"no discriminator anywhere", `{"phoneNumber": "+12125551234"}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.body), tt.attrKind)
			var unknownErr *UnknownKindError
			require.ErrorAs(t, err, &unknownErr)
		})
	}
}

func TestDecode_MalformedJSON(t *testing.T) {
	_, err := Decode([]byte(`{not json`), "")
	require.Error(t, err)

	var unknownErr *UnknownKindError
	assert.False(t, errors.As(err, &unknownErr))
}
