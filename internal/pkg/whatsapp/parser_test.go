package whatsapp

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommandRate(t *testing.T) {
	for _, body := range []string{"rate", "RATE", "  Rate  "} {
		cmd, err := ParseCommand(body)
		require.NoError(t, err, body)
		assert.Equal(t, CommandRate, cmd.Kind)
	}
}

func TestParseCommandCost(t *testing.T) {
	cmd, err := ParseCommand("cost 12.5")
	require.NoError(t, err)
	assert.Equal(t, CommandCost, cmd.Kind)
	assert.True(t, cmd.Units.Equal(decimal.RequireFromString("12.5")))
	assert.Empty(t, cmd.DeviceID)
}

func TestParseCommandCostWithMeter(t *testing.T) {
	cmd, err := ParseCommand("cost 10 for mtr1234567")
	require.NoError(t, err)
	assert.Equal(t, CommandCost, cmd.Kind)
	assert.Equal(t, "MTR1234567", cmd.DeviceID)
}

func TestParseCommandBuy(t *testing.T) {
	cmd, err := ParseCommand("Buy 5 for MTR0000001")
	require.NoError(t, err)
	assert.Equal(t, CommandBuy, cmd.Kind)
	assert.True(t, cmd.Units.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, "MTR0000001", cmd.DeviceID)
}

func TestParseCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"empty", "   ", ErrEmptyMessage},
		{"cost without units", "cost", ErrBadUnits},
		{"cost zero units", "cost 0", ErrBadUnits},
		{"cost negative units", "cost -3", ErrBadUnits},
		{"cost non numeric", "cost ten", ErrBadUnits},
		{"buy without units", "buy", ErrBadUnits},
		{"buy without meter", "buy 10", ErrMissingMeter},
		{"buy with dangling for", "buy 10 for", ErrMissingMeter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCommand(tt.body)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseCommandUnknown(t *testing.T) {
	cmd, err := ParseCommand("hello there")
	require.NoError(t, err)
	assert.Equal(t, CommandUnknown, cmd.Kind)
}

func TestTextMessagesSkipsNonText(t *testing.T) {
	payload := WebhookPayload{
		Object: "whatsapp_business_account",
		Entry: []Entry{{
			Changes: []Change{{
				Field: "messages",
				Value: Value{Messages: []Message{
					{From: "254700000001", Type: "text", Text: &MessageText{Body: "rate"}},
					{From: "254700000002", Type: "image"},
				}},
			}},
		}},
	}

	msgs := payload.TextMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "254700000001", msgs[0].From)
	assert.Equal(t, "rate", msgs[0].Text.Body)
}
