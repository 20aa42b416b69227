package sms

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidyalay/vidyalay-api/pkg/config"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "", Normalize("", "+91"))
	assert.Equal(t, "", Normalize("   ", "+91"))
	assert.Equal(t, "+919876543210", Normalize("9876543210", "+91"))
	assert.Equal(t, "+14155550100", Normalize("+14155550100", "+91"))
	assert.Equal(t, "+919876543210", Normalize(" 9876543210 ", "+91"))
}

func TestNewFromConfigSelectsProvider(t *testing.T) {
	sender := NewFromConfig(config.SMSConfig{Provider: "twilio", AccountSID: "AC123"}, nil)
	_, ok := sender.(*TwilioSender)
	require.True(t, ok)

	sender = NewFromConfig(config.SMSConfig{Provider: "log"}, nil)
	_, ok = sender.(*LogSender)
	require.True(t, ok)

	// Unknown providers fall back to the log sender.
	sender = NewFromConfig(config.SMSConfig{Provider: "carrier-pigeon"}, nil)
	_, ok = sender.(*LogSender)
	require.True(t, ok)
}

func TestLogSenderAlwaysSucceeds(t *testing.T) {
	sender := NewLogSender(nil)
	require.NoError(t, sender.Send(context.Background(), "+919876543210", "hello"))
}
