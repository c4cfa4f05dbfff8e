package providers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripe "github.com/stripe/stripe-go/v78"

	"github.com/remlyo/remlyo/internal/config"
	"github.com/remlyo/remlyo/internal/domain/payment"
)

const testWebhookSecret = "whsec_test_secret"

func sign(payload []byte, secret string, ts time.Time) string {
	stamp := strconv.FormatInt(ts.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(stamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%s,v1=%s", stamp, hex.EncodeToString(mac.Sum(nil)))
}

func succeededPayload() []byte {
	return succeededPayloadAt(stripe.APIVersion)
}

func succeededPayloadAt(apiVersion string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": "evt_123",
		"object": "event",
		"api_version": %q,
		"type": "payment_intent.succeeded",
		"data": {
			"object": {
				"id": "pi_123",
				"object": "payment_intent",
				"metadata": {"user_id": "7", "ailment_id": "a1", "remedy_id": "r1"}
			}
		}
	}`, apiVersion))
}

func TestStripeProvider_ParseWebhook(t *testing.T) {
	p := NewStripeProvider(config.StripeConfig{SecretKey: "sk_test_x", WebhookSecret: testWebhookSecret})
	payload := succeededPayload()

	ev, err := p.ParseWebhook(payload, sign(payload, testWebhookSecret, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, "evt_123", ev.ID)
	assert.Equal(t, payment.EventPaymentSucceeded, ev.Type)
	assert.Equal(t, "pi_123", ev.ObjectID)
	assert.Equal(t, map[string]string{
		payment.MetaUserID:    "7",
		payment.MetaAilmentID: "a1",
		payment.MetaRemedyID:  "r1",
	}, ev.Metadata)
}

func TestStripeProvider_ParseWebhook_OtherAPIVersion(t *testing.T) {
	p := NewStripeProvider(config.StripeConfig{SecretKey: "sk_test_x", WebhookSecret: testWebhookSecret})
	payload := succeededPayloadAt("2020-08-27")

	ev, err := p.ParseWebhook(payload, sign(payload, testWebhookSecret, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, payment.EventPaymentSucceeded, ev.Type)
	assert.Equal(t, "pi_123", ev.ObjectID)
	assert.Equal(t, "7", ev.Metadata[payment.MetaUserID])

	// The version is no excuse for a bad signature
	_, err = p.ParseWebhook(payload, sign(payload, "whsec_other", time.Now()))
	assert.ErrorIs(t, err, payment.ErrInvalidSignature)
}

func TestStripeProvider_ParseWebhook_BadSignature(t *testing.T) {
	p := NewStripeProvider(config.StripeConfig{SecretKey: "sk_test_x", WebhookSecret: testWebhookSecret})
	payload := succeededPayload()

	tests := []struct {
		name      string
		signature string
	}{
		{name: "wrong secret", signature: sign(payload, "whsec_other", time.Now())},
		{name: "stale timestamp", signature: sign(payload, testWebhookSecret, time.Now().Add(-time.Hour))},
		{name: "missing header", signature: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.ParseWebhook(payload, tt.signature)
			assert.ErrorIs(t, err, payment.ErrInvalidSignature)
		})
	}
}

func TestStripeProvider_ParseWebhook_NoSecret(t *testing.T) {
	p := NewStripeProvider(config.StripeConfig{SecretKey: "sk_test_x"})

	ev, err := p.ParseWebhook(succeededPayload(), "")
	require.NoError(t, err)
	assert.Equal(t, "pi_123", ev.ObjectID)

	_, err = p.ParseWebhook([]byte("not json"), "")
	assert.Error(t, err)
}

func TestStripeProvider_ParseWebhook_OtherEvent(t *testing.T) {
	p := NewStripeProvider(config.StripeConfig{SecretKey: "sk_test_x"})
	payload := []byte(`{"id": "evt_9", "type": "customer.created", "data": {"object": {"id": "cus_1"}}}`)

	ev, err := p.ParseWebhook(payload, "")
	require.NoError(t, err)
	assert.Equal(t, "customer.created", ev.Type)
	assert.Empty(t, ev.ObjectID)
	assert.Nil(t, ev.Metadata)
}
