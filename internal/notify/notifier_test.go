// server/internal/notify/notifier_test.go
package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"waste-pickup-api-server/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(url string) config.NotifierConfig {
	return config.NotifierConfig{
		WebhookURL: url,
		Recipients: map[string]string{
			"plastic": "plastic-driver@example.com",
			"organic": "organic-driver@example.com",
		},
		DefaultRecipient: "dispatch@example.com",
	}
}

func testAlert() Alert {
	return Alert{
		WasteType:  "plastic",
		Location:   "Block A, Room 7",
		Score:      0.75,
		Label:      "high",
		DetectedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		ImageURL:   "https://cdn.example.com/pickups/img-1.jpg",
	}
}

func TestSendAlertPostsPayload(t *testing.T) {
	var received map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
	}))
	defer srv.Close()

	n := NewWebhookNotifier(testConfig(srv.URL))
	require.NoError(t, n.SendAlert(context.Background(), testAlert()))

	assert.Equal(t, "plastic-driver@example.com", received["recipient"])
	assert.Equal(t, "Contamination Alert - PLASTIC Waste", received["subject"])
	assert.Equal(t, "plastic", received["wasteType"])
	assert.Equal(t, "Block A, Room 7", received["location"])
	assert.Equal(t, 0.75, received["score"])
	assert.Equal(t, "high", received["label"])
	assert.Equal(t, "https://cdn.example.com/pickups/img-1.jpg", received["imageUrl"])
}

func TestRecipientResolution(t *testing.T) {
	n := NewWebhookNotifier(testConfig("http://unused.example.com"))

	assert.Equal(t, "organic-driver@example.com", n.RecipientFor("organic"))
	assert.Equal(t, "organic-driver@example.com", n.RecipientFor("ORGANIC"))
	// Unmapped types fall back to the default contact.
	assert.Equal(t, "dispatch@example.com", n.RecipientFor("glass"))
}

func TestSendAlertErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(testConfig(srv.URL))
	assert.Error(t, n.SendAlert(context.Background(), testAlert()))

	unconfigured := NewWebhookNotifier(config.NotifierConfig{})
	assert.Error(t, unconfigured.SendAlert(context.Background(), testAlert()))

	noRecipient := NewWebhookNotifier(config.NotifierConfig{WebhookURL: srv.URL})
	assert.Error(t, noRecipient.SendAlert(context.Background(), testAlert()))
}
