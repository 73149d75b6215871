package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPGateway_CreateCheckoutSession(t *testing.T) {
	enrolmentID := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, enrolmentID.String(), r.Header.Get("Idempotency-Key"))

		var req CheckoutRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "parent@example.com", req.CustomerEmail)

		_ = json.NewEncoder(w).Encode(CheckoutSession{ID: "cs_1", URL: "https://pay.example.com/cs_1"})
	}))
	defer srv.Close()

	g := NewHTTPGateway(srv.URL, "secret")
	session, err := g.CreateCheckoutSession(context.Background(), CheckoutRequest{
		EnrolmentID:   enrolmentID,
		CustomerEmail: "parent@example.com",
		Items:         []LineItem{{Description: "Maths", Quantity: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_1", session.ID)
	assert.Equal(t, "https://pay.example.com/cs_1", session.URL)
}

func TestHTTPGateway_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "card declined", http.StatusPaymentRequired)
	}))
	defer srv.Close()

	_, err := NewHTTPGateway(srv.URL, "secret").CreateCheckoutSession(context.Background(), CheckoutRequest{EnrolmentID: uuid.New()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "402")
}
