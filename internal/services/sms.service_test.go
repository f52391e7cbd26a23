package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"medwatch/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMSServiceUnconfigured(t *testing.T) {
	service := NewSMSService(config.Config{})

	assert.False(t, service.Configured())

	_, err := service.Send(context.Background(), SMSRequest{
		Phone:   "0701234567",
		Message: "hello",
	})
	assert.True(t, errors.Is(err, ErrSMSNotConfigured))
}

func TestSMSServiceSend(t *testing.T) {
	var gotBody map[string]string
	var gotAPIKey string

	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAPIKey = r.Header.Get("Api-Key")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"messages":1}`))
	}))
	defer gateway.Close()

	service := NewSMSService(config.Config{
		SMSAPIKey:   "test-key",
		SMSSenderID: "NDA",
		SMSBaseURL:  gateway.URL,
	})

	result, err := service.Send(context.Background(), SMSRequest{
		Phone:   "0701234567, 0701234567",
		Message: "Stock released",
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.JSONEq(t, `{"messages":1}`, string(result.Body))

	assert.Equal(t, "test-key", gotAPIKey)
	assert.Equal(t, "+256701234567", gotBody["phone"], "recipients should be normalized and deduplicated")
	assert.Equal(t, "Stock released", gotBody["message"])
	assert.Equal(t, "NDA", gotBody["sender_id"])
}

func TestSMSServiceGatewayErrorIsResultNotError(t *testing.T) {
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"invalid recipient"}`))
	}))
	defer gateway.Close()

	service := NewSMSService(config.Config{
		SMSAPIKey:  "test-key",
		SMSBaseURL: gateway.URL,
	})

	result, err := service.Send(context.Background(), SMSRequest{
		Phone:   "0701234567",
		Message: "hello",
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, result.StatusCode)
	assert.JSONEq(t, `{"error":"invalid recipient"}`, string(result.Body))
}

func TestSMSServiceNonJSONResponseIsQuoted(t *testing.T) {
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream timeout"))
	}))
	defer gateway.Close()

	service := NewSMSService(config.Config{
		SMSAPIKey:  "test-key",
		SMSBaseURL: gateway.URL,
	})

	result, err := service.Send(context.Background(), SMSRequest{
		Phone:   "0701234567",
		Message: "hello",
	})

	require.NoError(t, err)
	assert.True(t, json.Valid(result.Body), "body must always be valid JSON")

	var quoted string
	require.NoError(t, json.Unmarshal(result.Body, &quoted))
	assert.Equal(t, "upstream timeout", quoted)
}
