package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"medwatch/config"
	"medwatch/internal/logger"
	"medwatch/internal/utils"
	"net/http"
	"time"
)

var ErrSMSNotConfigured = errors.New("sms gateway not configured")

// SMSRequest is a single outbound message. Phone may hold several numbers
// separated by commas; they are normalized before the gateway call.
type SMSRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// SMSResult captures the gateway response verbatim so callers can persist or
// relay it.
type SMSResult struct {
	StatusCode int             `json:"status"`
	Body       json.RawMessage `json:"data"`
}

// SMSService sends messages through the external SMS gateway. It holds the
// API key so clients never see it. A send attempt is not idempotent and is
// never retried here; retry policy belongs to the notification queue.
type SMSService struct {
	config     config.Config
	log        logger.Logger
	httpClient *http.Client
}

func NewSMSService(cfg config.Config) *SMSService {
	return &SMSService{
		config: cfg,
		log:    logger.New("SMSService"),
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

// Configured reports whether the server holds an API key for the gateway.
func (s *SMSService) Configured() bool {
	return s.config.SMSAPIKey != ""
}

// Send normalizes the recipient list and performs one gateway call.
// Non-2xx gateway responses are returned as results, not errors, so the
// caller can record the payload; transport failures are errors.
func (s *SMSService) Send(ctx context.Context, req SMSRequest) (*SMSResult, error) {
	log := s.log.TraceFromContext(ctx).Function("Send")

	if !s.Configured() {
		return nil, ErrSMSNotConfigured
	}

	payload := map[string]string{
		"phone":   utils.NormalizePhones(req.Phone),
		"message": req.Message,
	}
	if s.config.SMSSenderID != "" {
		payload["sender_id"] = s.config.SMSSenderID
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, log.Err("failed to marshal sms payload", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.config.SMSBaseURL,
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, log.Err("failed to create sms request", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Api-Key", s.config.SMSAPIKey)

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, log.Err("sms gateway request failed", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Info("failed to close sms response body", "error", closeErr)
		}
	}()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, log.Err("failed to read sms gateway response", err)
	}

	// The gateway does not always answer with JSON on errors
	raw := json.RawMessage(respBody)
	if !json.Valid(respBody) {
		quoted, _ := json.Marshal(string(respBody))
		raw = quoted
	}

	log.Info("sms gateway responded",
		"statusCode", resp.StatusCode,
		"recipients", payload["phone"])

	return &SMSResult{
		StatusCode: resp.StatusCode,
		Body:       raw,
	}, nil
}
