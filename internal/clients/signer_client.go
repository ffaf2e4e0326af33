// Package clients holds the HTTP clients for the off-chain collaborators:
// the MFA signing service, the registrar and the token indexing service.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SignedMessage is one off-chain signing response slot. The message format is
// "<username>-<requestId>-<timestamp>"; the signature fields feed the MFA
// provider record verbatim.
type SignedMessage struct {
	Message string `json:"message"`
	MsgHash string `json:"msg_hash"`
	V       uint8  `json:"v"`
	R       string `json:"r"`
	S       string `json:"s"`
}

// Timestamp extracts the signing timestamp encoded in the message payload.
func (m *SignedMessage) Timestamp() (string, error) {
	parts := strings.Split(m.Message, "-")
	if len(parts) < 3 {
		return "", fmt.Errorf("malformed signed message %q", m.Message)
	}
	return parts[2], nil
}

// SignMFAResponse carries one signed message per secondary-factor slot;
// a slot is nil when its OTP secret was absent or invalid.
type SignMFAResponse struct {
	SignedMessageOne *SignedMessage `json:"signed_message_one,omitempty"`
	SignedMessageTwo *SignedMessage `json:"signed_message_two,omitempty"`
}

// RegisterMFAResponse returns the TOTP provisioning URIs for both slots.
type RegisterMFAResponse struct {
	QRURIOne string `json:"qr_uri_one"`
	QRURITwo string `json:"qr_uri_two"`
}

// SignerClient talks to the off-chain MFA signing service.
type SignerClient struct {
	BaseURL string
	Client  *http.Client
}

func NewSignerClient(baseURL string, timeout time.Duration) *SignerClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SignerClient{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: timeout},
	}
}

type signMFARequest struct {
	Username     string `json:"username"`
	RequestID    string `json:"requestId"`
	OTPSecretOne string `json:"otpSecretOne"`
	OTPSecretTwo string `json:"otpSecretTwo"`
}

// SignMFA submits the pending request id with the user's OTP codes and
// returns the signed challenges.
func (c *SignerClient) SignMFA(ctx context.Context, username, requestID, otpSecretOne, otpSecretTwo string) (*SignMFAResponse, error) {
	req := signMFARequest{
		Username:     username,
		RequestID:    requestID,
		OTPSecretOne: otpSecretOne,
		OTPSecretTwo: otpSecretTwo,
	}
	var result SignMFAResponse
	if err := postJSON(ctx, c.Client, c.BaseURL+"/signMFA", req, &result); err != nil {
		return nil, fmt.Errorf("failed to sign MFA: %w", err)
	}
	return &result, nil
}

// RegisterMFA provisions TOTP secrets for the username.
func (c *SignerClient) RegisterMFA(ctx context.Context, username string) (*RegisterMFAResponse, error) {
	var result RegisterMFAResponse
	if err := postJSON(ctx, c.Client, c.BaseURL+"/registerMFA", map[string]string{"username": username}, &result); err != nil {
		return nil, fmt.Errorf("failed to register MFA: %w", err)
	}
	return &result, nil
}

// postJSON is the shared request helper for the off-chain services.
func postJSON(ctx context.Context, client *http.Client, url string, payload, out interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service returned error (status %d): %s", resp.StatusCode, string(body))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
