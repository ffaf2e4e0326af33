package zkproof

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ProverInput is the witness fed to the password circuit.
type ProverInput struct {
	Password0            string `json:"password_0"`
	Password1            string `json:"password_1"`
	ProvidedPasswordHash string `json:"provided_password_hash"`
	Timestamp            string `json:"timestamp"`
}

// Prover abstracts the external proving backend so implementations are
// swappable without touching orchestration logic.
type Prover interface {
	Prove(ctx context.Context, input ProverInput) (Proof, [2]string, error)
	Verify(ctx context.Context, verificationKey []byte, proof Proof, publicSignals [2]string) (bool, error)
}

// HTTPProver invokes the Groth16 prover service over HTTP.
type HTTPProver struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPProver creates a prover client. Proving is slow; the default timeout
// is generous.
func NewHTTPProver(baseURL string, timeout time.Duration) *HTTPProver {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &HTTPProver{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: timeout},
	}
}

type proveResponse struct {
	Success       bool      `json:"success"`
	Proof         Proof     `json:"proof"`
	PublicSignals [2]string `json:"public_signals"`
	ErrorMessage  string    `json:"error_message"`
}

type verifyRequest struct {
	VerificationKey json.RawMessage `json:"verification_key"`
	Proof           Proof           `json:"proof"`
	PublicSignals   [2]string       `json:"public_signals"`
}

type verifyResponse struct {
	Valid bool `json:"valid"`
}

// Prove sends the witness to the prover service.
func (p *HTTPProver) Prove(ctx context.Context, input ProverInput) (Proof, [2]string, error) {
	var result proveResponse
	if err := p.post(ctx, "/api/proof/password", input, &result); err != nil {
		return Proof{}, [2]string{}, err
	}
	if !result.Success {
		return Proof{}, [2]string{}, fmt.Errorf("prover rejected input: %s", result.ErrorMessage)
	}
	return result.Proof, result.PublicSignals, nil
}

// Verify checks a proof against the circuit verification key.
func (p *HTTPProver) Verify(ctx context.Context, verificationKey []byte, proof Proof, publicSignals [2]string) (bool, error) {
	req := verifyRequest{
		VerificationKey: json.RawMessage(verificationKey),
		Proof:           proof,
		PublicSignals:   publicSignals,
	}
	var result verifyResponse
	if err := p.post(ctx, "/api/proof/verify", req, &result); err != nil {
		return false, err
	}
	return result.Valid, nil
}

func (p *HTTPProver) post(ctx context.Context, path string, payload, out interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("prover service returned error (status %d): %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
