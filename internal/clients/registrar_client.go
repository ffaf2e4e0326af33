package clients

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/vaultblockmagic/vault/internal/zkproof"
)

// ProofParamsPayload is the registrar's named-field proof encoding.
type ProofParamsPayload struct {
	PA0         string `json:"pA0"`
	PA1         string `json:"pA1"`
	PB00        string `json:"pB00"`
	PB01        string `json:"pB01"`
	PB10        string `json:"pB10"`
	PB11        string `json:"pB11"`
	PC0         string `json:"pC0"`
	PC1         string `json:"pC1"`
	PubSignals0 string `json:"pubSignals0"`
	PubSignals1 string `json:"pubSignals1"`
}

// NewProofParamsPayload maps the normalized tuple into the registrar's
// field names, preserving its order.
func NewProofParamsPayload(params zkproof.Parameters) ProofParamsPayload {
	return ProofParamsPayload{
		PA0:         params[0],
		PA1:         params[1],
		PB00:        params[2],
		PB01:        params[3],
		PB10:        params[4],
		PB11:        params[5],
		PC0:         params[6],
		PC1:         params[7],
		PubSignals0: params[8],
		PubSignals1: params[9],
	}
}

// RecoverENSRequest re-binds a username to a new wallet address.
type RecoverENSRequest struct {
	Username       string             `json:"username"`
	NewUserAddress string             `json:"newUserAddress"`
	PasswordHash   string             `json:"passwordHash"`
	Timestamp      string             `json:"timestamp"`
	Params         ProofParamsPayload `json:"params"`
}

// RegistrarClient talks to the off-chain username/password registrar.
type RegistrarClient struct {
	BaseURL string
	Client  *http.Client
}

func NewRegistrarClient(baseURL string, timeout time.Duration) *RegistrarClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RegistrarClient{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: timeout},
	}
}

// RegisterPassword stores the plaintext password with the signing service so
// the oracle MFA provider can later verify salted hashes against it.
func (c *RegistrarClient) RegisterPassword(ctx context.Context, username, password string) error {
	payload := map[string]string{"username": username, "password": password}
	if err := postJSON(ctx, c.Client, c.BaseURL+"/registerPassword", payload, nil); err != nil {
		return fmt.Errorf("failed to register password: %w", err)
	}
	return nil
}

// RegisterENS binds a name to the wallet address and password commitment.
func (c *RegistrarClient) RegisterENS(ctx context.Context, name, userAddress, passwordHash string) error {
	payload := map[string]string{
		"name":         name,
		"userAddress":  userAddress,
		"passwordHash": passwordHash,
	}
	if err := postJSON(ctx, c.Client, c.BaseURL+"/registerENS", payload, nil); err != nil {
		return fmt.Errorf("failed to register ENS: %w", err)
	}
	return nil
}

// RecoverENS re-binds the username to a new address, authenticated by the
// password proof.
func (c *RegistrarClient) RecoverENS(ctx context.Context, req RecoverENSRequest) error {
	if err := postJSON(ctx, c.Client, c.BaseURL+"/recoverENS", req, nil); err != nil {
		return fmt.Errorf("failed to recover ENS: %w", err)
	}
	return nil
}
