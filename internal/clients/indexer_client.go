package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Holding is one indexed token position for a wallet.
type Holding struct {
	ContractAddress string    `json:"contract_address"`
	NFTData         []NFTItem `json:"nft_data"`
}

// NFTItem identifies one owned non-fungible token.
type NFTItem struct {
	TokenID string `json:"token_id"`
}

// IsNFT reports whether the indexer attached NFT metadata to this holding.
func (h *Holding) IsNFT() bool {
	return h.NFTData != nil
}

type holdingsResponse struct {
	Data struct {
		Items []Holding `json:"items"`
	} `json:"data"`
}

// IndexerClient queries the token-balance indexing service.
type IndexerClient struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func NewIndexerClient(baseURL, apiKey string, timeout time.Duration) *IndexerClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &IndexerClient{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: timeout},
	}
}

// Holdings fetches the wallet's token positions on the selected chain,
// including NFT metadata.
func (c *IndexerClient) Holdings(ctx context.Context, chainSelector, walletAddress string) ([]Holding, error) {
	url := fmt.Sprintf("%s/v1/%s/address/%s/balances_v2/?nft=true", c.BaseURL, chainSelector, walletAddress)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if c.APIKey != "" {
		httpReq.SetBasicAuth(c.APIKey, "")
	}

	resp, err := c.Client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to query indexer: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("indexer returned error (status %d): %s", resp.StatusCode, string(body))
	}

	var result holdingsResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return result.Data.Items, nil
}
