// Package assets resolves a wallet's holdings into display-ready records.
// Discovery is a wholesale rebuild on every pass; nothing is cached or
// incrementally updated.
package assets

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/vaultblockmagic/vault/internal/clients"
	"github.com/vaultblockmagic/vault/internal/config"
	"github.com/vaultblockmagic/vault/internal/contracts"
)

// nativePlaceholder is the indexer's pseudo-address for the native currency;
// it has no token contract and is excluded from discovery.
var nativePlaceholder = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

// mirroredPrefix marks wrapped representations of vaulted assets; their
// details come from the mirrored-token batch, keyed by address. Names are
// lowercased before the prefix check.
const mirroredPrefix = "mirrored "

// Asset is one display-ready holding.
type Asset struct {
	Name             string   `json:"name"`
	Address          string   `json:"address"`
	TokenID          string   `json:"tokenId"`
	Ticker           string   `json:"ticker"`
	Balance          string   `json:"balance"`
	Vaulted          bool     `json:"vaulted"`
	Locked           bool     `json:"locked"`
	VaultAuthOptions []string `json:"vaultAuthOptions"`
	LockAuthOptions  []string `json:"lockAuthOptions"`
	Fungible         bool     `json:"fungible"`
}

// HoldingsSource lists a wallet's indexed token positions.
type HoldingsSource interface {
	Holdings(ctx context.Context, chainSelector, walletAddress string) ([]clients.Holding, error)
}

// TokenReader is the batch-query contract surface.
type TokenReader interface {
	GetERC20TokenData(ctx context.Context, tokens []common.Address, owner common.Address) ([]contracts.TokenData, error)
	GetERC721TokenData(ctx context.Context, tokens []common.Address, tokenIDs []*big.Int, owner common.Address) ([]contracts.TokenData, error)
	GetMirroredERC20TokenData(ctx context.Context, tokens []common.Address, owner common.Address) ([]contracts.TokenData, error)
	GetMirroredERC721TokenData(ctx context.Context, tokens []common.Address, owner common.Address) ([]contracts.TokenData, error)
}

// Discovery resolves holdings against the active chain. The reader factory
// re-binds against the current backend so a chain switch between passes is
// picked up.
type Discovery struct {
	indexer    HoldingsSource
	reader     func() TokenReader
	descriptor func() *config.ChainDescriptor
	logger     *logrus.Logger
}

func NewDiscovery(indexer HoldingsSource, reader func() TokenReader, descriptor func() *config.ChainDescriptor, logger *logrus.Logger) *Discovery {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Discovery{
		indexer:    indexer,
		reader:     reader,
		descriptor: descriptor,
		logger:     logger,
	}
}

// Discover rebuilds the wallet's asset list: indexer holdings partitioned
// into fungible and NFT positions, detail batches via the batch-query
// contract, mirrored reconciliation, decimal scaling, name sort and
// zero-balance filtering.
func (d *Discovery) Discover(ctx context.Context, wallet common.Address) ([]Asset, error) {
	desc := d.descriptor()
	holdings, err := d.indexer.Holdings(ctx, desc.IndexerSelector, wallet.Hex())
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}

	var fungibleTokens []common.Address
	var nftTokens []common.Address
	var nftIDs []*big.Int
	for _, holding := range holdings {
		addr := common.HexToAddress(holding.ContractAddress)
		if addr == nativePlaceholder {
			continue
		}
		if !holding.IsNFT() {
			fungibleTokens = append(fungibleTokens, addr)
			continue
		}
		for _, item := range holding.NFTData {
			id, ok := new(big.Int).SetString(item.TokenID, 10)
			if !ok {
				d.logger.WithFields(logrus.Fields{
					"token":    holding.ContractAddress,
					"token_id": item.TokenID,
				}).Warn("skipping NFT with malformed token id")
				continue
			}
			nftTokens = append(nftTokens, addr)
			nftIDs = append(nftIDs, id)
		}
	}

	reader := d.reader()
	assets := make([]Asset, 0, len(fungibleTokens)+len(nftTokens))

	if len(fungibleTokens) > 0 {
		rows, err := reader.GetERC20TokenData(ctx, fungibleTokens, wallet)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve fungible token data: %w", err)
		}
		rows, err = d.reconcileMirrored(ctx, reader, rows, wallet, true)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			assets = append(assets, fungibleAsset(row))
		}
	}

	if len(nftTokens) > 0 {
		rows, err := reader.GetERC721TokenData(ctx, nftTokens, nftIDs, wallet)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve NFT token data: %w", err)
		}
		rows, err = d.reconcileMirrored(ctx, reader, rows, wallet, false)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			assets = append(assets, nftAsset(row))
		}
	}

	sort.Slice(assets, func(i, j int) bool {
		return assets[i].Name < assets[j].Name
	})

	filtered := assets[:0]
	for _, asset := range assets {
		if isZeroBalance(asset.Balance) {
			continue
		}
		filtered = append(filtered, asset)
	}
	return filtered, nil
}

// reconcileMirrored swaps in mirrored-token details for every row whose name
// carries the mirrored prefix. The mirrored batch is keyed by the same token
// address, so the lookup needs no stored linkage.
func (d *Discovery) reconcileMirrored(ctx context.Context, reader TokenReader, rows []contracts.TokenData, wallet common.Address, fungible bool) ([]contracts.TokenData, error) {
	var mirroredTokens []common.Address
	for _, row := range rows {
		if strings.HasPrefix(strings.ToLower(row.Name), mirroredPrefix) {
			mirroredTokens = append(mirroredTokens, row.TokenAddress)
		}
	}
	if len(mirroredTokens) == 0 {
		return rows, nil
	}

	var mirroredRows []contracts.TokenData
	var err error
	if fungible {
		mirroredRows, err = reader.GetMirroredERC20TokenData(ctx, mirroredTokens, wallet)
	} else {
		mirroredRows, err = reader.GetMirroredERC721TokenData(ctx, mirroredTokens, wallet)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve mirrored token data: %w", err)
	}

	byAddress := make(map[common.Address]contracts.TokenData, len(mirroredRows))
	for _, row := range mirroredRows {
		byAddress[row.TokenAddress] = row
	}
	for i, row := range rows {
		if mirrored, ok := byAddress[row.TokenAddress]; ok {
			rows[i] = mirrored
		}
	}
	return rows, nil
}

func fungibleAsset(row contracts.TokenData) Asset {
	return Asset{
		Name:             row.Name,
		Address:          row.TokenAddress.Hex(),
		TokenID:          "0",
		Ticker:           row.Symbol,
		Balance:          scaleBalance(row.Balance, row.Decimals),
		Vaulted:          row.Vaulted,
		Locked:           row.Locked,
		VaultAuthOptions: hexAddresses(row.VaultAuthOptions),
		LockAuthOptions:  hexAddresses(row.LockAuthOptions),
		Fungible:         true,
	}
}

func nftAsset(row contracts.TokenData) Asset {
	return Asset{
		Name:             row.Name,
		Address:          row.TokenAddress.Hex(),
		TokenID:          row.TokenId.String(),
		Ticker:           row.Symbol,
		Balance:          row.Balance.String(),
		Vaulted:          row.Vaulted,
		Locked:           row.Locked,
		VaultAuthOptions: hexAddresses(row.VaultAuthOptions),
		LockAuthOptions:  hexAddresses(row.LockAuthOptions),
		Fungible:         false,
	}
}

// scaleBalance divides the raw integer balance by 10^decimals and renders
// three decimal places.
func scaleBalance(raw *big.Int, decimals uint8) string {
	if raw == nil || raw.Sign() == 0 {
		return "0.000"
	}
	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	value := new(big.Float).Quo(new(big.Float).SetInt(raw), scale)
	return value.Text('f', 3)
}

func isZeroBalance(balance string) bool {
	trimmed := strings.TrimLeft(strings.ReplaceAll(balance, ".", ""), "0")
	return trimmed == ""
}

func hexAddresses(addrs []common.Address) []string {
	out := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		out = append(out, addr.Hex())
	}
	return out
}
